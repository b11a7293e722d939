package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gestaozabele/lancamentos/internal/config"
	httpmiddleware "github.com/gestaozabele/lancamentos/internal/http/middleware"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/service"
)

// Pinger é satisfeito pelo pool do Postgres e pelo cliente de cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps reúne as dependências do roteador.
type Deps struct {
	Config      *config.Config
	DB          Pinger
	Cache       Pinger
	Auth        *service.AuthService
	Users       *service.UserService
	Tenants     *service.TenantService
	Lancamentos *service.LancamentoService
	// Metrics substitui o handler padrão do Prometheus (útil com registry próprio).
	Metrics http.Handler
}

type Handler struct {
	db            Pinger
	cache         Pinger
	auth          *service.AuthService
	users         *service.UserService
	tenants       *service.TenantService
	lancamentos   *service.LancamentoService
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	h := &Handler{
		db:            deps.DB,
		cache:         deps.Cache,
		auth:          deps.Auth,
		users:         deps.Users,
		tenants:       deps.Tenants,
		lancamentos:   deps.Lancamentos,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		devCookies:    devCookies,
	}

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))
		public.Post("/auth/login", h.Login)
		public.Post("/auth/refresh", h.Refresh)
		public.Post("/auth/logout", h.Logout)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(h.auth.JWT()))
		private.Use(httpmiddleware.ActorRateLimit(h.authLimiter))
		private.Use(httpmiddleware.TenantScope)

		private.Get("/me", h.Me)
		private.Patch("/me", h.UpdateMe)

		private.Route("/users", func(u chi.Router) {
			u.With(httpmiddleware.RequireRoles(role.SuperAdmin, role.SuporteAdmin, role.Secretario)).Get("/", h.ListUsers)
			u.Get("/{id}", h.GetUser)
			u.Group(func(w chi.Router) {
				w.Use(httpmiddleware.RequireRoles(role.SuperAdmin, role.Secretario))
				w.Post("/", h.CreateUser)
				w.Patch("/{id}", h.UpdateUser)
				w.Delete("/{id}", h.DeleteUser)
			})
		})

		private.Route("/tenants", func(t chi.Router) {
			t.Get("/", h.ListTenants)
			t.With(httpmiddleware.RequireRoles(role.SuperAdmin, role.SuporteAdmin, role.FinanceiroAdmin)).Get("/resolve", h.ResolveTenantCnpj)
			t.Get("/{id}", h.GetTenant)
			t.Group(func(w chi.Router) {
				w.Use(httpmiddleware.RequireRoles(role.SuperAdmin))
				w.Post("/", h.CreateTenant)
				w.Put("/{id}", h.UpdateTenant)
				w.Delete("/{id}", h.DeleteTenant)
				w.Post("/{id}/cnpjs", h.AddTenantCnpj)
				w.Post("/{id}/sync-lancamentos", h.SyncTenantLancamentos)
			})
		})

		private.Route("/lancamentos", func(l chi.Router) {
			l.Get("/", h.ListLancamentos)
			l.Get("/stats", h.LancamentoStats)
			l.Get("/{id}", h.GetLancamento)
		})
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e cache.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var dbErr, cacheErr error
	if h.db != nil {
		dbErr = h.db.Ping(ctx)
	}
	if h.cache != nil {
		cacheErr = h.cache.Ping(ctx)
	}

	if dbErr != nil || cacheErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"cache": errorString(cacheErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
