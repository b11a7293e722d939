package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/config"
	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/repo/memory"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/service"
	"github.com/gestaozabele/lancamentos/internal/tenant"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("conexão recusada") }

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	cache  cache.Client
	jwt    *auth.JWTManager
	router http.Handler
	super  repo.Usuario
}

func newTestEnv(t *testing.T, db Pinger) *testEnv {
	t.Helper()
	store := memory.New()
	c := cache.NewMemory("test", time.Minute)
	resolver := tenant.NewResolver(store, c, time.Minute, zerolog.Nop())
	jwtMgr := auth.NewJWTManager(testSecret, time.Hour)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	cfg := &config.Config{
		AllowOrigins:  []string{"http://localhost:5173"},
		RateLimit:     config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}

	e := &testEnv{
		t:     t,
		ctx:   context.Background(),
		store: store,
		cache: c,
		jwt:   jwtMgr,
	}
	e.router = NewRouter(Deps{
		Config:      cfg,
		DB:          db,
		Cache:       c,
		Auth:        service.NewAuthService(store, c, jwtMgr, 24*time.Hour, zerolog.Nop()),
		Users:       service.NewUserService(store, zerolog.Nop()),
		Tenants:     service.NewTenantService(store, resolver, zerolog.Nop()),
		Lancamentos: service.NewLancamentoService(store),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	e.super = e.seedUser(role.SuperAdmin, nil, "")
	return e
}

func (e *testEnv) seedUser(r role.Role, tenantID *uuid.UUID, senha string) repo.Usuario {
	e.t.Helper()
	hash := "hash:indisponivel"
	if senha != "" {
		var err error
		hash, err = auth.Hash(senha)
		require.NoError(e.t, err)
	}
	u, err := e.store.CreateUsuario(e.ctx, repo.CreateUsuarioParams{
		Nome:      string(r) + " teste",
		Email:     strings.ToLower(string(r)) + "-" + uuid.NewString()[:8] + "@zabele.pb.gov.br",
		SenhaHash: hash,
		Role:      r,
		TenantID:  tenantID,
		Ativo:     true,
	})
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) seedTenant(nome, digits string) repo.Tenant {
	e.t.Helper()
	tn, err := e.store.CreateTenant(e.ctx, repo.CreateTenantParams{Nome: nome, CNPJ: digits, EmailContato: "contato@gov.br", Ativo: true})
	require.NoError(e.t, err)
	return tn
}

func (e *testEnv) token(u repo.Usuario) string {
	e.t.Helper()
	tok, _, err := e.jwt.GenerateAccessToken(auth.Subject{ID: u.ID, Email: u.Email, Role: u.Role.String(), TenantID: u.TenantID})
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path string, body any, token string, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *ErrorBody      `json:"error"`
}

func readEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) *ErrorBody {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

func TestHealthAndReady(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/ready", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	down := newTestEnv(t, failingPinger{})
	rec = down.do(http.MethodGet, "/ready", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	errBody := readEnvelope(t, rec, nil)
	require.Equal(t, "INTERNAL", errBody.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	e.do(http.MethodGet, "/health", nil, "")

	rec := e.do(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health",status="200"}`)
}

func TestLoginRefreshLogout(t *testing.T) {
	e := newTestEnv(t, nil)
	user := e.seedUser(role.SuporteAdmin, nil, "senha-forte-123")

	rec := e.do(http.MethodPost, "/auth/login", map[string]string{"email": "  " + strings.ToUpper(user.Email), "senha": "senha-forte-123"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login service.LoginResult
	require.Nil(t, readEnvelope(t, rec, &login))
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	require.Equal(t, "Bearer", login.TokenType)
	require.Equal(t, user.ID, login.User.ID)
	require.NotContains(t, rec.Body.String(), "senha_hash")

	rec = e.do(http.MethodGet, "/me", nil, login.AccessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var me repo.Usuario
	require.Nil(t, readEnvelope(t, rec, &me))
	require.Equal(t, user.Email, me.Email)
	require.NotNil(t, me.UltimoAcesso)

	rec = e.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed service.LoginResult
	require.Nil(t, readEnvelope(t, rec, &refreshed))
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// O refresh é rotacionado: o token antigo não vale mais.
	rec = e.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": login.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": refreshed.RefreshToken}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": refreshed.RefreshToken}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	e := newTestEnv(t, nil)
	user := e.seedUser(role.Visualizador, nil, "senha-forte-123")

	rec := e.do(http.MethodPost, "/auth/login", map[string]string{"email": user.Email, "senha": "errada-123"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "AUTH", readEnvelope(t, rec, nil).Code)

	rec = e.do(http.MethodPost, "/auth/login", map[string]string{"email": user.Email}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/auth/login", "{", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "VALIDATION", readEnvelope(t, rec, nil).Code)

	rec = e.do(http.MethodGet, "/me", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUserRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	zabele := e.seedTenant("Zabelê", "11111111000111")
	outro := e.seedTenant("Outro", "33333333000133")
	sec := e.seedUser(role.Secretario, &zabele.ID, "")
	viewer := e.seedUser(role.Visualizador, &zabele.ID, "")

	t.Run("papel sem acesso à rota", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/users", map[string]any{}, e.token(viewer))
		require.Equal(t, http.StatusForbidden, rec.Code)
		errBody := readEnvelope(t, rec, nil)
		require.Equal(t, "FORBIDDEN", errBody.Code)
	})

	t.Run("secretario cria financeiro no próprio tenant", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/users", map[string]any{
			"nome":      "Maria Financeiro",
			"email":     "Maria@Zabele.pb.gov.br",
			"senha":     "senha-forte-123",
			"role":      "FINANCEIRO",
			"tenant_id": zabele.ID,
		}, e.token(sec))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var created repo.Usuario
		require.Nil(t, readEnvelope(t, rec, &created))
		require.Equal(t, "maria@zabele.pb.gov.br", created.Email)
		require.Equal(t, zabele.ID, *created.TenantID)
	})

	t.Run("secretario não cria em outro tenant", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/users", map[string]any{
			"nome":      "João Visualizador",
			"email":     "joao@outro.gov.br",
			"senha":     "senha-forte-123",
			"role":      "VISUALIZADOR",
			"tenant_id": outro.ID,
		}, e.token(sec))
		require.Equal(t, http.StatusForbidden, rec.Code)
		errBody := readEnvelope(t, rec, nil)
		details, ok := errBody.Details.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "create.secretario.tenant", details["rule"])
	})

	t.Run("email duplicado", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/users", map[string]any{
			"nome":      "Outra Maria",
			"email":     "maria@zabele.pb.gov.br",
			"senha":     "senha-forte-123",
			"role":      "VISUALIZADOR",
			"tenant_id": zabele.ID,
		}, e.token(sec))
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("listagem recortada pelo tenant", func(t *testing.T) {
		e.seedUser(role.Financeiro, &outro.ID, "")
		rec := e.do(http.MethodGet, "/users", nil, e.token(sec), "X-Tenant", outro.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		var users []repo.Usuario
		require.Nil(t, readEnvelope(t, rec, &users))
		require.NotEmpty(t, users)
		for _, u := range users {
			require.Equal(t, zabele.ID, *u.TenantID)
		}

		rec = e.do(http.MethodGet, "/users?role=FINANCEIRO", nil, e.token(e.super), "X-Tenant", outro.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		users = nil
		require.Nil(t, readEnvelope(t, rec, &users))
		require.Len(t, users, 1)
		require.Equal(t, outro.ID, *users[0].TenantID)
	})

	t.Run("visualizador não lista", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/users", nil, e.token(viewer))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("usuário de outro tenant é indistinguível de inexistente", func(t *testing.T) {
		foreign := e.seedUser(role.Financeiro, &outro.ID, "")
		rec := e.do(http.MethodGet, "/users/"+foreign.ID.String(), nil, e.token(sec))
		require.Equal(t, http.StatusNotFound, rec.Code)
		foreignBody := rec.Body.String()

		rec = e.do(http.MethodGet, "/users/"+uuid.NewString(), nil, e.token(sec))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, foreignBody, rec.Body.String())
	})

	t.Run("secretario não remove a si mesmo", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/users/"+sec.ID.String(), nil, e.token(sec))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("edição e remoção", func(t *testing.T) {
		rec := e.do(http.MethodPatch, "/users/"+viewer.ID.String(), map[string]any{"nome": "Visualizador Renomeado"}, e.token(sec))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated repo.Usuario
		require.Nil(t, readEnvelope(t, rec, &updated))
		require.Equal(t, "Visualizador Renomeado", updated.Nome)

		rec = e.do(http.MethodDelete, "/users/"+viewer.ID.String(), nil, e.token(sec))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = e.do(http.MethodGet, "/users/"+viewer.ID.String(), nil, e.token(e.super))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("id inválido", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/users/abc", nil, e.token(e.super))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTenantRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	for i := 0; i < 3; i++ {
		e.store.AddLancamento(repo.Lancamento{CNPJ: "11111111000111", Ano: 2024, Mes: 1, TpRepasse: "FPM", UF: "PB", Municipio: "Zabelê", ValorBruto: 10, ValorLiquido: 9})
	}

	payload := map[string]any{
		"nome":          "Prefeitura de Zabelê",
		"cnpj":          "11.111.111/0001-11",
		"email_contato": "gabinete@zabele.pb.gov.br",
		"estado":        "PB",
		"secretario": map[string]string{
			"nome":  "José Secretário",
			"email": "jose@zabele.pb.gov.br",
			"senha": "senha-forte-123",
		},
	}

	rec := e.do(http.MethodPost, "/tenants", payload, e.token(e.super))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created service.CreateTenantResult
	require.Nil(t, readEnvelope(t, rec, &created))
	require.Equal(t, int64(3), created.Synced)
	require.Equal(t, "11111111000111", created.Tenant.CNPJ)
	require.NotNil(t, created.Secretario)

	rec = e.do(http.MethodPost, "/tenants", payload, e.token(e.super))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CONFLICT", readEnvelope(t, rec, nil).Code)

	sec, err := e.store.GetUsuarioByEmail(e.ctx, "jose@zabele.pb.gov.br")
	require.NoError(t, err)

	rec = e.do(http.MethodPost, "/tenants", payload, e.token(sec))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/tenants/"+created.Tenant.ID.String(), nil, e.token(sec))
	require.Equal(t, http.StatusOK, rec.Code)

	outro := e.seedTenant("Outro", "33333333000133")
	rec = e.do(http.MethodGet, "/tenants/"+outro.ID.String(), nil, e.token(sec))
	require.Equal(t, http.StatusForbidden, rec.Code)

	e.store.AddLancamento(repo.Lancamento{CNPJ: "22222222000122", Ano: 2024, Mes: 2, TpRepasse: "FPM", UF: "PB", Municipio: "Zabelê", ValorBruto: 10, ValorLiquido: 9})
	rec = e.do(http.MethodPost, "/tenants/"+created.Tenant.ID.String()+"/cnpjs",
		map[string]string{"cnpj": "22.222.222/0001-22", "descricao": "Estadual"}, e.token(e.super))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var bind tenant.BindResult
	require.Nil(t, readEnvelope(t, rec, &bind))
	require.True(t, bind.Created)
	require.Equal(t, int64(1), bind.Synced)

	rec = e.do(http.MethodPost, "/tenants/"+outro.ID.String()+"/cnpjs",
		map[string]string{"cnpj": "22222222000122"}, e.token(e.super))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/tenants/"+created.Tenant.ID.String()+"/sync-lancamentos", nil, e.token(e.super))
	require.Equal(t, http.StatusOK, rec.Code)
	var sync service.SyncResult
	require.Nil(t, readEnvelope(t, rec, &sync))
	require.Equal(t, int64(0), sync.Synced)

	rec = e.do(http.MethodDelete, "/tenants/"+created.Tenant.ID.String(), nil, e.token(e.super))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodDelete, "/tenants/"+outro.ID.String(), nil, e.token(e.super))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResolveTenantRoute(t *testing.T) {
	e := newTestEnv(t, nil)
	zabele := e.seedTenant("Zabelê", "33333333000133")
	suporte := e.seedUser(role.SuporteAdmin, nil, "")
	sec := e.seedUser(role.Secretario, &zabele.ID, "")

	rec := e.do(http.MethodGet, "/tenants/resolve?cnpj=33.333.333/0001-33", nil, e.token(e.super))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got repo.Tenant
	require.Nil(t, readEnvelope(t, rec, &got))
	require.Equal(t, zabele.ID, got.ID)

	cached, err := e.cache.Get(e.ctx, "cnpj:33333333000133")
	require.NoError(t, err)
	require.Equal(t, zabele.ID.String(), cached)

	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=33333333000133", nil, e.token(suporte))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=33333333000133", nil, e.token(sec))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=99999999000199", nil, e.token(e.super))
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(http.MethodGet, "/tenants/resolve", nil, e.token(e.super))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=123", nil, e.token(e.super))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPut, "/tenants/"+zabele.ID.String(), map[string]string{"cnpj": "44.444.444/0001-44"}, e.token(e.super))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=33333333000133", nil, e.token(e.super))
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = e.do(http.MethodGet, "/tenants/resolve?cnpj=44444444000144", nil, e.token(e.super))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateMeRoute(t *testing.T) {
	e := newTestEnv(t, nil)
	zabele := e.seedTenant("Zabelê", "11111111000111")
	viewer := e.seedUser(role.Visualizador, &zabele.ID, "")

	rec := e.do(http.MethodPatch, "/me", map[string]any{"nome": "Maria Visualizadora"}, e.token(viewer))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var me repo.Usuario
	require.Nil(t, readEnvelope(t, rec, &me))
	require.Equal(t, "Maria Visualizadora", me.Nome)

	rec = e.do(http.MethodPatch, "/me", map[string]any{"role": "SECRETARIO"}, e.token(viewer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPatch, "/me", map[string]any{"ativo": false}, e.token(viewer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPatch, "/users/"+viewer.ID.String(), map[string]any{"nome": "Outro Nome"}, e.token(viewer))
	require.Equal(t, http.StatusForbidden, rec.Code)

	got, err := e.store.GetUsuarioByID(e.ctx, viewer.ID)
	require.NoError(t, err)
	require.Equal(t, "Maria Visualizadora", got.Nome)
	require.True(t, got.Ativo)
}

func TestLancamentoRoutes(t *testing.T) {
	e := newTestEnv(t, nil)
	zabele := e.seedTenant("Zabelê", "11111111000111")
	outro := e.seedTenant("Outro", "33333333000133")

	mine := e.store.AddLancamento(repo.Lancamento{TenantID: &zabele.ID, CNPJ: zabele.CNPJ, Ano: 2024, Mes: 5, TpRepasse: "FPM", UF: "PB", Municipio: "Zabelê", ValorBruto: 100, ValorLiquido: 80})
	theirs := e.store.AddLancamento(repo.Lancamento{TenantID: &outro.ID, CNPJ: outro.CNPJ, Ano: 2023, Mes: 7, TpRepasse: "FUNDEB", UF: "PE", Municipio: "Outro", ValorBruto: 50, ValorLiquido: 40})
	viewer := e.seedUser(role.Visualizador, &zabele.ID, "")

	t.Run("tenant ignora X-Tenant alheio", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/lancamentos", nil, e.token(viewer), "X-Tenant", outro.ID.String())
		require.Equal(t, http.StatusOK, rec.Code)
		var page service.LancamentoPage
		require.Nil(t, readEnvelope(t, rec, &page))
		require.Equal(t, int64(1), page.Total)
		require.Equal(t, mine.ID, page.Data[0].ID)
	})

	t.Run("plataforma estreita pelo tenant_id", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/lancamentos?tenant_id="+outro.ID.String(), nil, e.token(e.super))
		require.Equal(t, http.StatusOK, rec.Code)
		var page service.LancamentoPage
		require.Nil(t, readEnvelope(t, rec, &page))
		require.Equal(t, int64(1), page.Total)
		require.Equal(t, theirs.ID, page.Data[0].ID)

		rec = e.do(http.MethodGet, "/lancamentos?sortBy=mes&sortOrder=ASC&limit=10", nil, e.token(e.super))
		require.Equal(t, http.StatusOK, rec.Code)
		page = service.LancamentoPage{}
		require.Nil(t, readEnvelope(t, rec, &page))
		require.Equal(t, int64(2), page.Total)
		require.Equal(t, 10, page.Limit)
		require.Equal(t, mine.ID, page.Data[0].ID)
	})

	t.Run("lançamento de outro tenant não existe", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/lancamentos/"+theirs.ID.String(), nil, e.token(viewer))
		require.Equal(t, http.StatusNotFound, rec.Code)

		rec = e.do(http.MethodGet, "/lancamentos/"+mine.ID.String(), nil, e.token(viewer))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("estatísticas", func(t *testing.T) {
		rec := e.do(http.MethodGet, "/lancamentos/stats", nil, e.token(viewer))
		require.Equal(t, http.StatusOK, rec.Code)
		var stats repo.LancamentoStats
		require.Nil(t, readEnvelope(t, rec, &stats))
		require.Equal(t, int64(1), stats.TotalLancamentos)
		require.Equal(t, []int{2024}, stats.Anos)
	})

	t.Run("filtros inválidos", func(t *testing.T) {
		for _, q := range []string{"ano=1900", "ano=abc", "mes=13", "limit=500", "page=0", "sortBy=senha", "uf=PBA"} {
			rec := e.do(http.MethodGet, "/lancamentos?"+q, nil, e.token(viewer))
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})
}
