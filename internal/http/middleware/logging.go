package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/policy"
)

const contextKeyInfo contextKey = "request_info"

// requestInfo é preenchido pelos middlewares internos para o log da requisição.
type requestInfo struct {
	actor *policy.Actor
}

// Logging escreve logs estruturados por requisição e alimenta as métricas HTTP.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		info := &requestInfo{}

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), contextKeyInfo, info)))

		dur := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(dur.Seconds())

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event = event.Str("method", r.Method).Str("path", r.URL.Path).Str("route", route).
			Int("status", status).Dur("duration", dur)

		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			event = event.Str("request_id", reqID)
		}
		event = event.Str("ip", realIPFromRequest(r))

		if a := info.actor; a != nil {
			event = event.Str("actor_id", a.ID.String()).Str("role", a.Role.String())
			if a.TenantID != nil {
				event = event.Str("tenant_id", a.TenantID.String())
			}
		}

		if ua := r.Header.Get("User-Agent"); ua != "" {
			event = event.Str("user_agent", ua)
		}

		event.Msg("http_request")
	})
}
