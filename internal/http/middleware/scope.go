package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/isolation"
)

// TenantScope lê o tenant pedido (X-Tenant ou ?tenant_id) e calcula o recorte efetivo
// do ator. O pedido só estreita a visão de papéis de plataforma.
func TenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := GetActor(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "AUTH", "token ausente", nil)
			return
		}

		raw := strings.TrimSpace(r.Header.Get("X-Tenant"))
		if raw == "" {
			raw = strings.TrimSpace(r.URL.Query().Get("tenant_id"))
		}

		var requested *uuid.UUID
		if raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "VALIDATION", "tenant inválido", nil)
				return
			}
			requested = &id
		}

		ctx := context.WithValue(r.Context(), ContextKeyTenant, requested)
		ctx = context.WithValue(ctx, ContextKeyScope, isolation.Effective(actor, requested))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestedTenant devolve o tenant pedido pelo cliente, se houver.
func GetRequestedTenant(ctx context.Context) *uuid.UUID {
	val, _ := ctx.Value(ContextKeyTenant).(*uuid.UUID)
	return val
}

// GetScope devolve o recorte calculado por TenantScope.
func GetScope(ctx context.Context) (isolation.Scope, bool) {
	val, ok := ctx.Value(ContextKeyScope).(isolation.Scope)
	return val, ok
}
