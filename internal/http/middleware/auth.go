package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/policy"
	"github.com/gestaozabele/lancamentos/internal/role"
)

type contextKey string

const (
	ContextKeyActor  contextKey = "actor"
	ContextKeyEmail  contextKey = "email"
	ContextKeyTenant contextKey = "tenant"
	ContextKeyScope  contextKey = "scope"
)

// Auth valida o JWT de acesso e injeta o ator no contexto.
func Auth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente", nil)
				return
			}

			sub, err := jwtManager.ParseAndValidate(strings.TrimSpace(parts[1]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "token inválido", nil)
				return
			}

			actorRole, err := role.Parse(sub.Role)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "AUTH", "papel inválido no token", nil)
				return
			}

			actor := policy.Actor{ID: sub.ID, Role: actorRole, TenantID: sub.TenantID}
			if info, ok := r.Context().Value(contextKeyInfo).(*requestInfo); ok {
				info.actor = &actor
			}
			ctx := WithActor(r.Context(), actor)
			ctx = context.WithValue(ctx, ContextKeyEmail, sub.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor injeta o ator no contexto.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor recupera o ator autenticado.
func GetActor(ctx context.Context) (policy.Actor, bool) {
	actor, ok := ctx.Value(ContextKeyActor).(policy.Actor)
	return actor, ok
}

// GetEmail recupera o email do token.
func GetEmail(ctx context.Context) string {
	val, _ := ctx.Value(ContextKeyEmail).(string)
	return val
}

// RequireRoles garante que o ator possua um dos papéis informados.
func RequireRoles(allowed ...role.Role) func(http.Handler) http.Handler {
	set := make(map[role.Role]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "AUTH", "token ausente", nil)
				return
			}
			if _, ok := set[actor.Role]; !ok {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "papel sem acesso a este recurso",
					map[string]any{"rule": "route.role", "role": actor.Role})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data":  nil,
		"error": body,
	})
}
