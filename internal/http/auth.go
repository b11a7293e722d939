package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	httpmiddleware "github.com/gestaozabele/lancamentos/internal/http/middleware"
	"github.com/gestaozabele/lancamentos/internal/service"
)

const refreshCookieName = "lancamentos_refresh"

type refreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// Login autentica por email e senha.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
		Senha string `json:"senha"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}

	if strings.TrimSpace(payload.Email) == "" || strings.TrimSpace(payload.Senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "email e senha são obrigatórios", nil)
		return
	}

	result, err := h.auth.Login(r.Context(), payload.Email, payload.Senha)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh troca o refresh token (corpo ou cookie) por um novo par de tokens.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshFromRequest(r)
	if token == "" {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		h.handleAuthError(w, r, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga o refresh token atual. Não exige access token válido.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := refreshFromRequest(r); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna a conta do portador do token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := httpmiddleware.GetActor(r.Context())
	user, err := h.auth.Me(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrRefreshInvalid):
		h.clearRefreshCookie(w)
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		writeServiceError(w, r, err)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, time.Now().Add(h.auth.RefreshTTL()))
	WriteJSON(w, http.StatusOK, result)
}

// refreshFromRequest aceita o token no corpo JSON ou no cookie.
func refreshFromRequest(r *http.Request) string {
	var payload refreshPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeBody(r, &payload); err == nil && strings.TrimSpace(payload.RefreshToken) != "" {
			return strings.TrimSpace(payload.RefreshToken)
		}
	}
	if c, err := r.Cookie(refreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, h.refreshCookie(token, expires, 0))
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, h.refreshCookie("", time.Time{}, -1))
}

func (h *Handler) refreshCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/auth",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !h.devCookies,
		SameSite: sameSite,
	}
}
