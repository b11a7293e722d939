package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/gestaozabele/lancamentos/internal/http/middleware"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/service"
)

// CreateUser cria conta conforme a hierarquia de papéis.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload service.CreateUserInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	user, err := h.users.Create(r.Context(), actor.ID, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, user)
}

// ListUsers lista as contas visíveis ao ator.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := service.UserListFilter{TenantID: httpmiddleware.GetRequestedTenant(r.Context())}

	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("role")); raw != "" {
		rl, err := role.Parse(raw)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		filter.Role = &rl
	}
	if raw := strings.TrimSpace(q.Get("ativo")); raw != "" {
		ativo, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "ativo deve ser true ou false", nil)
			return
		}
		filter.Ativo = &ativo
	}

	actor, _ := httpmiddleware.GetActor(r.Context())
	users, err := h.users.List(r.Context(), actor.ID, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, users)
}

// GetUser devolve uma conta.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	user, err := h.users.Get(r.Context(), actor.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// UpdateUser aplica edição parcial.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var payload service.UpdateUserInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	user, err := h.users.Update(r.Context(), actor.ID, id, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// UpdateMe aplica a edição da própria conta; papel, status e tenant seguem a política.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var payload service.UpdateUserInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	user, err := h.users.Update(r.Context(), actor.ID, actor.ID, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// DeleteUser remove uma conta.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	if err := h.users.Delete(r.Context(), actor.ID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Usuário deletado com sucesso"})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", param+" inválido", nil)
		return uuid.Nil, false
	}
	return id, true
}
