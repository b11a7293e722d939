package http

import (
	"net/http"
	"strings"

	httpmiddleware "github.com/gestaozabele/lancamentos/internal/http/middleware"
	"github.com/gestaozabele/lancamentos/internal/service"
)

// CreateTenant cadastra o município com o SECRETARIO inicial.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var payload service.CreateTenantInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	result, err := h.tenants.Create(r.Context(), actor.ID, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	actor, _ := httpmiddleware.GetActor(r.Context())
	tenants, err := h.tenants.List(r.Context(), actor.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tenants)
}

// ResolveTenantCnpj informa o tenant dono do CNPJ (?cnpj=).
func (h *Handler) ResolveTenantCnpj(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("cnpj"))
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "cnpj obrigatório", nil)
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	t, err := h.tenants.ResolveCnpj(r.Context(), actor.ID, raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	t, err := h.tenants.Get(r.Context(), actor.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var payload service.UpdateTenantInput
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	t, err := h.tenants.Update(r.Context(), actor.ID, id, payload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// DeleteTenant remove o tenant, seus usuários e CNPJs adicionais.
func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	if err := h.tenants.Delete(r.Context(), actor.ID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTenantCnpj vincula um CNPJ adicional e sincroniza os órfãos dele.
func (h *Handler) AddTenantCnpj(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var payload struct {
		CNPJ      string `json:"cnpj"`
		Descricao string `json:"descricao"`
	}
	if !decodeJSON(w, r, &payload) {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	result, err := h.tenants.AddCnpj(r.Context(), actor.ID, id, payload.CNPJ, payload.Descricao)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, result)
}

// SyncTenantLancamentos vincula ao tenant os lançamentos órfãos de todos os seus CNPJs.
func (h *Handler) SyncTenantLancamentos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	result, err := h.tenants.SyncLancamentos(r.Context(), actor.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
