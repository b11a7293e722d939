package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	httpmiddleware "github.com/gestaozabele/lancamentos/internal/http/middleware"
	"github.com/gestaozabele/lancamentos/internal/service"
)

// ListLancamentos lista os lançamentos do recorte do ator com filtros e paginação.
func (h *Handler) ListLancamentos(w http.ResponseWriter, r *http.Request) {
	q, ok := lancamentoQuery(w, r)
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	page, err := h.lancamentos.List(r.Context(), actor.ID, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, page)
}

// LancamentoStats resume os lançamentos com os mesmos filtros da listagem.
func (h *Handler) LancamentoStats(w http.ResponseWriter, r *http.Request) {
	q, ok := lancamentoQuery(w, r)
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	stats, err := h.lancamentos.Stats(r.Context(), actor.ID, q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetLancamento(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := httpmiddleware.GetActor(r.Context())

	l, err := h.lancamentos.Get(r.Context(), actor.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, l)
}

// lancamentoQuery lê os filtros aceitando camelCase e snake_case.
func lancamentoQuery(w http.ResponseWriter, r *http.Request) (service.LancamentoQuery, bool) {
	values := r.URL.Query()
	q := service.LancamentoQuery{
		TenantID:  httpmiddleware.GetRequestedTenant(r.Context()),
		TpRepasse: param(values, "tpRepasse", "tp_repasse"),
		Banco:     param(values, "banco"),
		Agencia:   param(values, "agencia"),
		Conta:     param(values, "conta"),
		Search:    param(values, "search"),
		CNPJ:      param(values, "cnpj"),
		Municipio: param(values, "municipio"),
		UF:        param(values, "uf"),
		SortBy:    param(values, "sortBy", "sort_by"),
		SortOrder: param(values, "sortOrder", "sort_order"),
	}

	ints := []struct {
		name string
		dst  **int
	}{
		{"ano", &q.Ano},
		{"mes", &q.Mes},
	}
	for _, f := range ints {
		raw := param(values, f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", f.name+" deve ser numérico", nil)
			return q, false
		}
		*f.dst = &v
	}

	for name, dst := range map[string]*int{"page": &q.Page, "limit": &q.Limit} {
		raw := param(values, name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			WriteError(w, http.StatusBadRequest, "VALIDATION", name+" deve ser inteiro positivo", nil)
			return q, false
		}
		*dst = v
	}
	return q, true
}

func param(values url.Values, names ...string) string {
	for _, n := range names {
		if v := strings.TrimSpace(values.Get(n)); v != "" {
			return v
		}
	}
	return ""
}
