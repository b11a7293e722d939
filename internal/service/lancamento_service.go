package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/cnpj"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	minAno       = 1999
	maxAno       = 2050
)

// LancamentoService atende as leituras de lançamentos sempre recortadas pelo tenant do ator.
type LancamentoService struct {
	store repo.Store
}

// NewLancamentoService cria o serviço de leitura.
func NewLancamentoService(store repo.Store) *LancamentoService {
	return &LancamentoService{store: store}
}

// LancamentoQuery reúne os parâmetros aceitos pela listagem e pelas estatísticas.
// TenantID só é considerado para papéis de plataforma.
type LancamentoQuery struct {
	TenantID  *uuid.UUID
	Ano       *int
	Mes       *int
	TpRepasse string
	Banco     string
	Agencia   string
	Conta     string
	Search    string
	CNPJ      string
	Municipio string
	UF        string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// LancamentoPage é uma página da listagem.
type LancamentoPage struct {
	Data       []repo.Lancamento `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}

func (q LancamentoQuery) filter(scope isolation.Scope) (repo.LancamentoFilter, error) {
	f := repo.LancamentoFilter{
		Scope:     scope,
		Ano:       q.Ano,
		Mes:       q.Mes,
		TpRepasse: strings.TrimSpace(q.TpRepasse),
		Banco:     strings.TrimSpace(q.Banco),
		Agencia:   strings.TrimSpace(q.Agencia),
		Conta:     strings.TrimSpace(q.Conta),
		Search:    strings.TrimSpace(q.Search),
		Municipio: strings.TrimSpace(q.Municipio),
		UF:        strings.ToUpper(strings.TrimSpace(q.UF)),
		SortBy:    "ano",
		SortDesc:  true,
		Page:      1,
		Limit:     defaultLimit,
	}

	if q.Ano != nil && (*q.Ano < minAno || *q.Ano > maxAno) {
		return f, apperr.Invalid("ano deve estar entre %d e %d", minAno, maxAno)
	}
	if q.Mes != nil && (*q.Mes < 1 || *q.Mes > 12) {
		return f, apperr.Invalid("mes deve estar entre 1 e 12")
	}
	if f.UF != "" && len(f.UF) != 2 {
		return f, apperr.Invalid("uf deve ter 2 caracteres")
	}
	if c := strings.TrimSpace(q.CNPJ); c != "" {
		digits, err := cnpj.Normalize(c)
		if err != nil {
			return f, err
		}
		f.CNPJ = digits
	}

	if q.SortBy != "" {
		if _, ok := repo.SortColumns[q.SortBy]; !ok {
			return f, apperr.Invalid("ordenação não suportada: %q", q.SortBy)
		}
		f.SortBy = q.SortBy
	}
	switch strings.ToUpper(q.SortOrder) {
	case "", "DESC":
	case "ASC":
		f.SortDesc = false
	default:
		return f, apperr.Invalid("sort_order deve ser ASC ou DESC")
	}

	switch {
	case q.Page < 0:
		return f, apperr.Invalid("page deve ser maior ou igual a 1")
	case q.Page > 0:
		f.Page = q.Page
	}
	switch {
	case q.Limit < 0 || q.Limit > maxLimit:
		return f, apperr.Invalid("limit deve estar entre 1 e %d", maxLimit)
	case q.Limit > 0:
		f.Limit = q.Limit
	}
	return f, nil
}

// List devolve a página de lançamentos visível ao ator.
func (s *LancamentoService) List(ctx context.Context, actorID uuid.UUID, q LancamentoQuery) (LancamentoPage, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return LancamentoPage{}, err
	}
	f, err := q.filter(isolation.Effective(actor, q.TenantID))
	if err != nil {
		return LancamentoPage{}, err
	}

	items, total, err := s.store.ListLancamentos(ctx, f)
	if err != nil {
		return LancamentoPage{}, err
	}
	if items == nil {
		items = []repo.Lancamento{}
	}
	pages := int((total + int64(f.Limit) - 1) / int64(f.Limit))
	return LancamentoPage{Data: items, Total: total, Page: f.Page, Limit: f.Limit, TotalPages: pages}, nil
}

// Get devolve um lançamento; fora do recorte do ator ele é tratado como inexistente.
func (s *LancamentoService) Get(ctx context.Context, actorID, id uuid.UUID) (repo.Lancamento, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return repo.Lancamento{}, err
	}
	return s.store.GetLancamento(ctx, id, isolation.ScopeFilter(actor))
}

// Stats resume os lançamentos visíveis com os mesmos filtros da listagem.
func (s *LancamentoService) Stats(ctx context.Context, actorID uuid.UUID, q LancamentoQuery) (repo.LancamentoStats, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return repo.LancamentoStats{}, err
	}
	f, err := q.filter(isolation.Effective(actor, q.TenantID))
	if err != nil {
		return repo.LancamentoStats{}, err
	}
	stats, err := s.store.LancamentoStats(ctx, f)
	if err != nil {
		return repo.LancamentoStats{}, err
	}
	if stats.Anos == nil {
		stats.Anos = []int{}
	}
	if stats.TiposRepasse == nil {
		stats.TiposRepasse = []repo.TipoRepasseTotal{}
	}
	if stats.ContasBancarias == nil {
		stats.ContasBancarias = []repo.ContaBancariaTotal{}
	}
	return stats, nil
}
