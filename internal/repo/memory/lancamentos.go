package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

func (s *Store) AssignOrphans(_ context.Context, cnpj string, tenantID uuid.UUID) (int64, error) {
	defer s.lock()()
	if err := s.fail("AssignOrphans"); err != nil {
		return 0, err
	}
	var n int64
	for id, l := range s.st.lancamentos {
		if l.CNPJ != cnpj || l.TenantID != nil {
			continue
		}
		tid := tenantID
		l.TenantID = &tid
		l.AtualizadoEm = s.Now()
		s.st.lancamentos[id] = l
		n++
	}
	return n, nil
}

func (s *Store) CountLancamentosByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	defer s.lock()()
	var n int64
	for _, l := range s.st.lancamentos {
		if l.TenantID != nil && *l.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetLancamento(_ context.Context, id uuid.UUID, scope isolation.Scope) (repo.Lancamento, error) {
	defer s.lock()()
	l, ok := s.st.lancamentos[id]
	if !ok || !scope.Allows(l.TenantID) {
		return repo.Lancamento{}, apperr.NotFound("lançamento não encontrado")
	}
	return l, nil
}

func (s *Store) ListLancamentos(_ context.Context, filter repo.LancamentoFilter) ([]repo.Lancamento, int64, error) {
	defer s.lock()()
	matched := s.filterLancamentos(filter, partAll)
	sortLancamentos(matched, filter.SortBy, filter.SortDesc)

	total := int64(len(matched))
	start := filter.Offset()
	if start >= len(matched) {
		return nil, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (s *Store) LancamentoStats(_ context.Context, filter repo.LancamentoFilter) (repo.LancamentoStats, error) {
	defer s.lock()()
	stats := repo.LancamentoStats{Anos: []int{}, TiposRepasse: []repo.TipoRepasseTotal{}, ContasBancarias: []repo.ContaBancariaTotal{}}

	for _, l := range s.filterLancamentos(filter, partAll) {
		stats.TotalLancamentos++
		stats.ValorTotalBruto += l.ValorBruto
		stats.ValorTotalLiquido += l.ValorLiquido
		p := stats.PeriodoMaisRecente
		if p == nil || l.Ano > p.Ano || (l.Ano == p.Ano && l.Mes > p.Mes) {
			stats.PeriodoMaisRecente = &repo.Periodo{Ano: l.Ano, Mes: l.Mes}
		}
	}

	tipos := map[string]int64{}
	for _, l := range s.filterLancamentos(filter, partAll&^partTipo) {
		tipos[l.TpRepasse]++
	}
	for tipo, total := range tipos {
		stats.TiposRepasse = append(stats.TiposRepasse, repo.TipoRepasseTotal{Tipo: tipo, Total: total})
	}
	sort.Slice(stats.TiposRepasse, func(i, j int) bool {
		a, b := stats.TiposRepasse[i], stats.TiposRepasse[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Tipo < b.Tipo
	})
	if len(stats.TiposRepasse) > 10 {
		stats.TiposRepasse = stats.TiposRepasse[:10]
	}

	contas := map[repo.ContaBancariaTotal]int64{}
	for _, l := range s.filterLancamentos(filter, partAll&^partConta) {
		if l.Banco == nil {
			continue
		}
		contas[repo.ContaBancariaTotal{Banco: *l.Banco, Agencia: deref(l.Agencia), Conta: deref(l.Conta)}]++
	}
	for k, total := range contas {
		k.Total = total
		stats.ContasBancarias = append(stats.ContasBancarias, k)
	}
	sort.Slice(stats.ContasBancarias, func(i, j int) bool {
		a, b := stats.ContasBancarias[i], stats.ContasBancarias[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Banco+a.Agencia+a.Conta < b.Banco+b.Agencia+b.Conta
	})
	if len(stats.ContasBancarias) > 10 {
		stats.ContasBancarias = stats.ContasBancarias[:10]
	}

	anos := map[int]struct{}{}
	for _, l := range s.filterLancamentos(filter, partAll&^partPeriodo) {
		anos[l.Ano] = struct{}{}
	}
	for ano := range anos {
		stats.Anos = append(stats.Anos, ano)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(stats.Anos)))

	return stats, nil
}

type parts uint8

const (
	partPeriodo parts = 1 << iota
	partTipo
	partConta
	partOutros

	partAll = partPeriodo | partTipo | partConta | partOutros
)

func (s *Store) filterLancamentos(f repo.LancamentoFilter, p parts) []repo.Lancamento {
	var out []repo.Lancamento
	for _, l := range s.st.lancamentos {
		if matches(l, f, p) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l repo.Lancamento, f repo.LancamentoFilter, p parts) bool {
	if !f.Scope.Allows(l.TenantID) {
		return false
	}
	if p&partPeriodo != 0 {
		if f.Ano != nil && l.Ano != *f.Ano {
			return false
		}
		if f.Mes != nil && l.Mes != *f.Mes {
			return false
		}
	}
	if p&partTipo != 0 && f.TpRepasse != "" && l.TpRepasse != f.TpRepasse {
		return false
	}
	if p&partConta != 0 && f.HasConta() {
		if deref(l.Banco) != f.Banco || deref(l.Agencia) != f.Agencia || deref(l.Conta) != f.Conta {
			return false
		}
	}
	if p&partOutros != 0 {
		if f.Search != "" && !containsFold(l.Municipio, f.Search) && !containsFold(deref(l.Entidade), f.Search) {
			return false
		}
		if f.CNPJ != "" && l.CNPJ != f.CNPJ {
			return false
		}
		if f.Municipio != "" && !containsFold(l.Municipio, f.Municipio) {
			return false
		}
		if f.UF != "" && l.UF != strings.ToUpper(f.UF) {
			return false
		}
	}
	return true
}

func sortLancamentos(items []repo.Lancamento, sortBy string, desc bool) {
	cmp := func(a, b repo.Lancamento) int {
		switch sortBy {
		case "mes":
			return a.Mes - b.Mes
		case "tp_repasse":
			return strings.Compare(a.TpRepasse, b.TpRepasse)
		case "municipio":
			return strings.Compare(a.Municipio, b.Municipio)
		case "uf":
			return strings.Compare(a.UF, b.UF)
		case "valor_bruto":
			return compareFloat(a.ValorBruto, b.ValorBruto)
		case "valor_liquido":
			return compareFloat(a.ValorLiquido, b.ValorLiquido)
		case "criado_em":
			return a.CriadoEm.Compare(b.CriadoEm)
		default:
			if a.Ano != b.Ano {
				return a.Ano - b.Ano
			}
			return a.Mes - b.Mes
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := cmp(items[i], items[j])
		if c == 0 {
			return items[i].ID.String() < items[j].ID.String()
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
