package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/lancamentos/internal/isolation"
)

const lancamentoColumns = `id, tenant_id, cnpj, nu_processo, nu_portaria, dt_portaria, ano, mes,
        nu_competencia, dia_pagamento, tp_repasse, nu_ob, co_tipo_recurso, tp_recurso_prop,
        recurso_covid_ou_normal, uf, co_municipio_ibge, municipio, entidade, bloco, componente,
        programa, nu_proposta, banco, agencia, conta, valor_bruto, desconto, valor_liquido,
        dt_saldo_conta, vl_saldo_conta, marcador_emenda_covid, criado_em, atualizado_em`

func scanLancamento(row pgx.Row) (Lancamento, error) {
	var l Lancamento
	err := row.Scan(&l.ID, &l.TenantID, &l.CNPJ, &l.NuProcesso, &l.NuPortaria, &l.DtPortaria, &l.Ano, &l.Mes,
		&l.NuCompetencia, &l.DiaPagamento, &l.TpRepasse, &l.NuOB, &l.CoTipoRecurso, &l.TpRecursoProp,
		&l.RecursoCovidOuNormal, &l.UF, &l.CoMunicipioIBGE, &l.Municipio, &l.Entidade, &l.Bloco, &l.Componente,
		&l.Programa, &l.NuProposta, &l.Banco, &l.Agencia, &l.Conta, &l.ValorBruto, &l.Desconto, &l.ValorLiquido,
		&l.DtSaldoConta, &l.VlSaldoConta, &l.MarcadorEmendaCovid, &l.CriadoEm, &l.AtualizadoEm)
	return l, err
}

// AssignOrphans só toca linhas com tenant_id nulo; linhas já vinculadas nunca mudam.
func (q *Queries) AssignOrphans(ctx context.Context, cnpj string, tenantID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
        UPDATE lancamentos
        SET tenant_id = $2,
            atualizado_em = now()
        WHERE cnpj = $1 AND tenant_id IS NULL`, cnpj, tenantID)
	if err != nil {
		return 0, translate(err, "lançamento")
	}
	return tag.RowsAffected(), nil
}

// CountLancamentosByTenant conta lançamentos vinculados ao tenant.
func (q *Queries) CountLancamentosByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM lancamentos WHERE tenant_id = $1`, tenantID).Scan(&n)
	return n, err
}

// GetLancamento busca um lançamento dentro do recorte; fora dele é NotFound.
func (q *Queries) GetLancamento(ctx context.Context, id uuid.UUID, scope isolation.Scope) (Lancamento, error) {
	query := `SELECT ` + lancamentoColumns + ` FROM lancamentos WHERE `
	args := []any{}
	if cond, scopeArgs := scope.Where("tenant_id", 1); cond != "" {
		query += cond + ` AND `
		args = append(args, scopeArgs...)
	}
	args = append(args, id)
	query += fmt.Sprintf("id = $%d", len(args))

	l, err := scanLancamento(q.db.QueryRow(ctx, query, args...))
	return l, translate(err, "lançamento")
}

// ListLancamentos devolve a página pedida e o total de linhas do filtro.
func (q *Queries) ListLancamentos(ctx context.Context, filter LancamentoFilter) ([]Lancamento, int64, error) {
	where, args := lancamentoWhere(filter, whereAll)

	var total int64
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM lancamentos`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := SortColumns[filter.SortBy]
	if !ok {
		column = "ano"
	}
	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	order := fmt.Sprintf(" ORDER BY %s %s", column, dir)
	if column == "ano" {
		order += ", mes " + dir
	}
	order += ", id"

	n := len(args)
	query := `SELECT ` + lancamentoColumns + ` FROM lancamentos` + where + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := q.db.Query(ctx, query, append(args, filter.Limit, filter.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Lancamento
	for rows.Next() {
		l, err := scanLancamento(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

// LancamentoStats agrega os lançamentos do filtro. Anos disponíveis ignoram ano e mês;
// o ranking de tipos ignora o tipo filtrado e o de contas ignora a conta filtrada.
func (q *Queries) LancamentoStats(ctx context.Context, filter LancamentoFilter) (LancamentoStats, error) {
	stats := LancamentoStats{Anos: []int{}, TiposRepasse: []TipoRepasseTotal{}, ContasBancarias: []ContaBancariaTotal{}}

	where, args := lancamentoWhere(filter, whereAll)
	err := q.db.QueryRow(ctx, `
        SELECT count(*), COALESCE(sum(valor_bruto), 0)::float8, COALESCE(sum(valor_liquido), 0)::float8
        FROM lancamentos`+where, args...).
		Scan(&stats.TotalLancamentos, &stats.ValorTotalBruto, &stats.ValorTotalLiquido)
	if err != nil {
		return stats, fmt.Errorf("stats totais: %w", err)
	}

	var periodo Periodo
	err = q.db.QueryRow(ctx, `SELECT ano, mes FROM lancamentos`+where+` ORDER BY ano DESC, mes DESC LIMIT 1`, args...).
		Scan(&periodo.Ano, &periodo.Mes)
	switch {
	case err == nil:
		stats.PeriodoMaisRecente = &periodo
	case !errors.Is(err, pgx.ErrNoRows):
		return stats, fmt.Errorf("stats período: %w", err)
	}

	where, args = lancamentoWhere(filter, whereAll&^whereTipo)
	rows, err := q.db.Query(ctx, `
        SELECT tp_repasse, count(*) AS total
        FROM lancamentos`+where+`
        GROUP BY tp_repasse
        ORDER BY total DESC, tp_repasse
        LIMIT 10`, args...)
	if err != nil {
		return stats, fmt.Errorf("stats tipos: %w", err)
	}
	for rows.Next() {
		var t TipoRepasseTotal
		if err := rows.Scan(&t.Tipo, &t.Total); err != nil {
			rows.Close()
			return stats, err
		}
		stats.TiposRepasse = append(stats.TiposRepasse, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	where, args = lancamentoWhere(filter, whereAll&^whereConta)
	where = appendCond(where, "banco IS NOT NULL")
	rows, err = q.db.Query(ctx, `
        SELECT banco, COALESCE(agencia, ''), COALESCE(conta, ''), count(*) AS total
        FROM lancamentos`+where+`
        GROUP BY banco, agencia, conta
        ORDER BY total DESC, banco
        LIMIT 10`, args...)
	if err != nil {
		return stats, fmt.Errorf("stats contas: %w", err)
	}
	for rows.Next() {
		var c ContaBancariaTotal
		if err := rows.Scan(&c.Banco, &c.Agencia, &c.Conta, &c.Total); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ContasBancarias = append(stats.ContasBancarias, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	where, args = lancamentoWhere(filter, whereAll&^wherePeriodo)
	rows, err = q.db.Query(ctx, `SELECT DISTINCT ano FROM lancamentos`+where+` ORDER BY ano DESC`, args...)
	if err != nil {
		return stats, fmt.Errorf("stats anos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ano int
		if err := rows.Scan(&ano); err != nil {
			return stats, err
		}
		stats.Anos = append(stats.Anos, ano)
	}
	return stats, rows.Err()
}

type whereParts uint8

const (
	wherePeriodo whereParts = 1 << iota
	whereTipo
	whereConta
	whereOutros

	whereAll = wherePeriodo | whereTipo | whereConta | whereOutros
)

// lancamentoWhere monta o WHERE com o recorte de tenant sempre em primeiro lugar.
func lancamentoWhere(f LancamentoFilter, parts whereParts) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, values ...any) {
		placeholders := make([]any, len(values))
		for i, v := range values {
			args = append(args, v)
			placeholders[i] = len(args)
		}
		conds = append(conds, fmt.Sprintf(format, placeholders...))
	}

	if cond, scopeArgs := f.Scope.Where("tenant_id", 1); cond != "" {
		conds = append(conds, cond)
		args = append(args, scopeArgs...)
	}

	if parts&wherePeriodo != 0 {
		if f.Ano != nil {
			add("ano = $%d", *f.Ano)
		}
		if f.Mes != nil {
			add("mes = $%d", *f.Mes)
		}
	}
	if parts&whereTipo != 0 && f.TpRepasse != "" {
		add("tp_repasse = $%d", f.TpRepasse)
	}
	if parts&whereConta != 0 && f.HasConta() {
		add("banco = $%d AND agencia = $%d AND conta = $%d", f.Banco, f.Agencia, f.Conta)
	}
	if parts&whereOutros != 0 {
		if f.Search != "" {
			add("(municipio ILIKE $%d OR entidade ILIKE $%[1]d)", "%"+f.Search+"%")
		}
		if f.CNPJ != "" {
			add("cnpj = $%d", f.CNPJ)
		}
		if f.Municipio != "" {
			add("municipio ILIKE $%d", "%"+f.Municipio+"%")
		}
		if f.UF != "" {
			add("uf = $%d", strings.ToUpper(f.UF))
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func appendCond(where, cond string) string {
	if where == "" {
		return " WHERE " + cond
	}
	return where + " AND " + cond
}
