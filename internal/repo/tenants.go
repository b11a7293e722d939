package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/lancamentos/internal/isolation"
)

const tenantColumns = `id, nome, cnpj, email_contato, cidade, estado, ativo,
        criado_em, atualizado_em, criado_por, atualizado_por`

func scanTenant(row pgx.Row) (Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Nome, &t.CNPJ, &t.EmailContato, &t.Cidade, &t.Estado, &t.Ativo,
		&t.CriadoEm, &t.AtualizadoEm, &t.CriadoPor, &t.AtualizadoPor)
	return t, err
}

func scanTenantCNPJ(row pgx.Row) (TenantCNPJ, error) {
	var c TenantCNPJ
	err := row.Scan(&c.ID, &c.TenantID, &c.CNPJ, &c.Descricao, &c.CriadoEm)
	return c, err
}

// GetTenantByID busca tenant pelo identificador.
func (q *Queries) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	t, err := scanTenant(row)
	return t, translate(err, "tenant")
}

// ListTenants devolve os tenants visíveis no recorte, mais recentes primeiro.
func (q *Queries) ListTenants(ctx context.Context, scope isolation.Scope) ([]Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	cond, args := scope.Where("id", 1)
	if cond != "" {
		query += ` WHERE ` + cond
	}
	query += ` ORDER BY criado_em DESC`

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// CreateTenant insere o tenant. CNPJ já vinculado vira Conflict.
func (q *Queries) CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO tenants (nome, cnpj, email_contato, cidade, estado, ativo, criado_por, atualizado_por)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        RETURNING `+tenantColumns,
		arg.Nome, arg.CNPJ, arg.EmailContato, arg.Cidade, arg.Estado, arg.Ativo, arg.CriadoPor)
	t, err := scanTenant(row)
	return t, translate(err, "tenant")
}

// UpdateTenant grava os campos mutáveis do tenant.
func (q *Queries) UpdateTenant(ctx context.Context, arg UpdateTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, `
        UPDATE tenants
        SET nome = $2,
            cnpj = $3,
            email_contato = $4,
            cidade = $5,
            estado = $6,
            ativo = $7,
            atualizado_por = $8,
            atualizado_em = now()
        WHERE id = $1
        RETURNING `+tenantColumns,
		arg.ID, arg.Nome, arg.CNPJ, arg.EmailContato, arg.Cidade, arg.Estado, arg.Ativo, arg.AtualizadoPor)
	t, err := scanTenant(row)
	return t, translate(err, "tenant")
}

// DeleteTenant remove o tenant; os CNPJs adicionais caem em cascata.
func (q *Queries) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return translate(err, "tenant")
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "tenant")
	}
	return nil
}

// ListTenantCNPJs lista os CNPJs adicionais do tenant.
func (q *Queries) ListTenantCNPJs(ctx context.Context, tenantID uuid.UUID) ([]TenantCNPJ, error) {
	rows, err := q.db.Query(ctx, `
        SELECT id, tenant_id, cnpj, descricao, criado_em
        FROM tenant_cnpjs
        WHERE tenant_id = $1
        ORDER BY criado_em`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cnpjs []TenantCNPJ
	for rows.Next() {
		c, err := scanTenantCNPJ(rows)
		if err != nil {
			return nil, err
		}
		cnpjs = append(cnpjs, c)
	}
	return cnpjs, rows.Err()
}

// CreateTenantCNPJ vincula um CNPJ adicional.
func (q *Queries) CreateTenantCNPJ(ctx context.Context, arg CreateTenantCNPJParams) (TenantCNPJ, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO tenant_cnpjs (tenant_id, cnpj, descricao)
        VALUES ($1, $2, $3)
        RETURNING id, tenant_id, cnpj, descricao, criado_em`,
		arg.TenantID, arg.CNPJ, arg.Descricao)
	c, err := scanTenantCNPJ(row)
	return c, translate(err, "CNPJ do tenant")
}

// DeleteTenantCNPJsByTenant remove os CNPJs adicionais do tenant.
func (q *Queries) DeleteTenantCNPJsByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM tenant_cnpjs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, translate(err, "CNPJ do tenant")
	}
	return tag.RowsAffected(), nil
}

// FindCNPJOwners procura o CNPJ como principal e como adicional.
func (q *Queries) FindCNPJOwners(ctx context.Context, cnpj string) ([]CNPJOwner, error) {
	rows, err := q.db.Query(ctx, `
        SELECT t.id, true, NULL::uuid, NULL::text, NULL::timestamptz
        FROM tenants t
        WHERE t.cnpj = $1
        UNION ALL
        SELECT c.tenant_id, false, c.id, c.descricao, c.criado_em
        FROM tenant_cnpjs c
        WHERE c.cnpj = $1`, cnpj)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []CNPJOwner
	for rows.Next() {
		var (
			owner     CNPJOwner
			bindingID *uuid.UUID
			descricao *string
			criadoEm  *time.Time
		)
		if err := rows.Scan(&owner.TenantID, &owner.Primary, &bindingID, &descricao, &criadoEm); err != nil {
			return nil, err
		}
		if bindingID != nil {
			owner.Binding = &TenantCNPJ{ID: *bindingID, TenantID: owner.TenantID, CNPJ: cnpj}
			if descricao != nil {
				owner.Binding.Descricao = *descricao
			}
			if criadoEm != nil {
				owner.Binding.CriadoEm = *criadoEm
			}
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
