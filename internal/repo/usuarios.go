package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gestaozabele/lancamentos/internal/role"
)

const usuarioColumns = `id, nome, email, senha_hash, role, tenant_id, ativo, ultimo_acesso,
        criado_em, atualizado_em, criado_por, atualizado_por`

func scanUsuario(row pgx.Row) (Usuario, error) {
	var (
		u       Usuario
		roleRaw string
	)
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &roleRaw, &u.TenantID, &u.Ativo, &u.UltimoAcesso,
		&u.CriadoEm, &u.AtualizadoEm, &u.CriadoPor, &u.AtualizadoPor)
	u.Role = role.Role(roleRaw)
	return u, err
}

// GetUsuarioByID busca usuário pelo identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	row := q.db.QueryRow(ctx, `SELECT `+usuarioColumns+` FROM usuarios WHERE id = $1`, id)
	u, err := scanUsuario(row)
	return u, translate(err, "usuário")
}

// GetUsuarioByEmail busca usuário pelo email sem diferenciar maiúsculas.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	row := q.db.QueryRow(ctx, `SELECT `+usuarioColumns+` FROM usuarios WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email))
	u, err := scanUsuario(row)
	return u, translate(err, "usuário")
}

// ListUsuarios lista usuários dentro do recorte de tenant.
func (q *Queries) ListUsuarios(ctx context.Context, filter UsuarioFilter) ([]Usuario, error) {
	var (
		conds []string
		args  []any
	)
	if cond, scopeArgs := filter.Scope.Where("tenant_id", 1); cond != "" {
		conds = append(conds, cond)
		args = append(args, scopeArgs...)
	}
	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Ativo != nil {
		args = append(args, *filter.Ativo)
		conds = append(conds, fmt.Sprintf("ativo = $%d", len(args)))
	}

	query := `SELECT ` + usuarioColumns + ` FROM usuarios`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY criado_em DESC`

	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, u)
	}
	return usuarios, rows.Err()
}

// CreateUsuario insere a conta. Email duplicado vira Conflict.
func (q *Queries) CreateUsuario(ctx context.Context, arg CreateUsuarioParams) (Usuario, error) {
	row := q.db.QueryRow(ctx, `
        INSERT INTO usuarios (nome, email, senha_hash, role, tenant_id, ativo, criado_por, atualizado_por)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
        RETURNING `+usuarioColumns,
		arg.Nome, arg.Email, arg.SenhaHash, string(arg.Role), arg.TenantID, arg.Ativo, arg.CriadoPor)
	u, err := scanUsuario(row)
	return u, translate(err, "usuário")
}

// UpdateUsuario grava os campos mutáveis da conta.
func (q *Queries) UpdateUsuario(ctx context.Context, arg UpdateUsuarioParams) (Usuario, error) {
	row := q.db.QueryRow(ctx, `
        UPDATE usuarios
        SET nome = $2,
            senha_hash = $3,
            role = $4,
            tenant_id = $5,
            ativo = $6,
            atualizado_por = $7,
            atualizado_em = now()
        WHERE id = $1
        RETURNING `+usuarioColumns,
		arg.ID, arg.Nome, arg.SenhaHash, string(arg.Role), arg.TenantID, arg.Ativo, arg.AtualizadoPor)
	u, err := scanUsuario(row)
	return u, translate(err, "usuário")
}

// DeleteUsuario remove a conta.
func (q *Queries) DeleteUsuario(ctx context.Context, id uuid.UUID) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return translate(err, "usuário")
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "usuário")
	}
	return nil
}

// DeleteUsuariosByTenant remove todas as contas do tenant.
func (q *Queries) DeleteUsuariosByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `DELETE FROM usuarios WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return 0, translate(err, "usuário")
	}
	return tag.RowsAffected(), nil
}

// TouchUltimoAcesso registra o último login.
func (q *Queries) TouchUltimoAcesso(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := q.db.Exec(ctx, `UPDATE usuarios SET ultimo_acesso = $2 WHERE id = $1`, id, at)
	return translate(err, "usuário")
}

// CountUsuariosByRole conta contas com o papel informado.
func (q *Queries) CountUsuariosByRole(ctx context.Context, r role.Role) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM usuarios WHERE role = $1`, string(r)).Scan(&n)
	return n, err
}
