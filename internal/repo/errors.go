package repo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

var (
	// ErrNotFound é retornado quando nenhum registro é encontrado.
	ErrNotFound = apperr.ErrNotFound
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerialization       = "40001"
)

var conflictMessages = map[string]string{
	"usuarios_email_key":         "email já cadastrado",
	"tenants_cnpj_key":           "CNPJ já vinculado a um tenant",
	"tenant_cnpjs_cnpj_key":      "CNPJ já vinculado a um tenant",
	"cnpj_exclusivo":             "CNPJ já vinculado a um tenant",
	"usuarios_tenant_id_fkey":    "tenant possui usuários vinculados",
	"lancamentos_tenant_id_fkey": "tenant possui lançamentos vinculados",
}

// translate converte erros do pgx nos tipos de apperr.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("%s não encontrado", entity)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		if msg, ok := conflictMessages[pgErr.ConstraintName]; ok {
			return apperr.Conflict(msg)
		}
		return apperr.Conflict("%s: registro duplicado", entity)
	case pgForeignKeyViolation:
		if msg, ok := conflictMessages[pgErr.ConstraintName]; ok {
			return apperr.Conflict(msg)
		}
		return apperr.Conflict("%s: referência inválida (%s)", entity, pgErr.ConstraintName)
	case pgSerialization:
		return apperr.Conflict("operação concorrente em %s, tente novamente", entity)
	case pgCheckViolation:
		return apperr.Invalid("%s viola a regra %s", entity, pgErr.ConstraintName)
	}
	return err
}
