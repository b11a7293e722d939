// Package role descreve os papéis da plataforma e a vinculação papel × tenant.
package role

import (
	"strings"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

// Role identifica o papel de um usuário.
type Role string

const (
	SuperAdmin      Role = "SUPER_ADMIN"
	SuporteAdmin    Role = "SUPORTE_ADMIN"
	FinanceiroAdmin Role = "FINANCEIRO_ADMIN"
	Secretario      Role = "SECRETARIO"
	Financeiro      Role = "FINANCEIRO"
	Visualizador    Role = "VISUALIZADOR"
)

// rank é apenas informativo: as regras de autorização não comparam ranks.
var rank = map[Role]int{
	SuperAdmin:      5,
	SuporteAdmin:    4,
	FinanceiroAdmin: 3,
	Secretario:      2,
	Financeiro:      1,
	Visualizador:    0,
}

// All lista os papéis do maior para o menor rank.
func All() []Role {
	return []Role{SuperAdmin, SuporteAdmin, FinanceiroAdmin, Secretario, Financeiro, Visualizador}
}

// Parse normaliza o nome informado e rejeita papéis desconhecidos.
func Parse(raw string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.Valid() {
		return "", apperr.Invalid("papel inválido: %q", raw)
	}
	return r, nil
}

// Valid informa se o papel é suportado.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Rank devolve a posição informativa do papel (-1 para papel desconhecido).
func (r Role) Rank() int {
	if v, ok := rank[r]; ok {
		return v
	}
	return -1
}

// IsPlatform informa se o papel atua entre tenants e nunca possui tenant.
func (r Role) IsPlatform() bool {
	return r == SuperAdmin || r == SuporteAdmin || r == FinanceiroAdmin
}

// IsTenantRole informa se o papel exige tenant.
func (r Role) IsTenantRole() bool {
	return r == Secretario || r == Financeiro || r == Visualizador
}

// IsProtected informa se contas com o papel nunca podem ser removidas.
func (r Role) IsProtected() bool {
	return r.IsPlatform() || r == Secretario
}

// IsTenantStaff cobre os papéis que o SECRETARIO administra.
func (r Role) IsTenantStaff() bool {
	return r == Financeiro || r == Visualizador
}

func (r Role) String() string { return string(r) }
