// Package isolation deriva o recorte por tenant aplicado a toda leitura de dados
// pertencentes a um tenant (lançamentos e listagens de usuários).
package isolation

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/policy"
)

// Scope é o predicado de tenant. Unrestricted libera todos os tenants; caso
// contrário apenas linhas com tenant_id = TenantID são visíveis. TenantID nil com
// Unrestricted false não enxerga nada.
type Scope struct {
	Unrestricted bool
	TenantID     *uuid.UUID
}

// ScopeFilter devolve o recorte do ator: papéis de plataforma veem todos os tenants,
// os demais somente o próprio.
func ScopeFilter(actor policy.Actor) Scope {
	if actor.Role.IsPlatform() {
		return Scope{Unrestricted: true}
	}
	if actor.TenantID == nil {
		return Scope{}
	}
	id := *actor.TenantID
	return Scope{TenantID: &id}
}

// Effective combina o recorte do ator com um tenant pedido pelo cliente. O pedido
// só estreita a visão de papéis de plataforma; para os demais é ignorado.
func Effective(actor policy.Actor, requested *uuid.UUID) Scope {
	scope := ScopeFilter(actor)
	if scope.Unrestricted && requested != nil {
		id := *requested
		return Scope{TenantID: &id}
	}
	return scope
}

// Allows informa se uma linha com o tenant indicado está dentro do recorte.
func (s Scope) Allows(tenantID *uuid.UUID) bool {
	if s.Unrestricted {
		return true
	}
	return policy.SameTenant(s.TenantID, tenantID)
}

// Empty informa se o recorte não enxerga nenhuma linha.
func (s Scope) Empty() bool {
	return !s.Unrestricted && s.TenantID == nil
}

// Where monta a condição SQL para a coluna informada usando o placeholder $argIdx.
// Devolve condição vazia quando não há restrição.
func (s Scope) Where(column string, argIdx int) (string, []any) {
	switch {
	case s.Unrestricted:
		return "", nil
	case s.TenantID == nil:
		return "FALSE", nil
	default:
		return fmt.Sprintf("%s = $%d", column, argIdx), []any{*s.TenantID}
	}
}
