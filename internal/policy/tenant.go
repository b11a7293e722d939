package policy

import (
	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/role"
)

// CanManageTenants restringe cadastro, edição, remoção, CNPJs e sincronização de tenants.
func CanManageTenants(actor Actor) error {
	if actor.Role != role.SuperAdmin {
		return apperr.Denied("tenant.manage", "apenas SUPER_ADMIN pode gerenciar tenants")
	}
	return nil
}

// CanViewTenant permite papéis de plataforma em qualquer tenant e demais apenas no próprio.
func CanViewTenant(actor Actor, tenantID uuid.UUID) error {
	if actor.Role.IsPlatform() {
		return nil
	}
	if actor.TenantID != nil && *actor.TenantID == tenantID {
		return nil
	}
	return apperr.Denied("tenant.view", "Você não tem acesso a este tenant")
}

// CanReassignTenant decide se o ator pode mover o alvo para outro tenant.
// resultingRole é o papel que o alvo terá após a atualização.
func CanReassignTenant(actor Actor, resultingRole role.Role) error {
	if actor.Role != role.SuperAdmin {
		return apperr.Denied("update.tenant.actor", "apenas SUPER_ADMIN pode mover usuários entre tenants")
	}
	if !resultingRole.IsTenantRole() {
		return apperr.Denied("update.tenant.platform_role", "%s não pode ter um tenant associado", resultingRole)
	}
	return nil
}

// CanChangeStatus decide quem pode ativar ou desativar uma conta.
func CanChangeStatus(actor Actor, target Target) error {
	if actor.ID == target.ID {
		return apperr.Denied("update.status.self", "Você não pode alterar o status da própria conta")
	}
	switch actor.Role {
	case role.SuperAdmin:
		return nil
	case role.Secretario:
		if target.Role.IsTenantStaff() && SameTenant(actor.TenantID, target.TenantID) {
			return nil
		}
	}
	return apperr.Denied("update.status.role", "%s não pode alterar o status deste usuário", actor.Role)
}
