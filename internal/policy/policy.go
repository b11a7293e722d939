// Package policy concentra as decisões de autorização sobre contas de usuário.
//
// As funções são puras: recebem fatos do ator e do alvo e devolvem nil ou um erro
// apperr Denied com a regra que falhou. As regras são expressas por par de papéis
// (ator × alvo × mesmo tenant) e não por comparação de rank, porque não são
// monotônicas: SUPER_ADMIN não cria FINANCEIRO diretamente, apenas o SECRETARIO cria.
package policy

import (
	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/role"
)

// Actor representa o usuário autenticado que executa a operação.
type Actor struct {
	ID       uuid.UUID
	Role     role.Role
	TenantID *uuid.UUID
}

// Target representa a conta sobre a qual a operação incide.
type Target struct {
	ID       uuid.UUID
	Role     role.Role
	TenantID *uuid.UUID
}

// SameTenant compara tenants exigindo que ambos existam.
func SameTenant(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// CanCreate decide se o ator pode criar uma conta com o papel e tenant informados.
func CanCreate(actor Actor, targetRole role.Role, targetTenantID *uuid.UUID) error {
	switch actor.Role {
	case role.SuperAdmin:
		switch {
		case targetRole.IsPlatform():
			if targetTenantID != nil {
				return apperr.Denied("create.super_admin.platform_tenant", "%s não pode ter um tenant associado", targetRole)
			}
			return nil
		case targetRole == role.Secretario:
			if targetTenantID == nil {
				return apperr.Denied("create.super_admin.secretario_tenant", "SECRETARIO deve ter um tenant")
			}
			return nil
		default:
			return apperr.Denied("create.super_admin.role", "SUPER_ADMIN não pode criar %s", targetRole)
		}

	case role.Secretario:
		if !targetRole.IsTenantStaff() {
			return apperr.Denied("create.secretario.role", "SECRETARIO só pode criar FINANCEIRO ou VISUALIZADOR, não %s", targetRole)
		}
		if !SameTenant(actor.TenantID, targetTenantID) {
			return apperr.Denied("create.secretario.tenant", "SECRETARIO só pode criar usuários do próprio tenant")
		}
		return nil

	default:
		return apperr.Denied("create.role", "%s não pode criar usuários", actor.Role)
	}
}

// CanUpdate decide se o ator pode editar o alvo; newRole nil significa que o papel não muda.
func CanUpdate(actor Actor, target Target, newRole *role.Role) error {
	changesRole := func(current role.Role) bool {
		return newRole != nil && *newRole != current
	}

	switch {
	case actor.Role == role.SuperAdmin:
		if actor.ID == target.ID && changesRole(role.SuperAdmin) {
			return apperr.Denied("update.super_admin.self_demotion", "SUPER_ADMIN não pode remover seu próprio role")
		}
		return nil

	case actor.Role == role.Secretario:
		if !target.Role.IsTenantStaff() {
			return apperr.Denied("update.secretario.role", "SECRETARIO só pode editar FINANCEIRO ou VISUALIZADOR")
		}
		if !SameTenant(actor.TenantID, target.TenantID) {
			return apperr.Denied("update.secretario.tenant", "SECRETARIO só pode editar usuários do próprio tenant")
		}
		if changesRole(target.Role) {
			return apperr.Denied("update.secretario.change_role", "SECRETARIO não pode alterar role de usuários")
		}
		return nil

	case actor.Role.IsTenantStaff():
		if actor.ID != target.ID {
			return apperr.Denied("update.self.other_user", "Você só pode atualizar sua própria conta")
		}
		if changesRole(actor.Role) {
			return apperr.Denied("update.self.change_role", "Você não pode alterar seu próprio role")
		}
		return nil

	default:
		return apperr.Denied("update.role", "%s não tem permissão para editar usuários", actor.Role)
	}
}

// UpdateClearsTenant informa se a mudança de papel exige limpar o tenant do alvo.
func UpdateClearsTenant(newRole *role.Role) bool {
	return newRole != nil && newRole.IsPlatform()
}

// CanDelete decide se o ator pode remover o alvo.
func CanDelete(actor Actor, target Target) error {
	if target.Role.IsProtected() {
		return apperr.Denied("delete.protected", "%s não pode ser deletado", target.Role)
	}
	if actor.ID == target.ID {
		return apperr.Denied("delete.self", "Você não pode deletar sua própria conta")
	}

	switch actor.Role {
	case role.SuperAdmin:
		return nil
	case role.Secretario:
		if !target.Role.IsTenantStaff() {
			return apperr.Denied("delete.secretario.role", "SECRETARIO só pode deletar FINANCEIRO ou VISUALIZADOR")
		}
		if !SameTenant(actor.TenantID, target.TenantID) {
			return apperr.Denied("delete.secretario.tenant", "SECRETARIO só pode deletar usuários do próprio tenant")
		}
		return nil
	default:
		return apperr.Denied("delete.role", "%s não tem permissão para deletar usuários", actor.Role)
	}
}

// CanListUsers libera a listagem para SUPER_ADMIN, SUPORTE_ADMIN e SECRETARIO.
func CanListUsers(actor Actor) error {
	switch actor.Role {
	case role.SuperAdmin, role.SuporteAdmin, role.Secretario:
		return nil
	}
	return apperr.Denied("user.list", "%s não pode listar usuários", actor.Role)
}

// CanViewUser permite ver a própria conta; papéis de plataforma veem qualquer conta
// e os demais apenas contas do próprio tenant.
func CanViewUser(actor Actor, target Target) error {
	if actor.ID == target.ID || actor.Role.IsPlatform() {
		return nil
	}
	if SameTenant(actor.TenantID, target.TenantID) {
		return nil
	}
	return apperr.Denied("user.view", "Você não tem acesso a este usuário")
}
