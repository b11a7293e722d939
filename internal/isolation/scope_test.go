package isolation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/policy"
	"github.com/gestaozabele/lancamentos/internal/role"
)

func TestScopeFilterPlatformRoles(t *testing.T) {
	for _, r := range []role.Role{role.SuperAdmin, role.SuporteAdmin, role.FinanceiroAdmin} {
		scope := ScopeFilter(policy.Actor{ID: uuid.New(), Role: r})
		require.True(t, scope.Unrestricted, r)
		require.True(t, scope.Allows(nil))
		other := uuid.New()
		require.True(t, scope.Allows(&other))
	}
}

func TestScopeFilterTenantRoles(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	for _, r := range []role.Role{role.Secretario, role.Financeiro, role.Visualizador} {
		scope := ScopeFilter(policy.Actor{ID: uuid.New(), Role: r, TenantID: &tenantA})
		require.False(t, scope.Unrestricted)
		require.True(t, scope.Allows(&tenantA))
		require.False(t, scope.Allows(&tenantB))
		require.False(t, scope.Allows(nil), "lançamento órfão não é visível para %s", r)
	}
}

func TestEffectiveIgnoresRequestedTenantForTenantRoles(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()
	actor := policy.Actor{ID: uuid.New(), Role: role.Financeiro, TenantID: &tenantA}

	scope := Effective(actor, &tenantB)
	require.Equal(t, tenantA, *scope.TenantID)
	require.False(t, scope.Allows(&tenantB))
}

func TestEffectiveHonorsRequestedTenantForPlatformRoles(t *testing.T) {
	tenantB := uuid.New()
	actor := policy.Actor{ID: uuid.New(), Role: role.SuporteAdmin}

	scope := Effective(actor, &tenantB)
	require.False(t, scope.Unrestricted)
	require.Equal(t, tenantB, *scope.TenantID)

	require.True(t, Effective(actor, nil).Unrestricted)
}

func TestTenantRoleWithoutTenantSeesNothing(t *testing.T) {
	scope := ScopeFilter(policy.Actor{ID: uuid.New(), Role: role.Visualizador})
	require.True(t, scope.Empty())
	tenant := uuid.New()
	require.False(t, scope.Allows(&tenant))

	cond, args := scope.Where("l.tenant_id", 1)
	require.Equal(t, "FALSE", cond)
	require.Empty(t, args)
}

func TestWhere(t *testing.T) {
	cond, args := Scope{Unrestricted: true}.Where("tenant_id", 1)
	require.Empty(t, cond)
	require.Nil(t, args)

	tenant := uuid.New()
	cond, args = Scope{TenantID: &tenant}.Where("l.tenant_id", 3)
	require.Equal(t, "l.tenant_id = $3", cond)
	require.Equal(t, []any{tenant}, args)
}
