package role

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

func TestParse(t *testing.T) {
	r, err := Parse("  secretario ")
	require.NoError(t, err)
	require.Equal(t, Secretario, r)

	_, err = Parse("PROFESSOR")
	require.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = Parse("")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestRoleSetsArePartitioned(t *testing.T) {
	for _, r := range All() {
		require.NotEqual(t, r.IsPlatform(), r.IsTenantRole(), "papel %s", r)
	}
	require.True(t, Secretario.IsProtected())
	require.False(t, Financeiro.IsProtected())
	require.False(t, Visualizador.IsProtected())
	for _, r := range []Role{SuperAdmin, SuporteAdmin, FinanceiroAdmin} {
		require.True(t, r.IsProtected())
	}
}

func TestRankOrder(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		require.Greater(t, all[i-1].Rank(), all[i].Rank())
	}
	require.Equal(t, 5, SuperAdmin.Rank())
	require.Equal(t, 0, Visualizador.Rank())
	require.Equal(t, -1, Role("X").Rank())
}
