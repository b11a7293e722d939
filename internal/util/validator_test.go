package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

func TestValidateEmail(t *testing.T) {
	require.NoError(t, ValidateEmail("sec@zabele.pb.gov.br"))
	require.True(t, errors.Is(ValidateEmail(""), apperr.ErrInvalid))
	require.True(t, errors.Is(ValidateEmail("sem-arroba"), apperr.ErrInvalid))
}

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "sec@zabele.pb.gov.br", NormalizeEmail("  Sec@Zabele.PB.gov.br "))
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword("12345678"))
	require.Error(t, ValidatePassword("1234567"))
}

func TestValidateNome(t *testing.T) {
	require.NoError(t, ValidateNome("Ana"))
	require.Error(t, ValidateNome(" Al "))
}

func TestValidateUF(t *testing.T) {
	require.NoError(t, ValidateUF("PB"))
	for _, uf := range []string{"pb", "P", "PBA", "P1"} {
		require.Error(t, ValidateUF(uf), uf)
	}
}

func TestOptionalString(t *testing.T) {
	require.Nil(t, OptionalString("   "))
	require.Equal(t, "Zabelê", *OptionalString(" Zabelê "))
}
