package cnpj

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"11.111.111/0001-11":  "11111111000111",
		"11111111000111":      "11111111000111",
		" 22.222.222/0001-22": "22222222000122",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}

	for _, bad := range []string{"", "123", "11.111.111/0001-1A", "111111110001111"} {
		_, err := Normalize(bad)
		require.ErrorIs(t, err, apperr.ErrInvalid, bad)
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "11.222.333/0001-81", Format("11222333000181"))
	require.Equal(t, "123", Format("123"))
}

func TestValidChecksum(t *testing.T) {
	require.True(t, ValidChecksum("11222333000181"))
	require.False(t, ValidChecksum("11222333000182"))
	require.False(t, ValidChecksum("11111111111111"))
	require.False(t, ValidChecksum("1122"))
}
