package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	tenant := uuid.New()
	sub := Subject{ID: uuid.New(), Email: "sec@zabele.pb.gov.br", Role: "SECRETARIO", TenantID: &tenant}

	token, expires, err := m.GenerateAccessToken(sub)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	require.Equal(t, sub, got)
}

func TestAccessTokenPlatformRoleHasNoTenant(t *testing.T) {
	m := NewJWTManager(secret, time.Hour)
	token, _, err := m.GenerateAccessToken(Subject{ID: uuid.New(), Role: "SUPER_ADMIN"})
	require.NoError(t, err)

	got, err := m.ParseAndValidate(token)
	require.NoError(t, err)
	require.Nil(t, got.TenantID)
}

func TestAccessTokenExpired(t *testing.T) {
	m := NewJWTManager(secret, time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, _, err := m.GenerateAccessToken(Subject{ID: uuid.New(), Role: "VISUALIZADOR"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ParseAndValidate(token)
	require.Error(t, err)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	token, _, err := NewJWTManager(secret, time.Hour).GenerateAccessToken(Subject{ID: uuid.New()})
	require.NoError(t, err)

	_, err = NewJWTManager("outro-segredo-outro-segredo-outro-segredo", time.Hour).ParseAndValidate(token)
	require.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := Hash("senha-forte-123")
	require.NoError(t, err)
	require.Contains(t, hash, "$argon2id$")

	ok, err := Verify("senha-forte-123", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify("errada", hash)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = Verify("senha-forte-123", "não-é-hash")
	require.ErrorIs(t, err, ErrMalformedHash)

	VerifyMissing("qualquer")
}

func TestRefreshToken(t *testing.T) {
	tok, err := NewRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, tok.Raw, tok.Key)
	require.Equal(t, tok.Key, RefreshKey(tok.Raw))
	require.True(t, strings.HasPrefix(tok.Key, "refresh:lancamentos:"))
	require.NotContains(t, tok.Key, tok.Raw)

	other, err := NewRefreshToken()
	require.NoError(t, err)
	require.NotEqual(t, tok.Raw, other.Raw)
}
