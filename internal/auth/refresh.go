package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrInvalidRefresh é retornado quando o refresh token é desconhecido, expirado ou já usado.
var ErrInvalidRefresh = errors.New("refresh token inválido")

const refreshBytes = 32

// RefreshToken é o par emitido no login: Raw vai para o cliente e só Key fica no cache.
type RefreshToken struct {
	Raw string
	Key string
}

// NewRefreshToken gera um token opaco de 256 bits.
func NewRefreshToken() (RefreshToken, error) {
	buf := make([]byte, refreshBytes)
	if _, err := rand.Read(buf); err != nil {
		return RefreshToken{}, fmt.Errorf("gerar refresh token: %w", err)
	}
	raw := base64.RawURLEncoding.EncodeToString(buf)
	return RefreshToken{Raw: raw, Key: RefreshKey(raw)}, nil
}

// RefreshKey deriva do token recebido a chave usada no cache.
func RefreshKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "refresh:" + Audience + ":" + hex.EncodeToString(sum[:])
}
