package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alexedwards/argon2id"
)

// HashParams são os custos do Argon2id das senhas. Ficam gravados em cada hash, então
// alterá-los só vale para senhas novas ou redefinidas.
var HashParams = argon2id.Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// ErrMalformedHash indica hash gravado fora do formato Argon2id.
var ErrMalformedHash = errors.New("hash de senha em formato inválido")

var dummyHash = sync.OnceValue(func() string {
	h, err := Hash("lancamentos-usuario-inexistente")
	if err != nil {
		panic(err)
	}
	return h
})

// Hash gera o hash Argon2id da senha.
func Hash(password string) (string, error) {
	p := HashParams
	h, err := argon2id.CreateHash(password, &p)
	if err != nil {
		return "", fmt.Errorf("argon2id: %w", err)
	}
	return h, nil
}

// Verify compara a senha com o hash gravado, lendo os custos do próprio hash.
func Verify(password, encodedHash string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, encodedHash)
	switch {
	case errors.Is(err, argon2id.ErrInvalidHash), errors.Is(err, argon2id.ErrIncompatibleVersion):
		return false, ErrMalformedHash
	case err != nil:
		return false, err
	}
	return ok, nil
}

// VerifyMissing consome o mesmo custo de Verify quando o email não existe, para que o
// tempo de resposta do login não revele contas cadastradas.
func VerifyMissing(password string) {
	_, _ = argon2id.ComparePasswordAndHash(password, dummyHash())
}
