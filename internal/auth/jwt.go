package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Audience do token de acesso da API.
const Audience = "lancamentos"

// Claims representa as informações presentes em um JWT de acesso.
type Claims struct {
	Email    string  `json:"email"`
	Role     string  `json:"role"`
	TenantID *string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Subject identifica o usuário portador do token.
type Subject struct {
	ID       uuid.UUID
	Email    string
	Role     string
	TenantID *uuid.UUID
}

// JWTManager encapsula geração e validação de tokens.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

// NewJWTManager cria o gerenciador com segredo e TTL configurados.
func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// TTL devolve a validade dos tokens de acesso.
func (m *JWTManager) TTL() time.Duration { return m.accessTTL }

// GenerateAccessToken cria um JWT HS256 com papel e tenant do usuário.
func (m *JWTManager) GenerateAccessToken(sub Subject) (string, time.Time, error) {
	now := m.now().UTC()
	expires := now.Add(m.accessTTL)

	claims := Claims{
		Email: sub.Email,
		Role:  sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID.String(),
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if sub.TenantID != nil {
		tid := sub.TenantID.String()
		claims.TenantID = &tid
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseAndValidate verifica assinatura, expiração e audience, e devolve o portador.
func (m *JWTManager) ParseAndValidate(tokenString string) (Subject, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithTimeFunc(m.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return Subject{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Subject{}, errors.New("token inválido")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Subject{}, errors.New("subject inválido")
	}
	sub := Subject{ID: id, Email: claims.Email, Role: claims.Role}
	if claims.TenantID != nil {
		tid, err := uuid.Parse(*claims.TenantID)
		if err != nil {
			return Subject{}, errors.New("tenant inválido")
		}
		sub.TenantID = &tid
	}
	return sub, nil
}
