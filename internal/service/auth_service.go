package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = auth.ErrInvalidRefresh
)

// AuthService concentra regras de autenticação e sessões.
type AuthService struct {
	store      repo.UserStore
	cache      cache.Client
	jwt        *auth.JWTManager
	refreshTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService cria novo serviço. Os refresh tokens ficam no cache (Redis ou memória).
func NewAuthService(store repo.UserStore, c cache.Client, jwtMgr *auth.JWTManager, refreshTTL time.Duration, logger zerolog.Logger) *AuthService {
	return &AuthService{
		store:      store,
		cache:      c,
		jwt:        jwtMgr,
		refreshTTL: refreshTTL,
		logger:     logger.With().Str("component", "auth").Logger(),
		now:        time.Now,
	}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// RefreshTTL informa a validade dos refresh tokens emitidos.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    time.Time    `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         repo.Usuario `json:"user"`
}

// Login autentica por email e senha.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.store.GetUsuarioByEmail(ctx, util.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			auth.VerifyMissing(password)
			s.logger.Warn().Msg("login: usuário não encontrado")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	ok, err := auth.Verify(password, user.SenhaHash)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("login: falha ao verificar senha")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !ok {
		s.logger.Warn().Str("user_id", user.ID.String()).Msg("login: senha inválida")
		return LoginResult{}, ErrInvalidCredentials
	}
	if !user.Ativo {
		return LoginResult{}, ErrAccountDisabled
	}

	now := s.now().UTC()
	if err := s.store.TouchUltimoAcesso(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("login: falha ao registrar último acesso")
	} else {
		user.UltimoAcesso = &now
	}

	return s.issue(ctx, user)
}

// Refresh troca um refresh token válido por um novo par de tokens. O usuário é relido,
// de modo que mudanças de papel ou tenant valem a partir do refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if refreshToken == "" {
		return LoginResult{}, ErrRefreshInvalid
	}
	key := auth.RefreshKey(refreshToken)
	val, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return LoginResult{}, ErrRefreshInvalid
		}
		return LoginResult{}, err
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return LoginResult{}, err
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return LoginResult{}, ErrRefreshInvalid
	}
	user, err := s.store.GetUsuarioByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return LoginResult{}, ErrRefreshInvalid
		}
		return LoginResult{}, err
	}
	if !user.Ativo {
		return LoginResult{}, ErrAccountDisabled
	}
	return s.issue(ctx, user)
}

// Logout revoga o refresh token informado.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.cache.Delete(ctx, auth.RefreshKey(refreshToken))
}

// Me devolve a conta do portador do token.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (repo.Usuario, error) {
	return s.store.GetUsuarioByID(ctx, userID)
}

func (s *AuthService) issue(ctx context.Context, user repo.Usuario) (LoginResult, error) {
	access, expires, err := s.jwt.GenerateAccessToken(auth.Subject{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role.String(),
		TenantID: user.TenantID,
	})
	if err != nil {
		return LoginResult{}, err
	}

	refresh, err := auth.NewRefreshToken()
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.cache.Set(ctx, refresh.Key, user.ID.String(), s.refreshTTL); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwt.TTL().Seconds()),
		ExpiresAt:    expires,
		RefreshToken: refresh.Raw,
		User:         user,
	}, nil
}
