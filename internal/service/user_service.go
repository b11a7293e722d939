package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/policy"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/util"
)

// UserService aplica o ciclo de vida de contas: criação, edição, remoção e leitura.
type UserService struct {
	store  repo.Store
	logger zerolog.Logger
	hash   func(string) (string, error)
}

// NewUserService cria o serviço de usuários.
func NewUserService(store repo.Store, logger zerolog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger.With().Str("component", "users").Logger(),
		hash:   auth.Hash,
	}
}

// CreateUserInput contém os dados de uma nova conta.
type CreateUserInput struct {
	Nome     string     `json:"nome"`
	Email    string     `json:"email"`
	Senha    string     `json:"senha"`
	Role     role.Role  `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id"`
}

func (in CreateUserInput) validate() error {
	if err := util.ValidateNome(in.Nome); err != nil {
		return err
	}
	if err := util.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := util.ValidatePassword(in.Senha); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return apperr.Invalid("papel inválido: %q", in.Role)
	}
	return nil
}

// UpdateUserInput traz apenas os campos alterados. TenantID só é considerado quando
// difere do tenant atual do alvo.
type UpdateUserInput struct {
	Nome     *string    `json:"nome"`
	Senha    *string    `json:"senha"`
	Role     *role.Role `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id"`
	Ativo    *bool      `json:"ativo"`
}

// UserListFilter restringe a listagem. TenantID só estreita a visão de papéis de plataforma.
type UserListFilter struct {
	TenantID *uuid.UUID
	Role     *role.Role
	Ativo    *bool
}

// Create cria a conta se a política permitir. O email é único sem distinção de caixa.
func (s *UserService) Create(ctx context.Context, actorID uuid.UUID, in CreateUserInput) (repo.Usuario, error) {
	if err := in.validate(); err != nil {
		return repo.Usuario{}, err
	}
	email := util.NormalizeEmail(in.Email)
	hash, err := s.hash(in.Senha)
	if err != nil {
		return repo.Usuario{}, fmt.Errorf("gerar hash da senha: %w", err)
	}

	var created repo.Usuario
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanCreate(actor, in.Role, in.TenantID)); err != nil {
			return err
		}
		if in.TenantID != nil {
			if err := requireTenant(ctx, tx, *in.TenantID); err != nil {
				return err
			}
		}
		if err := requireFreeEmail(ctx, tx, email, "email já cadastrado"); err != nil {
			return err
		}

		created, err = tx.CreateUsuario(ctx, repo.CreateUsuarioParams{
			Nome:      in.Nome,
			Email:     email,
			SenhaHash: hash,
			Role:      in.Role,
			TenantID:  in.TenantID,
			Ativo:     true,
			CriadoPor: &actorID,
		})
		return err
	})
	if err != nil {
		return repo.Usuario{}, err
	}

	s.logger.Info().Str("actor_id", actorID.String()).Str("user_id", created.ID.String()).
		Str("role", created.Role.String()).Msg("usuário criado")
	return created, nil
}

// Update aplica a edição parcial. Mudança para papel de plataforma limpa o tenant na
// mesma gravação; o caminho inverso exige que o tenant seja informado.
func (s *UserService) Update(ctx context.Context, actorID, targetID uuid.UUID, in UpdateUserInput) (repo.Usuario, error) {
	if in.Nome != nil {
		if err := util.ValidateNome(*in.Nome); err != nil {
			return repo.Usuario{}, err
		}
	}
	if in.Role != nil && !in.Role.Valid() {
		return repo.Usuario{}, apperr.Invalid("papel inválido: %q", *in.Role)
	}
	var newHash string
	if in.Senha != nil {
		if err := util.ValidatePassword(*in.Senha); err != nil {
			return repo.Usuario{}, err
		}
		h, err := s.hash(*in.Senha)
		if err != nil {
			return repo.Usuario{}, fmt.Errorf("gerar hash da senha: %w", err)
		}
		newHash = h
	}

	var updated repo.Usuario
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		target, err := tx.GetUsuarioByID(ctx, targetID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanUpdate(actor, targetOf(target), in.Role)); err != nil {
			return err
		}
		if in.Ativo != nil && *in.Ativo != target.Ativo {
			if err := denied(policy.CanChangeStatus(actor, targetOf(target))); err != nil {
				return err
			}
		}

		params := repo.UpdateUsuarioParams{
			ID:            target.ID,
			Nome:          target.Nome,
			SenhaHash:     target.SenhaHash,
			Role:          target.Role,
			TenantID:      target.TenantID,
			Ativo:         target.Ativo,
			AtualizadoPor: &actorID,
		}
		if in.Nome != nil {
			params.Nome = *in.Nome
		}
		if newHash != "" {
			params.SenhaHash = newHash
		}
		if in.Role != nil {
			params.Role = *in.Role
		}
		if in.Ativo != nil {
			params.Ativo = *in.Ativo
		}

		tenantChanged := in.TenantID != nil && (target.TenantID == nil || *target.TenantID != *in.TenantID)
		switch {
		case tenantChanged:
			if err := denied(policy.CanReassignTenant(actor, params.Role)); err != nil {
				return err
			}
			if err := requireTenant(ctx, tx, *in.TenantID); err != nil {
				return err
			}
			params.TenantID = in.TenantID
		case policy.UpdateClearsTenant(in.Role):
			params.TenantID = nil
		case params.Role.IsTenantRole() && params.TenantID == nil:
			return apperr.Invalid("%s deve ter um tenant", params.Role)
		}

		updated, err = tx.UpdateUsuario(ctx, params)
		return err
	})
	if err != nil {
		return repo.Usuario{}, err
	}

	s.logger.Info().Str("actor_id", actorID.String()).Str("user_id", updated.ID.String()).Msg("usuário atualizado")
	return updated, nil
}

// Delete remove a conta. Contas protegidas e a própria conta nunca são removidas.
func (s *UserService) Delete(ctx context.Context, actorID, targetID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		target, err := tx.GetUsuarioByID(ctx, targetID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanDelete(actor, targetOf(target))); err != nil {
			return err
		}
		return tx.DeleteUsuario(ctx, target.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("actor_id", actorID.String()).Str("user_id", targetID.String()).Msg("usuário removido")
	return nil
}

// Get devolve a conta se estiver visível ao ator. Conta inexistente e conta fora do
// recorte do ator respondem igual, com NotFound.
func (s *UserService) Get(ctx context.Context, actorID, targetID uuid.UUID) (repo.Usuario, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return repo.Usuario{}, err
	}
	target, err := s.store.GetUsuarioByID(ctx, targetID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return repo.Usuario{}, err
	}
	if err != nil || policy.CanViewUser(actor, targetOf(target)) != nil {
		return repo.Usuario{}, apperr.NotFound("usuário não encontrado")
	}
	return target, nil
}

// List devolve as contas dentro do recorte do ator.
func (s *UserService) List(ctx context.Context, actorID uuid.UUID, filter UserListFilter) ([]repo.Usuario, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return nil, err
	}
	if err := denied(policy.CanListUsers(actor)); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsuarios(ctx, repo.UsuarioFilter{
		Scope: isolation.Effective(actor, filter.TenantID),
		Role:  filter.Role,
		Ativo: filter.Ativo,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []repo.Usuario{}
	}
	return users, nil
}

// BootstrapSuperAdmin cria o primeiro SUPER_ADMIN. Falha com Conflict se já existir algum.
func (s *UserService) BootstrapSuperAdmin(ctx context.Context, nome, email, senha string) (repo.Usuario, error) {
	in := CreateUserInput{Nome: nome, Email: email, Senha: senha, Role: role.SuperAdmin}
	if err := in.validate(); err != nil {
		return repo.Usuario{}, err
	}
	hash, err := s.hash(senha)
	if err != nil {
		return repo.Usuario{}, fmt.Errorf("gerar hash da senha: %w", err)
	}

	var created repo.Usuario
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		n, err := tx.CountUsuariosByRole(ctx, role.SuperAdmin)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("já existe um SUPER_ADMIN cadastrado")
		}
		created, err = tx.CreateUsuario(ctx, repo.CreateUsuarioParams{
			Nome:      nome,
			Email:     util.NormalizeEmail(email),
			SenhaHash: hash,
			Role:      role.SuperAdmin,
			Ativo:     true,
		})
		return err
	})
	if err != nil {
		return repo.Usuario{}, err
	}
	s.logger.Info().Str("user_id", created.ID.String()).Msg("SUPER_ADMIN inicial criado")
	return created, nil
}

func requireTenant(ctx context.Context, store repo.TenantStore, id uuid.UUID) error {
	if _, err := store.GetTenantByID(ctx, id); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NotFound("tenant %s não encontrado", id)
		}
		return err
	}
	return nil
}

func requireFreeEmail(ctx context.Context, store repo.UserStore, email, msg string) error {
	_, err := store.GetUsuarioByEmail(ctx, email)
	switch {
	case err == nil:
		return apperr.Conflict("%s", msg)
	case errors.Is(err, apperr.ErrNotFound):
		return nil
	default:
		return err
	}
}
