package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/auth"
	"github.com/gestaozabele/lancamentos/internal/cnpj"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/policy"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/tenant"
	"github.com/gestaozabele/lancamentos/internal/util"
)

// DescricaoEstadual identifica o CNPJ estadual de capitais.
const DescricaoEstadual = "Estadual"

// TenantService cadastra municípios, seus CNPJs e o primeiro SECRETARIO.
type TenantService struct {
	store    repo.Store
	resolver *tenant.Resolver
	logger   zerolog.Logger
	hash     func(string) (string, error)
	strict   bool
}

// TenantOption ajusta o TenantService.
type TenantOption func(*TenantService)

// WithStrictCNPJ passa a exigir dígitos verificadores válidos.
func WithStrictCNPJ(strict bool) TenantOption {
	return func(s *TenantService) { s.strict = strict }
}

// NewTenantService cria o serviço de tenants.
func NewTenantService(store repo.Store, resolver *tenant.Resolver, logger zerolog.Logger, opts ...TenantOption) *TenantService {
	s := &TenantService{
		store:    store,
		resolver: resolver,
		logger:   logger.With().Str("component", "tenants").Logger(),
		hash:     auth.Hash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SecretarioInput descreve o SECRETARIO criado junto com o tenant.
type SecretarioInput struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Senha string `json:"senha"`
}

// CreateTenantInput contém os dados do cadastro de tenant.
type CreateTenantInput struct {
	Nome         string           `json:"nome"`
	CNPJ         string           `json:"cnpj"`
	EmailContato string           `json:"email_contato"`
	Cidade       *string          `json:"cidade"`
	Estado       *string          `json:"estado"`
	CNPJEstadual string           `json:"cnpj_estadual"`
	Secretario   *SecretarioInput `json:"secretario"`
}

// CreateTenantResult devolve o tenant criado, o SECRETARIO opcional e quantos
// lançamentos foram vinculados.
type CreateTenantResult struct {
	Tenant     repo.Tenant   `json:"tenant"`
	Secretario *repo.Usuario `json:"secretario"`
	Synced     int64         `json:"synced"`
}

// UpdateTenantInput traz apenas os campos alterados.
type UpdateTenantInput struct {
	Nome         *string `json:"nome"`
	CNPJ         *string `json:"cnpj"`
	EmailContato *string `json:"email_contato"`
	Cidade       *string `json:"cidade"`
	Estado       *string `json:"estado"`
	Ativo        *bool   `json:"ativo"`
	CNPJEstadual *string `json:"cnpj_estadual"`
}

// SyncResult resume uma sincronização manual.
type SyncResult struct {
	Synced  int64  `json:"synced"`
	Message string `json:"message"`
}

func (s *TenantService) normalizeCNPJ(raw string) (string, error) {
	digits, err := cnpj.Normalize(raw)
	if err != nil {
		return "", err
	}
	if s.strict && !cnpj.ValidChecksum(digits) {
		return "", apperr.Invalid("CNPJ %s com dígitos verificadores inválidos", cnpj.Format(digits))
	}
	return digits, nil
}

func validateEstado(estado *string) error {
	if estado == nil {
		return nil
	}
	return util.ValidateUF(*estado)
}

// Create grava numa única transação o tenant, o CNPJ estadual, o SECRETARIO e a
// sincronização dos órfãos de cada CNPJ. Qualquer falha desfaz tudo.
func (s *TenantService) Create(ctx context.Context, actorID uuid.UUID, in CreateTenantInput) (CreateTenantResult, error) {
	if err := util.RequireString(in.Nome, "nome"); err != nil {
		return CreateTenantResult{}, err
	}
	if err := util.ValidateEmail(in.EmailContato); err != nil {
		return CreateTenantResult{}, err
	}
	if err := validateEstado(in.Estado); err != nil {
		return CreateTenantResult{}, err
	}
	primary, err := s.normalizeCNPJ(in.CNPJ)
	if err != nil {
		return CreateTenantResult{}, err
	}
	var estadual string
	if strings.TrimSpace(in.CNPJEstadual) != "" {
		if estadual, err = s.normalizeCNPJ(in.CNPJEstadual); err != nil {
			return CreateTenantResult{}, err
		}
		if estadual == primary {
			return CreateTenantResult{}, apperr.Invalid("CNPJ estadual deve ser diferente do CNPJ principal")
		}
	}

	var secretario *repo.CreateUsuarioParams
	if in.Secretario != nil {
		sec := CreateUserInput{Nome: in.Secretario.Nome, Email: in.Secretario.Email, Senha: in.Secretario.Senha, Role: role.Secretario}
		if err := sec.validate(); err != nil {
			return CreateTenantResult{}, err
		}
		hash, err := s.hash(sec.Senha)
		if err != nil {
			return CreateTenantResult{}, fmt.Errorf("gerar hash da senha: %w", err)
		}
		secretario = &repo.CreateUsuarioParams{
			Nome:      sec.Nome,
			Email:     util.NormalizeEmail(sec.Email),
			SenhaHash: hash,
			Role:      role.Secretario,
			Ativo:     true,
			CriadoPor: &actorID,
		}
	}

	var result CreateTenantResult
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanManageTenants(actor)); err != nil {
			return err
		}

		res := s.resolver.WithStore(tx)
		if _, found, err := res.Resolve(ctx, primary); err != nil {
			return err
		} else if found {
			return apperr.Conflict("CNPJ %s já existe no sistema", cnpj.Format(primary))
		}
		if secretario != nil {
			if err := requireFreeEmail(ctx, tx, secretario.Email, "Email do secretário já existe no sistema"); err != nil {
				return err
			}
		}

		t, err := tx.CreateTenant(ctx, repo.CreateTenantParams{
			Nome:         strings.TrimSpace(in.Nome),
			CNPJ:         primary,
			EmailContato: util.NormalizeEmail(in.EmailContato),
			Cidade:       in.Cidade,
			Estado:       in.Estado,
			Ativo:        true,
			CriadoPor:    &actorID,
		})
		if err != nil {
			return err
		}

		if result.Synced, err = res.SyncOrphans(ctx, t.ID, primary); err != nil {
			return err
		}
		if estadual != "" {
			bound, err := res.BindCnpj(ctx, t.ID, estadual, DescricaoEstadual)
			if err != nil {
				return err
			}
			result.Synced += bound.Synced
		}

		if secretario != nil {
			if err := denied(policy.CanCreate(actor, role.Secretario, &t.ID)); err != nil {
				return err
			}
			secretario.TenantID = &t.ID
			u, err := tx.CreateUsuario(ctx, *secretario)
			if err != nil {
				return err
			}
			result.Secretario = &u
		}

		result.Tenant, err = withCNPJs(ctx, tx, t)
		return err
	})
	if err != nil {
		return CreateTenantResult{}, err
	}

	s.logger.Info().Str("actor_id", actorID.String()).Str("tenant_id", result.Tenant.ID.String()).
		Str("cnpj", primary).Int64("synced", result.Synced).Msg("tenant criado")
	return result, nil
}

// Update altera os dados do tenant. Um novo CNPJ principal precisa estar livre em toda
// a plataforma; após a troca todos os CNPJs do tenant são sincronizados e o anterior
// sai do cache do resolvedor.
func (s *TenantService) Update(ctx context.Context, actorID, id uuid.UUID, in UpdateTenantInput) (repo.Tenant, error) {
	if in.Nome != nil {
		if err := util.RequireString(*in.Nome, "nome"); err != nil {
			return repo.Tenant{}, err
		}
	}
	if in.EmailContato != nil {
		if err := util.ValidateEmail(*in.EmailContato); err != nil {
			return repo.Tenant{}, err
		}
	}
	if err := validateEstado(in.Estado); err != nil {
		return repo.Tenant{}, err
	}
	var newCNPJ, estadual string
	var err error
	if in.CNPJ != nil {
		if newCNPJ, err = s.normalizeCNPJ(*in.CNPJ); err != nil {
			return repo.Tenant{}, err
		}
	}
	if in.CNPJEstadual != nil && strings.TrimSpace(*in.CNPJEstadual) != "" {
		if estadual, err = s.normalizeCNPJ(*in.CNPJEstadual); err != nil {
			return repo.Tenant{}, err
		}
	}

	var (
		updated  repo.Tenant
		released string
	)
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanManageTenants(actor)); err != nil {
			return err
		}
		current, err := tx.GetTenantByID(ctx, id)
		if err != nil {
			return err
		}

		res := s.resolver.WithStore(tx)
		params := repo.UpdateTenantParams{
			ID:            current.ID,
			Nome:          current.Nome,
			CNPJ:          current.CNPJ,
			EmailContato:  current.EmailContato,
			Cidade:        current.Cidade,
			Estado:        current.Estado,
			Ativo:         current.Ativo,
			AtualizadoPor: &actorID,
		}
		cnpjChanged := newCNPJ != "" && newCNPJ != current.CNPJ
		if cnpjChanged {
			if _, found, err := res.Resolve(ctx, newCNPJ); err != nil {
				return err
			} else if found {
				return apperr.Conflict("CNPJ %s já existe no sistema", cnpj.Format(newCNPJ))
			}
			params.CNPJ = newCNPJ
		}
		if in.Nome != nil {
			params.Nome = strings.TrimSpace(*in.Nome)
		}
		if in.EmailContato != nil {
			params.EmailContato = util.NormalizeEmail(*in.EmailContato)
		}
		if in.Cidade != nil {
			params.Cidade = util.OptionalString(*in.Cidade)
		}
		if in.Estado != nil {
			params.Estado = in.Estado
		}
		if in.Ativo != nil {
			params.Ativo = *in.Ativo
		}

		t, err := tx.UpdateTenant(ctx, params)
		if err != nil {
			return err
		}
		if estadual != "" {
			if _, err := res.BindCnpj(ctx, t.ID, estadual, DescricaoEstadual); err != nil {
				return err
			}
		}
		if cnpjChanged {
			// O novo principal e todos os CNPJs adicionais recebem os órfãos pendentes.
			if _, err := res.SyncAll(ctx, t.ID); err != nil {
				return err
			}
			released = current.CNPJ
		}

		updated, err = withCNPJs(ctx, tx, t)
		return err
	})
	if err != nil {
		return repo.Tenant{}, err
	}

	if released != "" {
		s.resolver.Invalidate(ctx, released)
	}
	s.logger.Info().Str("actor_id", actorID.String()).Str("tenant_id", id.String()).Msg("tenant atualizado")
	return updated, nil
}

// Delete remove o tenant, seus usuários e CNPJs adicionais. Tenants com lançamentos
// vinculados não podem ser removidos, pois o vínculo é definitivo.
func (s *TenantService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	var cnpjs []string
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanManageTenants(actor)); err != nil {
			return err
		}
		t, err := withCNPJs(ctx, tx, repo.Tenant{ID: id})
		if err != nil {
			return err
		}

		n, err := tx.CountLancamentosByTenant(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("tenant %s possui %d lançamento(s) vinculado(s)", t.Nome, n)
		}

		if _, err := tx.DeleteUsuariosByTenant(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteTenantCNPJsByTenant(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteTenant(ctx, id); err != nil {
			return err
		}

		cnpjs = append(cnpjs, t.CNPJ)
		for _, c := range t.CNPJs {
			cnpjs = append(cnpjs, c.CNPJ)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.resolver.Invalidate(ctx, cnpjs...)
	s.logger.Warn().Str("actor_id", actorID.String()).Str("tenant_id", id.String()).Msg("tenant removido")
	return nil
}

// AddCnpj vincula um CNPJ adicional e sincroniza seus órfãos.
func (s *TenantService) AddCnpj(ctx context.Context, actorID, id uuid.UUID, raw, descricao string) (tenant.BindResult, error) {
	digits, err := s.normalizeCNPJ(raw)
	if err != nil {
		return tenant.BindResult{}, err
	}

	var result tenant.BindResult
	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanManageTenants(actor)); err != nil {
			return err
		}
		result, err = s.resolver.WithStore(tx).BindCnpj(ctx, id, digits, strings.TrimSpace(descricao))
		return err
	})
	if err != nil {
		return tenant.BindResult{}, err
	}
	s.logger.Info().Str("tenant_id", id.String()).Str("cnpj", digits).Bool("created", result.Created).
		Int64("synced", result.Synced).Msg("CNPJ vinculado")
	return result, nil
}

// SyncLancamentos repete a sincronização de todos os CNPJs do tenant.
func (s *TenantService) SyncLancamentos(ctx context.Context, actorID, id uuid.UUID) (SyncResult, error) {
	var result SyncResult
	err := s.store.WithTx(ctx, func(tx repo.Store) error {
		actor, err := loadActor(ctx, tx, actorID)
		if err != nil {
			return err
		}
		if err := denied(policy.CanManageTenants(actor)); err != nil {
			return err
		}
		t, err := tx.GetTenantByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.resolver.WithStore(tx).SyncAll(ctx, id)
		if err != nil {
			return err
		}
		result = SyncResult{
			Synced:  n,
			Message: fmt.Sprintf("%d lançamento(s) sincronizado(s) com o tenant %s", n, t.Nome),
		}
		return nil
	})
	return result, err
}

// Get devolve o tenant com seus CNPJs adicionais.
func (s *TenantService) Get(ctx context.Context, actorID, id uuid.UUID) (repo.Tenant, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return repo.Tenant{}, err
	}
	if err := denied(policy.CanViewTenant(actor, id)); err != nil {
		return repo.Tenant{}, err
	}
	return withCNPJs(ctx, s.store, repo.Tenant{ID: id})
}

// ResolveCnpj devolve o tenant dono do CNPJ, consultando o cache do resolvedor.
// CNPJ sem dono ou de tenant fora do recorte do ator é NotFound.
func (s *TenantService) ResolveCnpj(ctx context.Context, actorID uuid.UUID, raw string) (repo.Tenant, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return repo.Tenant{}, err
	}
	id, found, err := s.resolver.Resolve(ctx, raw)
	if err != nil {
		return repo.Tenant{}, err
	}
	if !found || policy.CanViewTenant(actor, id) != nil {
		return repo.Tenant{}, apperr.NotFound("nenhum tenant com o CNPJ %s", strings.TrimSpace(raw))
	}
	return withCNPJs(ctx, s.store, repo.Tenant{ID: id})
}

// List devolve os tenants visíveis ao ator, mais recentes primeiro.
func (s *TenantService) List(ctx context.Context, actorID uuid.UUID) ([]repo.Tenant, error) {
	actor, err := loadActor(ctx, s.store, actorID)
	if err != nil {
		return nil, err
	}
	tenants, err := s.store.ListTenants(ctx, isolation.ScopeFilter(actor))
	if err != nil {
		return nil, err
	}
	out := make([]repo.Tenant, 0, len(tenants))
	for _, t := range tenants {
		if t.CNPJs, err = s.store.ListTenantCNPJs(ctx, t.ID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// withCNPJs recarrega o tenant e anexa seus CNPJs adicionais.
func withCNPJs(ctx context.Context, store repo.TenantStore, t repo.Tenant) (repo.Tenant, error) {
	loaded, err := store.GetTenantByID(ctx, t.ID)
	if err != nil {
		return repo.Tenant{}, err
	}
	if loaded.CNPJs, err = store.ListTenantCNPJs(ctx, t.ID); err != nil {
		return repo.Tenant{}, err
	}
	return loaded, nil
}
