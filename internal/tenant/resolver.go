// Package tenant resolve a qual tenant pertence um CNPJ e mantém os lançamentos
// órfãos vinculados ao tenant dono do CNPJ.
//
// A vinculação é monotônica: um lançamento com tenant nunca volta a ficar órfão nem
// muda de tenant, e um CNPJ vinculado a um tenant não é revinculado a outro.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/cnpj"
	"github.com/gestaozabele/lancamentos/internal/metrics"
	"github.com/gestaozabele/lancamentos/internal/repo"
)

// DescricaoPadrao é usada quando o CNPJ adicional chega sem descrição.
const DescricaoPadrao = "Adicional"

// DescricaoPrincipal identifica o CNPJ principal num BindResult.
const DescricaoPrincipal = "Principal"

// Resolver liga CNPJs a tenants. Só resultados positivos vão para o cache, já que
// um CNPJ sem dono pode ganhar um a qualquer momento.
type Resolver struct {
	store  repo.Store
	cache  cache.Client
	ttl    time.Duration
	group  *singleflight.Group
	logger zerolog.Logger
	inTx   bool
}

// NewResolver cria o resolvedor. c pode ser nil para desativar o cache.
func NewResolver(store repo.Store, c cache.Client, ttl time.Duration, logger zerolog.Logger) *Resolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{
		store:  store,
		cache:  c,
		ttl:    ttl,
		group:  &singleflight.Group{},
		logger: logger.With().Str("component", "cnpj_resolver").Logger(),
	}
}

// WithStore devolve um resolvedor que opera dentro da transação tx. Ele não lê nem
// grava o cache, pois enxerga dados ainda não confirmados.
func (r *Resolver) WithStore(tx repo.Store) *Resolver {
	clone := *r
	clone.store = tx
	clone.inTx = true
	return &clone
}

// BindResult descreve o vínculo produzido por BindCnpj.
type BindResult struct {
	Binding repo.TenantCNPJ `json:"binding"`
	Created bool            `json:"created"`
	Synced  int64           `json:"synced"`
}

func cacheKey(digits string) string { return "cnpj:" + digits }

// Resolve devolve o tenant dono do CNPJ. ok é false quando nenhum tenant o detém.
// Um CNPJ com mais de um dono é erro de integridade.
func (r *Resolver) Resolve(ctx context.Context, raw string) (uuid.UUID, bool, error) {
	digits, err := cnpj.Normalize(raw)
	if err != nil {
		return uuid.Nil, false, err
	}

	if !r.inTx {
		if id, ok := r.cached(ctx, digits); ok {
			metrics.ResolverLookups.WithLabelValues("cache_hit").Inc()
			return id, true, nil
		}
		v, err, _ := r.group.Do(digits, func() (any, error) {
			return r.lookup(ctx, digits)
		})
		if err != nil {
			return uuid.Nil, false, err
		}
		res := v.(lookupResult)
		if res.found {
			r.remember(ctx, digits, res.tenantID)
		}
		return res.tenantID, res.found, nil
	}

	res, err := r.lookup(ctx, digits)
	if err != nil {
		return uuid.Nil, false, err
	}
	return res.tenantID, res.found, nil
}

type lookupResult struct {
	tenantID uuid.UUID
	found    bool
	owner    *repo.CNPJOwner
}

func (r *Resolver) lookup(ctx context.Context, digits string) (lookupResult, error) {
	owners, err := r.store.FindCNPJOwners(ctx, digits)
	if err != nil {
		metrics.ResolverLookups.WithLabelValues("error").Inc()
		return lookupResult{}, fmt.Errorf("buscar dono do CNPJ: %w", err)
	}
	if len(owners) == 0 {
		metrics.ResolverLookups.WithLabelValues("none").Inc()
		return lookupResult{}, nil
	}

	first := owners[0]
	for _, o := range owners[1:] {
		if o.TenantID != first.TenantID {
			metrics.ResolverLookups.WithLabelValues("integrity").Inc()
			r.logger.Error().Str("cnpj", digits).Int("owners", len(owners)).Msg("CNPJ vinculado a mais de um tenant")
			return lookupResult{}, apperr.Integrity("CNPJ %s vinculado a mais de um tenant", cnpj.Format(digits))
		}
	}
	metrics.ResolverLookups.WithLabelValues("found").Inc()
	return lookupResult{tenantID: first.TenantID, found: true, owner: &first}, nil
}

func (r *Resolver) cached(ctx context.Context, digits string) (uuid.UUID, bool) {
	if r.cache == nil {
		return uuid.Nil, false
	}
	val, err := r.cache.Get(ctx, cacheKey(digits))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			r.logger.Warn().Err(err).Str("cnpj", digits).Msg("falha ao ler cache")
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (r *Resolver) remember(ctx context.Context, digits string, tenantID uuid.UUID) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(digits), tenantID.String(), r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("cnpj", digits).Msg("falha ao gravar cache")
	}
}

// Invalidate remove CNPJs do cache, por exemplo após a troca do CNPJ principal.
func (r *Resolver) Invalidate(ctx context.Context, raws ...string) {
	if r.cache == nil || len(raws) == 0 {
		return
	}
	keys := make([]string, 0, len(raws))
	for _, raw := range raws {
		if digits, err := cnpj.Normalize(raw); err == nil {
			keys = append(keys, cacheKey(digits))
		}
	}
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn().Err(err).Strs("keys", keys).Msg("falha ao invalidar cache")
	}
}

// within executa fn na transação corrente ou abre uma nova.
func (r *Resolver) within(ctx context.Context, fn func(*Resolver) error) error {
	if r.inTx {
		return fn(r)
	}
	return r.store.WithTx(ctx, func(tx repo.Store) error {
		return fn(r.WithStore(tx))
	})
}

// BindCnpj vincula um CNPJ adicional ao tenant e sincroniza seus órfãos na mesma
// transação. Revincular ao mesmo tenant é idempotente; CNPJ de outro tenant é Conflict
// e nada é alterado.
func (r *Resolver) BindCnpj(ctx context.Context, tenantID uuid.UUID, raw, descricao string) (BindResult, error) {
	digits, err := cnpj.Normalize(raw)
	if err != nil {
		return BindResult{}, err
	}
	if descricao == "" {
		descricao = DescricaoPadrao
	}

	var result BindResult
	err = r.within(ctx, func(tx *Resolver) error {
		if _, err := tx.store.GetTenantByID(ctx, tenantID); err != nil {
			return err
		}

		res, err := tx.lookup(ctx, digits)
		if err != nil {
			return err
		}
		switch {
		case res.found && res.tenantID != tenantID:
			return apperr.Conflict("CNPJ %s já vinculado a outro tenant", cnpj.Format(digits))
		case res.found && res.owner.Primary:
			result.Binding = repo.TenantCNPJ{TenantID: tenantID, CNPJ: digits, Descricao: DescricaoPrincipal}
		case res.found:
			result.Binding = *res.owner.Binding
		default:
			binding, err := tx.store.CreateTenantCNPJ(ctx, repo.CreateTenantCNPJParams{
				TenantID:  tenantID,
				CNPJ:      digits,
				Descricao: descricao,
			})
			if err != nil {
				return err
			}
			result.Binding = binding
			result.Created = true
		}

		result.Synced, err = tx.assign(ctx, tenantID, digits, "bind")
		return err
	})
	if err != nil {
		return BindResult{}, err
	}
	return result, nil
}

// SyncOrphans vincula ao tenant os lançamentos órfãos do CNPJ. O CNPJ precisa
// pertencer ao tenant. Repetir a chamada sem novos órfãos devolve zero.
func (r *Resolver) SyncOrphans(ctx context.Context, tenantID uuid.UUID, raw string) (int64, error) {
	digits, err := cnpj.Normalize(raw)
	if err != nil {
		return 0, err
	}

	var synced int64
	err = r.within(ctx, func(tx *Resolver) error {
		synced, err = tx.syncOwned(ctx, tenantID, digits, "orphans")
		return err
	})
	return synced, err
}

// SyncAll repete SyncOrphans para o CNPJ principal e todos os adicionais do tenant.
// Serve para reparar lançamentos ingeridos fora de ordem. Qualquer CNPJ com dono
// ambíguo interrompe a operação inteira com Integrity.
func (r *Resolver) SyncAll(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	err := r.within(ctx, func(tx *Resolver) error {
		t, err := tx.store.GetTenantByID(ctx, tenantID)
		if err != nil {
			return err
		}
		extras, err := tx.store.ListTenantCNPJs(ctx, tenantID)
		if err != nil {
			return err
		}

		cnpjs := make([]string, 0, len(extras)+1)
		cnpjs = append(cnpjs, t.CNPJ)
		for _, c := range extras {
			cnpjs = append(cnpjs, c.CNPJ)
		}
		for _, c := range cnpjs {
			n, err := tx.syncOwned(ctx, tenantID, c, "all")
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	return total, err
}

// syncOwned confirma que o tenant é o único dono do CNPJ antes de vincular os órfãos.
func (r *Resolver) syncOwned(ctx context.Context, tenantID uuid.UUID, digits, origin string) (int64, error) {
	res, err := r.lookup(ctx, digits)
	if err != nil {
		return 0, err
	}
	if !res.found {
		return 0, apperr.NotFound("CNPJ %s não está vinculado a nenhum tenant", cnpj.Format(digits))
	}
	if res.tenantID != tenantID {
		return 0, apperr.Conflict("CNPJ %s pertence a outro tenant", cnpj.Format(digits))
	}
	return r.assign(ctx, tenantID, digits, origin)
}

func (r *Resolver) assign(ctx context.Context, tenantID uuid.UUID, digits, origin string) (int64, error) {
	n, err := r.store.AssignOrphans(ctx, digits, tenantID)
	if err != nil {
		return 0, fmt.Errorf("sincronizar lançamentos do CNPJ %s: %w", digits, err)
	}
	if n > 0 {
		metrics.LancamentosSynced.WithLabelValues(origin).Add(float64(n))
		r.logger.Info().Str("tenant_id", tenantID.String()).Str("cnpj", digits).Int64("count", n).
			Str("origin", origin).Msg("lançamentos sincronizados")
	}
	return n, nil
}
