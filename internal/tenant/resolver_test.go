package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/repo/memory"
)

const (
	cnpjT1       = "11111111000111"
	cnpjT2       = "33333333000133"
	cnpjEstadual = "22222222000122"
)

type fixture struct {
	store    *memory.Store
	cache    cache.Client
	resolver *Resolver
	t1, t2   repo.Tenant
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	c := cache.NewMemory("test", time.Minute)

	t1, err := store.CreateTenant(ctx, repo.CreateTenantParams{Nome: "T1", CNPJ: cnpjT1, EmailContato: "t1@gov.br", Ativo: true})
	require.NoError(t, err)
	t2, err := store.CreateTenant(ctx, repo.CreateTenantParams{Nome: "T2", CNPJ: cnpjT2, EmailContato: "t2@gov.br", Ativo: true})
	require.NoError(t, err)

	return fixture{
		store:    store,
		cache:    c,
		resolver: NewResolver(store, c, time.Minute, zerolog.Nop()),
		t1:       t1,
		t2:       t2,
	}
}

func (f fixture) tenantOf(t *testing.T, id uuid.UUID) *uuid.UUID {
	t.Helper()
	l, err := f.store.GetLancamento(context.Background(), id, isolation.Scope{Unrestricted: true})
	require.NoError(t, err)
	return l.TenantID
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	id, ok, err := f.resolver.Resolve(ctx, "11.111.111/0001-11")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.t1.ID, id)

	_, ok, err = f.resolver.Resolve(ctx, "99999999000199")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = f.resolver.Resolve(ctx, "123")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestResolveCachesOnlyPositiveResults(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, ok, err := f.resolver.Resolve(ctx, cnpjEstadual)
	require.NoError(t, err)
	require.False(t, ok)
	_, err = f.cache.Get(ctx, cacheKey(cnpjEstadual))
	require.ErrorIs(t, err, cache.ErrNotFound)

	_, err = f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Estadual")
	require.NoError(t, err)

	id, ok, err := f.resolver.Resolve(ctx, cnpjEstadual)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, f.t1.ID, id)

	val, err := f.cache.Get(ctx, cacheKey(cnpjEstadual))
	require.NoError(t, err)
	require.Equal(t, f.t1.ID.String(), val)

	f.resolver.Invalidate(ctx, cnpjEstadual)
	_, err = f.cache.Get(ctx, cacheKey(cnpjEstadual))
	require.ErrorIs(t, err, cache.ErrNotFound)
}

type twoOwnersStore struct {
	*memory.Store
	owners []repo.CNPJOwner
}

func (s twoOwnersStore) FindCNPJOwners(context.Context, string) ([]repo.CNPJOwner, error) {
	return s.owners, nil
}

func TestResolveIntegrityWhenBoundTwice(t *testing.T) {
	store := twoOwnersStore{
		Store:  memory.New(),
		owners: []repo.CNPJOwner{{TenantID: uuid.New(), Primary: true}, {TenantID: uuid.New(), Binding: &repo.TenantCNPJ{}}},
	}
	r := NewResolver(store, nil, time.Minute, zerolog.Nop())

	_, _, err := r.Resolve(context.Background(), cnpjT1)
	require.ErrorIs(t, err, apperr.ErrIntegrity)
}

func TestBindCnpjSyncsOrphans(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjEstadual, Ano: 2024, Mes: 1})

	res, err := f.resolver.BindCnpj(ctx, f.t1.ID, "22.222.222/0001-22", "")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, DescricaoPadrao, res.Binding.Descricao)
	require.Equal(t, cnpjEstadual, res.Binding.CNPJ)
	require.EqualValues(t, 1, res.Synced)
	require.Equal(t, f.t1.ID, *f.tenantOf(t, orphan.ID))
}

func TestBindCnpjIdempotentForSameTenant(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	first, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Estadual")
	require.NoError(t, err)

	again, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Outra descrição")
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, first.Binding.ID, again.Binding.ID)
	require.Equal(t, "Estadual", again.Binding.Descricao)

	primary, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjT1, "")
	require.NoError(t, err)
	require.False(t, primary.Created)
	require.Equal(t, DescricaoPrincipal, primary.Binding.Descricao)

	cnpjs, err := f.store.ListTenantCNPJs(ctx, f.t1.ID)
	require.NoError(t, err)
	require.Len(t, cnpjs, 1)
}

func TestBindCnpjConflictLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Estadual")
	require.NoError(t, err)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjEstadual, Ano: 2024, Mes: 2})

	_, err = f.resolver.BindCnpj(ctx, f.t2.ID, "22.222.222/0001-22", "Estadual")
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.resolver.BindCnpj(ctx, f.t2.ID, cnpjT1, "")
	require.ErrorIs(t, err, apperr.ErrConflict)

	cnpjs, err := f.store.ListTenantCNPJs(ctx, f.t2.ID)
	require.NoError(t, err)
	require.Empty(t, cnpjs)
	require.Nil(t, f.tenantOf(t, orphan.ID))
}

func TestBindCnpjUnknownTenant(t *testing.T) {
	f := setup(t)
	_, err := f.resolver.BindCnpj(context.Background(), uuid.New(), cnpjEstadual, "")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncOrphansIdempotentAndMonotonic(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT1, Ano: 2024, Mes: 1})
	foreign := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT1, Ano: 2024, Mes: 1, TenantID: &f.t2.ID})

	n, err := f.resolver.SyncOrphans(ctx, f.t1.ID, cnpjT1)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = f.resolver.SyncOrphans(ctx, f.t1.ID, cnpjT1)
	require.NoError(t, err)
	require.Zero(t, n)

	require.Equal(t, f.t1.ID, *f.tenantOf(t, orphan.ID))
	require.Equal(t, f.t2.ID, *f.tenantOf(t, foreign.ID))
}

func TestSyncOrphansRejectsForeignOrUnboundCNPJ(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT2, Ano: 2024, Mes: 1})

	_, err := f.resolver.SyncOrphans(ctx, f.t1.ID, cnpjT2)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.Nil(t, f.tenantOf(t, orphan.ID))

	_, err = f.resolver.SyncOrphans(ctx, f.t1.ID, "99999999000199")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSyncAllCoversEveryCNPJ(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Estadual")
	require.NoError(t, err)

	f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT1, Ano: 2024, Mes: 1})
	f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjEstadual, Ano: 2024, Mes: 1})
	f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjEstadual, Ano: 2024, Mes: 2})
	f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT2, Ano: 2024, Mes: 1})

	n, err := f.resolver.SyncAll(ctx, f.t1.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	n, err = f.resolver.SyncAll(ctx, f.t1.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestSyncAllRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT1, Ano: 2024, Mes: 1})
	_, err := f.resolver.BindCnpj(ctx, f.t1.ID, cnpjEstadual, "Estadual")
	require.NoError(t, err)

	f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjEstadual, Ano: 2024, Mes: 1})

	boom := errors.New("falha no banco")
	f.store.FailAfter("AssignOrphans", 1, boom)

	_, err = f.resolver.SyncAll(ctx, f.t1.ID)
	require.ErrorIs(t, err, boom)
	require.Nil(t, f.tenantOf(t, orphan.ID))
}

// ambiguousStore acrescenta um segundo dono a um CNPJ, inclusive dentro de transações.
type ambiguousStore struct {
	*memory.Store
	cnpj  string
	extra uuid.UUID
}

func (s ambiguousStore) FindCNPJOwners(ctx context.Context, digits string) ([]repo.CNPJOwner, error) {
	owners, err := s.Store.FindCNPJOwners(ctx, digits)
	if err != nil || digits != s.cnpj {
		return owners, err
	}
	return append(owners, repo.CNPJOwner{TenantID: s.extra, Binding: &repo.TenantCNPJ{TenantID: s.extra, CNPJ: digits}}), nil
}

func (s ambiguousStore) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repo.Store) error {
		return fn(ambiguousStore{Store: tx.(*memory.Store), cnpj: s.cnpj, extra: s.extra})
	})
}

func TestSyncRefusesCNPJWithTwoOwners(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	orphan := f.store.AddLancamento(repo.Lancamento{CNPJ: cnpjT1, Ano: 2024, Mes: 3})
	r := NewResolver(ambiguousStore{Store: f.store, cnpj: cnpjT1, extra: f.t2.ID}, nil, time.Minute, zerolog.Nop())

	_, err := r.SyncOrphans(ctx, f.t1.ID, cnpjT1)
	require.ErrorIs(t, err, apperr.ErrIntegrity)

	n, err := r.SyncAll(ctx, f.t1.ID)
	require.ErrorIs(t, err, apperr.ErrIntegrity)
	require.Zero(t, n)
	require.Nil(t, f.tenantOf(t, orphan.ID))

	_, err = r.SyncAll(ctx, f.t2.ID)
	require.ErrorIs(t, err, apperr.ErrIntegrity)
	require.Nil(t, f.tenantOf(t, orphan.ID))
}
