package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gestaozabele/lancamentos/internal/cache"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/repo/memory"
	"github.com/gestaozabele/lancamentos/internal/role"
	"github.com/gestaozabele/lancamentos/internal/tenant"
)

const (
	cnpjZabele   = "11111111000111"
	cnpjEstadual = "22222222000122"
	cnpjOutro    = "33333333000133"
)

type env struct {
	ctx      context.Context
	store    *memory.Store
	cache    cache.Client
	resolver *tenant.Resolver
	users    *UserService
	tenants  *TenantService
	lancs    *LancamentoService
	super    repo.Usuario
}

func fakeHash(p string) (string, error) { return "hash:" + p, nil }

func newEnv(t *testing.T) env {
	t.Helper()
	store := memory.New()
	c := cache.NewMemory("test", time.Minute)
	resolver := tenant.NewResolver(store, c, time.Minute, zerolog.Nop())

	e := env{
		ctx:      context.Background(),
		store:    store,
		cache:    c,
		resolver: resolver,
		users:    NewUserService(store, zerolog.Nop()),
		tenants:  NewTenantService(store, resolver, zerolog.Nop()),
		lancs:    NewLancamentoService(store),
	}
	e.users.hash = fakeHash
	e.tenants.hash = fakeHash
	e.super = e.seedUser(t, role.SuperAdmin, nil)
	return e
}

func (e env) seedUser(t *testing.T, r role.Role, tenantID *uuid.UUID) repo.Usuario {
	t.Helper()
	u, err := e.store.CreateUsuario(e.ctx, repo.CreateUsuarioParams{
		Nome:      string(r) + " teste",
		Email:     uuid.NewString() + "@zabele.pb.gov.br",
		SenhaHash: "hash:senha-forte",
		Role:      r,
		TenantID:  tenantID,
		Ativo:     true,
	})
	require.NoError(t, err)
	return u
}

func (e env) seedTenant(t *testing.T, nome, digits string) repo.Tenant {
	t.Helper()
	tn, err := e.store.CreateTenant(e.ctx, repo.CreateTenantParams{Nome: nome, CNPJ: digits, EmailContato: "contato@gov.br", Ativo: true})
	require.NoError(t, err)
	return tn
}

func (e env) orphan(digits string) repo.Lancamento {
	return e.store.AddLancamento(repo.Lancamento{
		CNPJ:         digits,
		Ano:          2024,
		Mes:          3,
		TpRepasse:    "FPM",
		UF:           "PB",
		Municipio:    "Zabelê",
		ValorBruto:   100,
		ValorLiquido: 90,
	})
}

func (e env) tenantOf(t *testing.T, id uuid.UUID) *uuid.UUID {
	t.Helper()
	l, err := e.store.GetLancamento(e.ctx, id, isolation.Scope{Unrestricted: true})
	require.NoError(t, err)
	return l.TenantID
}

func ptr[T any](v T) *T { return &v }
