package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/role"
)

// UserStore persiste contas de usuário.
type UserStore interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error)
	GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error)
	ListUsuarios(ctx context.Context, filter UsuarioFilter) ([]Usuario, error)
	CreateUsuario(ctx context.Context, arg CreateUsuarioParams) (Usuario, error)
	UpdateUsuario(ctx context.Context, arg UpdateUsuarioParams) (Usuario, error)
	DeleteUsuario(ctx context.Context, id uuid.UUID) error
	DeleteUsuariosByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	TouchUltimoAcesso(ctx context.Context, id uuid.UUID, at time.Time) error
	CountUsuariosByRole(ctx context.Context, r role.Role) (int64, error)
}

// TenantStore persiste tenants e seus CNPJs.
type TenantStore interface {
	GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	ListTenants(ctx context.Context, scope isolation.Scope) ([]Tenant, error)
	CreateTenant(ctx context.Context, arg CreateTenantParams) (Tenant, error)
	UpdateTenant(ctx context.Context, arg UpdateTenantParams) (Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID) error
	ListTenantCNPJs(ctx context.Context, tenantID uuid.UUID) ([]TenantCNPJ, error)
	CreateTenantCNPJ(ctx context.Context, arg CreateTenantCNPJParams) (TenantCNPJ, error)
	DeleteTenantCNPJsByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	// FindCNPJOwners devolve todos os tenants que detêm o CNPJ, como principal ou adicional.
	FindCNPJOwners(ctx context.Context, cnpj string) ([]CNPJOwner, error)
}

// LancamentoStore lê lançamentos e altera apenas o vínculo com tenant.
type LancamentoStore interface {
	// AssignOrphans vincula ao tenant os lançamentos do CNPJ com tenant_id nulo.
	AssignOrphans(ctx context.Context, cnpj string, tenantID uuid.UUID) (int64, error)
	CountLancamentosByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	ListLancamentos(ctx context.Context, filter LancamentoFilter) ([]Lancamento, int64, error)
	GetLancamento(ctx context.Context, id uuid.UUID, scope isolation.Scope) (Lancamento, error)
	LancamentoStats(ctx context.Context, filter LancamentoFilter) (LancamentoStats, error)
}

// Store agrega os repositórios e o agrupamento transacional.
type Store interface {
	UserStore
	TenantStore
	LancamentoStore
	// WithTx executa fn numa transação serializável; erro em fn desfaz tudo.
	// Chamadas aninhadas reutilizam a transação corrente.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UsuarioFilter restringe listagens de usuários.
type UsuarioFilter struct {
	Scope isolation.Scope
	Role  *role.Role
	Ativo *bool
}

// CreateUsuarioParams contém os campos gravados na criação.
type CreateUsuarioParams struct {
	Nome      string
	Email     string
	SenhaHash string
	Role      role.Role
	TenantID  *uuid.UUID
	Ativo     bool
	CriadoPor *uuid.UUID
}

// UpdateUsuarioParams substitui os campos mutáveis da conta.
type UpdateUsuarioParams struct {
	ID            uuid.UUID
	Nome          string
	SenhaHash     string
	Role          role.Role
	TenantID      *uuid.UUID
	Ativo         bool
	AtualizadoPor *uuid.UUID
}

// CreateTenantParams contém os campos gravados na criação.
type CreateTenantParams struct {
	Nome         string
	CNPJ         string
	EmailContato string
	Cidade       *string
	Estado       *string
	Ativo        bool
	CriadoPor    *uuid.UUID
}

// UpdateTenantParams substitui os campos mutáveis do tenant.
type UpdateTenantParams struct {
	ID            uuid.UUID
	Nome          string
	CNPJ          string
	EmailContato  string
	Cidade        *string
	Estado        *string
	Ativo         bool
	AtualizadoPor *uuid.UUID
}

// CreateTenantCNPJParams vincula um CNPJ adicional.
type CreateTenantCNPJParams struct {
	TenantID  uuid.UUID
	CNPJ      string
	Descricao string
}

// LancamentoFilter reúne os filtros de leitura. Scope é sempre aplicado antes dos
// demais predicados.
type LancamentoFilter struct {
	Scope     isolation.Scope
	Ano       *int
	Mes       *int
	TpRepasse string
	Banco     string
	Agencia   string
	Conta     string
	Search    string
	CNPJ      string
	Municipio string
	UF        string
	SortBy    string
	SortDesc  bool
	Page      int
	Limit     int
}

// HasConta informa se o filtro de conta bancária está completo.
func (f LancamentoFilter) HasConta() bool {
	return f.Banco != "" && f.Agencia != "" && f.Conta != ""
}

// Offset calcula o deslocamento da página corrente.
func (f LancamentoFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// SortColumns mapeia os campos ordenáveis para colunas.
var SortColumns = map[string]string{
	"ano":           "ano",
	"mes":           "mes",
	"tp_repasse":    "tp_repasse",
	"municipio":     "municipio",
	"uf":            "uf",
	"valor_bruto":   "valor_bruto",
	"valor_liquido": "valor_liquido",
	"criado_em":     "criado_em",
}
