package repo

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/role"
)

// Usuario representa uma conta de acesso à plataforma.
type Usuario struct {
	ID            uuid.UUID  `json:"id"`
	Nome          string     `json:"nome"`
	Email         string     `json:"email"`
	SenhaHash     string     `json:"-"`
	Role          role.Role  `json:"role"`
	TenantID      *uuid.UUID `json:"tenant_id"`
	Ativo         bool       `json:"ativo"`
	UltimoAcesso  *time.Time `json:"ultimo_acesso,omitempty"`
	CriadoEm      time.Time  `json:"criado_em"`
	AtualizadoEm  time.Time  `json:"atualizado_em"`
	CriadoPor     *uuid.UUID `json:"criado_por,omitempty"`
	AtualizadoPor *uuid.UUID `json:"atualizado_por,omitempty"`
}

// Tenant representa um município cliente.
type Tenant struct {
	ID            uuid.UUID    `json:"id"`
	Nome          string       `json:"nome"`
	CNPJ          string       `json:"cnpj"`
	EmailContato  string       `json:"email_contato"`
	Cidade        *string      `json:"cidade"`
	Estado        *string      `json:"estado"`
	Ativo         bool         `json:"ativo"`
	CriadoEm      time.Time    `json:"criado_em"`
	AtualizadoEm  time.Time    `json:"atualizado_em"`
	CriadoPor     *uuid.UUID   `json:"criado_por,omitempty"`
	AtualizadoPor *uuid.UUID   `json:"atualizado_por,omitempty"`
	CNPJs         []TenantCNPJ `json:"cnpjs,omitempty"`
}

// TenantCNPJ vincula um CNPJ adicional (ex.: Estadual) a um tenant.
type TenantCNPJ struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	CNPJ      string    `json:"cnpj"`
	Descricao string    `json:"descricao"`
	CriadoEm  time.Time `json:"criado_em"`
}

// CNPJOwner descreve um tenant que detém o CNPJ consultado.
// Binding vem preenchido quando o vínculo é um CNPJ adicional.
type CNPJOwner struct {
	TenantID uuid.UUID
	Primary  bool
	Binding  *TenantCNPJ
}

// Lancamento é um repasse financeiro ingerido externamente. Apenas TenantID é
// alterado por esta aplicação.
type Lancamento struct {
	ID                   uuid.UUID  `json:"id"`
	TenantID             *uuid.UUID `json:"tenant_id"`
	CNPJ                 string     `json:"cnpj"`
	NuProcesso           *string    `json:"nu_processo"`
	NuPortaria           *string    `json:"nu_portaria"`
	DtPortaria           *time.Time `json:"dt_portaria"`
	Ano                  int        `json:"ano"`
	Mes                  int        `json:"mes"`
	NuCompetencia        *string    `json:"nu_competencia"`
	DiaPagamento         *int       `json:"dia_pagamento"`
	TpRepasse            string     `json:"tp_repasse"`
	NuOB                 *string    `json:"nu_ob"`
	CoTipoRecurso        *string    `json:"co_tipo_recurso"`
	TpRecursoProp        *string    `json:"tp_recurso_prop"`
	RecursoCovidOuNormal *string    `json:"recurso_covid_ou_normal"`
	UF                   string     `json:"uf"`
	CoMunicipioIBGE      string     `json:"co_municipio_ibge"`
	Municipio            string     `json:"municipio"`
	Entidade             *string    `json:"entidade"`
	Bloco                *string    `json:"bloco"`
	Componente           *string    `json:"componente"`
	Programa             *string    `json:"programa"`
	NuProposta           *string    `json:"nu_proposta"`
	Banco                *string    `json:"banco"`
	Agencia              *string    `json:"agencia"`
	Conta                *string    `json:"conta"`
	ValorBruto           float64    `json:"valor_bruto"`
	Desconto             float64    `json:"desconto"`
	ValorLiquido         float64    `json:"valor_liquido"`
	DtSaldoConta         *time.Time `json:"dt_saldo_conta"`
	VlSaldoConta         *float64   `json:"vl_saldo_conta"`
	MarcadorEmendaCovid  *string    `json:"marcador_emenda_covid"`
	CriadoEm             time.Time  `json:"criado_em"`
	AtualizadoEm         time.Time  `json:"atualizado_em"`
}

// Periodo identifica ano e mês de competência.
type Periodo struct {
	Ano int `json:"ano"`
	Mes int `json:"mes"`
}

// TipoRepasseTotal agrega lançamentos por tipo de repasse.
type TipoRepasseTotal struct {
	Tipo  string `json:"tipo"`
	Total int64  `json:"total"`
}

// ContaBancariaTotal agrega lançamentos por conta bancária.
type ContaBancariaTotal struct {
	Banco   string `json:"banco"`
	Agencia string `json:"agencia"`
	Conta   string `json:"conta"`
	Total   int64  `json:"total"`
}

// LancamentoStats resume os lançamentos visíveis ao ator.
type LancamentoStats struct {
	TotalLancamentos   int64                `json:"total_lancamentos"`
	ValorTotalBruto    float64              `json:"valor_total_bruto"`
	ValorTotalLiquido  float64              `json:"valor_total_liquido"`
	PeriodoMaisRecente *Periodo             `json:"periodo_mais_recente"`
	Anos               []int                `json:"anos"`
	TiposRepasse       []TipoRepasseTotal   `json:"tipos_repasse"`
	ContasBancarias    []ContaBancariaTotal `json:"contas_bancarias"`
}
