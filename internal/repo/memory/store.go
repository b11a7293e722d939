// Package memory implementa repo.Store em memória, com as mesmas restrições de
// unicidade do schema PostgreSQL. Usado em testes e no modo de desenvolvimento.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/lancamentos/internal/apperr"
	"github.com/gestaozabele/lancamentos/internal/isolation"
	"github.com/gestaozabele/lancamentos/internal/repo"
	"github.com/gestaozabele/lancamentos/internal/role"
)

type state struct {
	usuarios    map[uuid.UUID]repo.Usuario
	tenants     map[uuid.UUID]repo.Tenant
	cnpjs       map[uuid.UUID]repo.TenantCNPJ
	lancamentos map[uuid.UUID]repo.Lancamento
}

func newState() *state {
	return &state{
		usuarios:    map[uuid.UUID]repo.Usuario{},
		tenants:     map[uuid.UUID]repo.Tenant{},
		cnpjs:       map[uuid.UUID]repo.TenantCNPJ{},
		lancamentos: map[uuid.UUID]repo.Lancamento{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.usuarios {
		c.usuarios[k] = v
	}
	for k, v := range s.tenants {
		c.tenants[k] = v
	}
	for k, v := range s.cnpjs {
		c.cnpjs[k] = v
	}
	for k, v := range s.lancamentos {
		c.lancamentos[k] = v
	}
	return c
}

// Store é seguro para uso concorrente. Transações serializam todo o acesso.
type Store struct {
	mu       *sync.Mutex
	st       *state
	inTx     bool
	failures *failures
	Now      func() time.Time
}

type failures struct {
	mu  sync.Mutex
	ops map[string]*failure
}

type failure struct {
	err  error
	skip int
}

var _ repo.Store = (*Store)(nil)

// New cria um store vazio.
func New() *Store {
	return &Store{
		mu:       &sync.Mutex{},
		st:       newState(),
		failures: &failures{ops: map[string]*failure{}},
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailOn faz a próxima chamada da operação nomeada (ex.: "AssignOrphans") devolver err.
func (s *Store) FailOn(op string, err error) {
	s.FailAfter(op, 0, err)
}

// FailAfter deixa passar skip chamadas da operação e faz a seguinte devolver err.
func (s *Store) FailAfter(op string, skip int, err error) {
	s.failures.mu.Lock()
	defer s.failures.mu.Unlock()
	s.failures.ops[op] = &failure{err: err, skip: skip}
}

func (s *Store) fail(op string) error {
	s.failures.mu.Lock()
	defer s.failures.mu.Unlock()
	f, ok := s.failures.ops[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(s.failures.ops, op)
	return f.err
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// WithTx aplica fn sobre uma cópia do estado e só a publica se fn não falhar.
func (s *Store) WithTx(ctx context.Context, fn func(repo.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, st: s.st.clone(), inTx: true, failures: s.failures, Now: s.Now}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = tx.st
	return nil
}

// AddLancamento simula a ingestão externa de um lançamento.
func (s *Store) AddLancamento(l repo.Lancamento) repo.Lancamento {
	defer s.lock()()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := s.Now()
	if l.CriadoEm.IsZero() {
		l.CriadoEm = now
	}
	l.AtualizadoEm = now
	s.st.lancamentos[l.ID] = l
	return l
}

// Usuarios

func (s *Store) GetUsuarioByID(_ context.Context, id uuid.UUID) (repo.Usuario, error) {
	defer s.lock()()
	u, ok := s.st.usuarios[id]
	if !ok {
		return repo.Usuario{}, apperr.NotFound("usuário não encontrado")
	}
	return u, nil
}

func (s *Store) GetUsuarioByEmail(_ context.Context, email string) (repo.Usuario, error) {
	defer s.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.st.usuarios {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return repo.Usuario{}, apperr.NotFound("usuário não encontrado")
}

func (s *Store) ListUsuarios(_ context.Context, filter repo.UsuarioFilter) ([]repo.Usuario, error) {
	defer s.lock()()
	var out []repo.Usuario
	for _, u := range s.st.usuarios {
		if !filter.Scope.Allows(u.TenantID) {
			continue
		}
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Ativo != nil && u.Ativo != *filter.Ativo {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CriadoEm.Equal(out[j].CriadoEm) {
			return out[i].CriadoEm.After(out[j].CriadoEm)
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (s *Store) checkUsuario(id uuid.UUID, email string, r role.Role, tenantID *uuid.UUID) error {
	for _, other := range s.st.usuarios {
		if other.ID != id && strings.EqualFold(other.Email, email) {
			return apperr.Conflict("email já cadastrado")
		}
	}
	if r.IsPlatform() != (tenantID == nil) {
		return apperr.Invalid("usuário viola a regra usuarios_role_tenant_check")
	}
	if tenantID != nil {
		if _, ok := s.st.tenants[*tenantID]; !ok {
			return apperr.Conflict("usuário: referência inválida (usuarios_tenant_id_fkey)")
		}
	}
	return nil
}

func (s *Store) CreateUsuario(_ context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error) {
	defer s.lock()()
	if err := s.fail("CreateUsuario"); err != nil {
		return repo.Usuario{}, err
	}
	if err := s.checkUsuario(uuid.Nil, arg.Email, arg.Role, arg.TenantID); err != nil {
		return repo.Usuario{}, err
	}
	now := s.Now()
	u := repo.Usuario{
		ID:            uuid.New(),
		Nome:          arg.Nome,
		Email:         arg.Email,
		SenhaHash:     arg.SenhaHash,
		Role:          arg.Role,
		TenantID:      cloneID(arg.TenantID),
		Ativo:         arg.Ativo,
		CriadoEm:      now,
		AtualizadoEm:  now,
		CriadoPor:     cloneID(arg.CriadoPor),
		AtualizadoPor: cloneID(arg.CriadoPor),
	}
	s.st.usuarios[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUsuario(_ context.Context, arg repo.UpdateUsuarioParams) (repo.Usuario, error) {
	defer s.lock()()
	u, ok := s.st.usuarios[arg.ID]
	if !ok {
		return repo.Usuario{}, apperr.NotFound("usuário não encontrado")
	}
	if err := s.checkUsuario(u.ID, u.Email, arg.Role, arg.TenantID); err != nil {
		return repo.Usuario{}, err
	}
	u.Nome = arg.Nome
	u.SenhaHash = arg.SenhaHash
	u.Role = arg.Role
	u.TenantID = cloneID(arg.TenantID)
	u.Ativo = arg.Ativo
	u.AtualizadoPor = cloneID(arg.AtualizadoPor)
	u.AtualizadoEm = s.Now()
	s.st.usuarios[u.ID] = u
	return u, nil
}

func (s *Store) DeleteUsuario(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.usuarios[id]; !ok {
		return apperr.NotFound("usuário não encontrado")
	}
	delete(s.st.usuarios, id)
	return nil
}

func (s *Store) DeleteUsuariosByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	defer s.lock()()
	var n int64
	for id, u := range s.st.usuarios {
		if u.TenantID != nil && *u.TenantID == tenantID {
			delete(s.st.usuarios, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) TouchUltimoAcesso(_ context.Context, id uuid.UUID, at time.Time) error {
	defer s.lock()()
	u, ok := s.st.usuarios[id]
	if !ok {
		return apperr.NotFound("usuário não encontrado")
	}
	u.UltimoAcesso = &at
	s.st.usuarios[id] = u
	return nil
}

func (s *Store) CountUsuariosByRole(_ context.Context, r role.Role) (int64, error) {
	defer s.lock()()
	var n int64
	for _, u := range s.st.usuarios {
		if u.Role == r {
			n++
		}
	}
	return n, nil
}

// Tenants

func (s *Store) GetTenantByID(_ context.Context, id uuid.UUID) (repo.Tenant, error) {
	defer s.lock()()
	t, ok := s.st.tenants[id]
	if !ok {
		return repo.Tenant{}, apperr.NotFound("tenant não encontrado")
	}
	return t, nil
}

func (s *Store) ListTenants(_ context.Context, scope isolation.Scope) ([]repo.Tenant, error) {
	defer s.lock()()
	var out []repo.Tenant
	for _, t := range s.st.tenants {
		id := t.ID
		if scope.Allows(&id) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CriadoEm.Equal(out[j].CriadoEm) {
			return out[i].CriadoEm.After(out[j].CriadoEm)
		}
		return out[i].Nome < out[j].Nome
	})
	return out, nil
}

// cnpjTaken reproduz tenants_cnpj_key, tenant_cnpjs_cnpj_key e o trigger cnpj_exclusivo.
func (s *Store) cnpjTaken(cnpj string, exceptTenant uuid.UUID) bool {
	for _, t := range s.st.tenants {
		if t.ID != exceptTenant && t.CNPJ == cnpj {
			return true
		}
	}
	for _, c := range s.st.cnpjs {
		if c.CNPJ == cnpj {
			return true
		}
	}
	return false
}

func (s *Store) CreateTenant(_ context.Context, arg repo.CreateTenantParams) (repo.Tenant, error) {
	defer s.lock()()
	if err := s.fail("CreateTenant"); err != nil {
		return repo.Tenant{}, err
	}
	if s.cnpjTaken(arg.CNPJ, uuid.Nil) {
		return repo.Tenant{}, apperr.Conflict("CNPJ já vinculado a um tenant")
	}
	now := s.Now()
	t := repo.Tenant{
		ID:            uuid.New(),
		Nome:          arg.Nome,
		CNPJ:          arg.CNPJ,
		EmailContato:  arg.EmailContato,
		Cidade:        arg.Cidade,
		Estado:        arg.Estado,
		Ativo:         arg.Ativo,
		CriadoEm:      now,
		AtualizadoEm:  now,
		CriadoPor:     cloneID(arg.CriadoPor),
		AtualizadoPor: cloneID(arg.CriadoPor),
	}
	s.st.tenants[t.ID] = t
	return t, nil
}

func (s *Store) UpdateTenant(_ context.Context, arg repo.UpdateTenantParams) (repo.Tenant, error) {
	defer s.lock()()
	t, ok := s.st.tenants[arg.ID]
	if !ok {
		return repo.Tenant{}, apperr.NotFound("tenant não encontrado")
	}
	if arg.CNPJ != t.CNPJ && s.cnpjTaken(arg.CNPJ, t.ID) {
		return repo.Tenant{}, apperr.Conflict("CNPJ já vinculado a um tenant")
	}
	t.Nome = arg.Nome
	t.CNPJ = arg.CNPJ
	t.EmailContato = arg.EmailContato
	t.Cidade = arg.Cidade
	t.Estado = arg.Estado
	t.Ativo = arg.Ativo
	t.AtualizadoPor = cloneID(arg.AtualizadoPor)
	t.AtualizadoEm = s.Now()
	s.st.tenants[t.ID] = t
	return t, nil
}

func (s *Store) DeleteTenant(_ context.Context, id uuid.UUID) error {
	defer s.lock()()
	if _, ok := s.st.tenants[id]; !ok {
		return apperr.NotFound("tenant não encontrado")
	}
	for _, u := range s.st.usuarios {
		if u.TenantID != nil && *u.TenantID == id {
			return apperr.Conflict("tenant possui usuários vinculados")
		}
	}
	for _, l := range s.st.lancamentos {
		if l.TenantID != nil && *l.TenantID == id {
			return apperr.Conflict("tenant possui lançamentos vinculados")
		}
	}
	for cid, c := range s.st.cnpjs {
		if c.TenantID == id {
			delete(s.st.cnpjs, cid)
		}
	}
	delete(s.st.tenants, id)
	return nil
}

func (s *Store) ListTenantCNPJs(_ context.Context, tenantID uuid.UUID) ([]repo.TenantCNPJ, error) {
	defer s.lock()()
	var out []repo.TenantCNPJ
	for _, c := range s.st.cnpjs {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CriadoEm.Equal(out[j].CriadoEm) {
			return out[i].CriadoEm.Before(out[j].CriadoEm)
		}
		return out[i].CNPJ < out[j].CNPJ
	})
	return out, nil
}

func (s *Store) CreateTenantCNPJ(_ context.Context, arg repo.CreateTenantCNPJParams) (repo.TenantCNPJ, error) {
	defer s.lock()()
	if err := s.fail("CreateTenantCNPJ"); err != nil {
		return repo.TenantCNPJ{}, err
	}
	if _, ok := s.st.tenants[arg.TenantID]; !ok {
		return repo.TenantCNPJ{}, apperr.Conflict("CNPJ do tenant: referência inválida (tenant_cnpjs_tenant_id_fkey)")
	}
	if s.cnpjTaken(arg.CNPJ, uuid.Nil) {
		return repo.TenantCNPJ{}, apperr.Conflict("CNPJ já vinculado a um tenant")
	}
	c := repo.TenantCNPJ{
		ID:        uuid.New(),
		TenantID:  arg.TenantID,
		CNPJ:      arg.CNPJ,
		Descricao: arg.Descricao,
		CriadoEm:  s.Now(),
	}
	s.st.cnpjs[c.ID] = c
	return c, nil
}

func (s *Store) DeleteTenantCNPJsByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	defer s.lock()()
	var n int64
	for id, c := range s.st.cnpjs {
		if c.TenantID == tenantID {
			delete(s.st.cnpjs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) FindCNPJOwners(_ context.Context, cnpj string) ([]repo.CNPJOwner, error) {
	defer s.lock()()
	if err := s.fail("FindCNPJOwners"); err != nil {
		return nil, err
	}
	var owners []repo.CNPJOwner
	for _, t := range s.st.tenants {
		if t.CNPJ == cnpj {
			owners = append(owners, repo.CNPJOwner{TenantID: t.ID, Primary: true})
		}
	}
	for _, c := range s.st.cnpjs {
		if c.CNPJ == cnpj {
			binding := c
			owners = append(owners, repo.CNPJOwner{TenantID: c.TenantID, Binding: &binding})
		}
	}
	return owners, nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
