// Package apperr define os tipos de erro do domínio.
//
// Cada erro carrega um tipo (NotFound, Conflict, Denied, Invalid, Integrity) acessível
// via errors.Is contra as sentinelas exportadas. Negações de política carregam ainda a
// regra que falhou, para que o chamador nunca receba um "acesso negado" genérico.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indica registro inexistente (ator ou alvo).
	ErrNotFound = errors.New("registro não encontrado")
	// ErrConflict indica violação de unicidade (email, CNPJ já vinculado).
	ErrConflict = errors.New("conflito")
	// ErrDenied indica regra de política não satisfeita.
	ErrDenied = errors.New("acesso negado")
	// ErrInvalid indica entrada malformada.
	ErrInvalid = errors.New("dados inválidos")
	// ErrIntegrity indica estado inconsistente no armazenamento.
	ErrIntegrity = errors.New("inconsistência de dados")
)

// Error é o erro tipado devolvido pelo núcleo.
type Error struct {
	Kind   error
	Rule   string
	Reason string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Kind }

// NotFound cria erro de registro inexistente.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Conflict cria erro de unicidade.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Reason: fmt.Sprintf(format, args...)}
}

// Denied cria erro de política identificando a regra violada.
func Denied(rule, format string, args ...any) error {
	return &Error{Kind: ErrDenied, Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// Invalid cria erro de validação.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalid, Reason: fmt.Sprintf(format, args...)}
}

// Integrity cria erro de inconsistência de dados.
func Integrity(format string, args ...any) error {
	return &Error{Kind: ErrIntegrity, Reason: fmt.Sprintf(format, args...)}
}

// KindOf devolve a sentinela correspondente ao erro, ou nil se não for do domínio.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrDenied, ErrInvalid, ErrIntegrity} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// RuleOf devolve a regra de política associada ao erro, se houver.
func RuleOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Rule
	}
	return ""
}
