package util

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

// NormalizeEmail remove espaços e converte para minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperr.Invalid("email obrigatório")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Invalid("email inválido")
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return apperr.Invalid("senha deve ter pelo menos 8 caracteres")
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Invalid("%s obrigatório", field)
	}
	return nil
}

// ValidateNome exige ao menos três caracteres.
func ValidateNome(nome string) error {
	if utf8.RuneCountInString(strings.TrimSpace(nome)) < 3 {
		return apperr.Invalid("nome deve ter pelo menos 3 caracteres")
	}
	return nil
}

// ValidateUF aceita siglas de estado com duas letras.
func ValidateUF(uf string) error {
	if len(uf) != 2 || strings.ToUpper(uf) != uf || strings.ContainsAny(uf, "0123456789") {
		return apperr.Invalid("estado deve ser a sigla da UF com duas letras maiúsculas")
	}
	return nil
}

// OptionalString devolve nil para textos vazios.
func OptionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
