// Package cnpj normaliza e valida o identificador de contribuinte usado para
// vincular lançamentos a tenants. A forma canônica armazenada é de 14 dígitos.
package cnpj

import (
	"strings"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

// Length é o total de dígitos de um CNPJ.
const Length = 14

// Normalize aceita "00.000.000/0000-00" ou 14 dígitos e devolve a forma canônica.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Invalid("CNPJ obrigatório")
	}

	var b strings.Builder
	b.Grow(Length)
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '/' || r == '-':
		default:
			return "", apperr.Invalid("CNPJ deve estar no formato 00.000.000/0000-00")
		}
	}

	digits := b.String()
	if len(digits) != Length {
		return "", apperr.Invalid("CNPJ deve conter 14 dígitos")
	}
	return digits, nil
}

// Format aplica a máscara 00.000.000/0000-00 sobre a forma canônica.
func Format(digits string) string {
	if len(digits) != Length {
		return digits
	}
	return digits[0:2] + "." + digits[2:5] + "." + digits[5:8] + "/" + digits[8:12] + "-" + digits[12:14]
}

// ValidChecksum verifica os dígitos verificadores (módulo 11).
func ValidChecksum(digits string) bool {
	if len(digits) != Length {
		return false
	}
	allEqual := true
	for i := 1; i < Length; i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	first := checkDigit(digits[:12], []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	second := checkDigit(digits[:13], []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2})
	return int(digits[12]-'0') == first && int(digits[13]-'0') == second
}

func checkDigit(digits string, weights []int) int {
	sum := 0
	for i, w := range weights {
		sum += int(digits[i]-'0') * w
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}
