package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/lancamentos/internal/apperr"
)

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeServiceError traduz os erros do domínio para status HTTP. Erros fora do
// domínio são registrados e respondidos sem detalhes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.KindOf(err) {
	case apperr.ErrNotFound:
		WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case apperr.ErrConflict:
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case apperr.ErrDenied:
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), map[string]string{"rule": apperr.RuleOf(err)})
	case apperr.ErrInvalid:
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case apperr.ErrIntegrity:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("inconsistência de dados")
		WriteError(w, http.StatusInternalServerError, "INTEGRITY", "inconsistência de dados, contate o suporte", nil)
	default:
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).
			Str("path", r.URL.Path).Msg("erro interno")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

// decodeJSON lê o corpo da requisição; corpo vazio é tratado como erro de validação.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "VALIDATION", "corpo muito grande", nil)
			return false
		}
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return false
	}
	return true
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}
