package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"luxe-store/internal/model"

	"github.com/rs/zerolog"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeDomainError maps err to a status code. Domain errors keep their code
// and message; anything else becomes a 500 with fallback as the message.
func writeDomainError(w http.ResponseWriter, err error, fallback string, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Msg(fallback)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
			Error: fallback,
			Code:  model.ErrCodeInternalError,
		})
		return
	}

	status := statusForCode(domainErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("handler error")
	} else {
		logger.Debug().Str("code", domainErr.Code).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, model.ErrorResponse{
		Error: domainErr.Message,
		Code:  domainErr.Code,
	})
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeCheckoutInProgress:
		return http.StatusConflict
	case model.ErrCodePaymentDeclined:
		return http.StatusPaymentRequired
	case model.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, logger zerolog.Logger) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		logger.Debug().Err(err).Msg("invalid request body")
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Error: "invalid request body",
			Code:  model.ErrCodeInvalidJSON,
		})
		return false
	}
	return true
}
