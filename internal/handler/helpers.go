// Package handler exposes the loyalty core over HTTP. Identity arrives from
// the external auth layer as an X-Customer-ID header; everything else is
// plain JSON in, JSON out.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/restaurant-loyalty/internal/apperr"
)

const customerIDHeader = "X-Customer-ID"

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithError(w http.ResponseWriter, code int, message, errCode string) {
	respondWithJSON(w, code, ErrorResponse{Error: message, Code: errCode})
}

// respondWithServiceError translates a service error: structured domain
// errors carry their own status and code, anything else is a 500 behind a
// generic message.
func respondWithServiceError(w http.ResponseWriter, err error, fallback string) {
	if appErr := apperr.From(err); appErr != nil {
		respondWithError(w, statusForKind(appErr.Kind), appErr.Message, appErr.Code)
		return
	}
	log.Error().Err(err).Msg(fallback)
	respondWithError(w, http.StatusInternalServerError, fallback, "")
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindPrecondition:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// customerID pulls the authenticated customer from the header the auth
// gateway sets. Responds 401 itself when it is missing or malformed.
func customerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(customerIDHeader)
	if raw == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing customer identity", "")
		return uuid.Nil, false
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Str("customer_id", raw).Msg("Failed to parse customer id header")
		respondWithError(w, http.StatusUnauthorized, "Invalid customer identity", "")
		return uuid.Nil, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", "")
		return false
	}
	return true
}

func validateStruct(w http.ResponseWriter, validate *validator.Validate, payload any) bool {
	err := validate.Struct(payload)
	if err == nil {
		return true
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
		respondWithError(w, http.StatusInternalServerError, "Internal validation error", "")
		return false
	}

	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "Validation failed", Details: details})
	return false
}

func pathID(w http.ResponseWriter, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(raw)
	if err != nil {
		log.Warn().Err(err).Str(name, raw).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter", "")
		return uuid.Nil, false
	}
	return id, true
}
