package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
)

var validate = validator.New()

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainErrors.ErrOrderNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrPaymentNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrPaymentNotApproved, http.StatusBadRequest, "payment_not_approved"},
	{domainErrors.ErrReceiptExpired, http.StatusBadRequest, "receipt_expired"},
	{domainErrors.ErrReceiptTokenMismatch, http.StatusBadRequest, "invalid_token"},
	{domainErrors.ErrAmountMismatch, http.StatusBadRequest, "amount_mismatch"},
	{domainErrors.ErrUnknownJobType, http.StatusBadRequest, "unknown_job_type"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	writeJSON(w, status, resp)
}

// errorResponse maps err to a status and body. Store failures carry the
// driver message as details.
func errorResponse(err error) (int, ErrorResponse) {
	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, ErrorResponse{Error: validationErr.Message, Code: "validation_error"}
	}

	var storeErr *domainErrors.StoreError
	if errors.As(err, &storeErr) {
		log.Error().Err(err).Msg("store error in handler")
		return http.StatusInternalServerError, ErrorResponse{
			Error:   storeErr.Message,
			Code:    "store_error",
			Details: storeErr.Details(),
		}
	}

	resp := ErrorResponse{Error: err.Error()}
	var domainErr *domainErrors.DomainError
	isDomain := errors.As(err, &domainErr)
	if isDomain {
		resp.Error = domainErr.Message
		resp.Code = domainErr.Code
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			if resp.Code == "" {
				resp.Code = m.code
			}
			return m.status, resp
		}
	}

	if isDomain {
		return http.StatusUnprocessableEntity, resp
	}

	log.Error().Err(err).Msg("unhandled error in handler")
	resp.Code = "internal_error"
	return http.StatusInternalServerError, resp
}

// requiredMessager lets a request DTO replace the per-field message produced
// for a missing required field.
type requiredMessager interface {
	requiredMessage() string
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			if rm, ok := dst.(requiredMessager); ok && ve[0].Tag() == "required" {
				return domainErrors.NewValidationError(ve[0].Field(), rm.requiredMessage())
			}
			return domainErrors.NewValidationError(ve[0].Field(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

// parseUUID returns nil when s is not a UUID.
func parseUUID(s string) *uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
