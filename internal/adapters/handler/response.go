package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanielPopoola/coinpay-gateway/internal/core/domain"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondWithJSON(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: status >= 200 && status < 300,
	}

	if response.Success {
		response.Data = data
	} else if apiErr, ok := data.(*APIError); ok {
		response.Error = apiErr
	}

	writeJSON(w, status, response)
}

func respondWithError(w http.ResponseWriter, err error) {
	status, apiErr := mapError(err)
	respondWithJSON(w, status, apiErr)
}

// mapError turns domain and gateway failures into an HTTP status and body.
// Anything unrecognised is reported as an internal error without its detail.
func mapError(err error) (int, *APIError) {
	if gwErr, ok := domain.IsGatewayError(err); ok {
		return gatewayStatus(gwErr.Code), &APIError{Code: gwErr.Code, Message: gwErr.Message}
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL_ERROR", Message: "internal server error"}
	}

	status := http.StatusBadRequest
	switch domainErr.Code {
	case domain.ErrCodeValidation, domain.ErrCodeInvalidPhone, domain.ErrCodeInvalidAmount,
		domain.ErrCodeInvalidCoins, domain.ErrCodeMissingRequiredField:
		status = http.StatusBadRequest
	case domain.ErrCodePaymentNotFound:
		status = http.StatusNotFound
	case domain.ErrCodeInvalidTransition, domain.ErrCodeVersionConflict:
		status = http.StatusConflict
	case domain.ErrCodeInsufficientBalance:
		status = http.StatusUnprocessableEntity
	case domain.ErrCodeRateLimited:
		status = http.StatusTooManyRequests
	case domain.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case domain.ErrCodeServer:
		return http.StatusInternalServerError, &APIError{Code: "INTERNAL_ERROR", Message: "internal server error"}
	default:
		status = gatewayStatus(domainErr.Code)
	}

	return status, &APIError{Code: domainErr.Code, Message: domainErr.Message}
}

func gatewayStatus(code string) int {
	switch code {
	case domain.ErrCodeConfig, domain.ErrCodeToken, domain.ErrCodeNetwork:
		return http.StatusServiceUnavailable
	case domain.ErrCodeSTKFailed, domain.ErrCodeParse, domain.ErrCodeServer:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
