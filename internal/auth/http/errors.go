package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

var (
	ErrInvalidRequest = &httpx.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "The request is missing a required field or is malformed.",
	}
	ErrInvalidContentType = &httpx.APIError{
		StatusCode:  http.StatusUnsupportedMediaType,
		Code:        "invalid_request",
		Description: "Content-Type must be application/json.",
	}
	ErrDuplicateEmail = &httpx.APIError{
		StatusCode:  http.StatusConflict,
		Code:        "duplicate_email",
		Description: "Email already exists",
	}
	ErrInvalidCredentials = &httpx.APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Description: "Invalid credentials",
	}
	ErrInactiveAccount = &httpx.APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "inactive_account",
		Description: "Account is disabled",
	}
	ErrInvalidToken = &httpx.APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        "invalid_token",
		Description: "Invalid token",
	}
	ErrServerError = &httpx.APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        "server_error",
		Description: "An internal error occurred.",
	}
)

// invalidField reports which field failed shape validation.
func invalidField(desc string) *httpx.APIError {
	return &httpx.APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        "invalid_request",
		Description: desc,
	}
}

// writeServiceError maps service errors onto API errors. Anything unknown is
// logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateEmail):
		ErrDuplicateEmail.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInactiveAccount):
		ErrInactiveAccount.WriteError(w)
	case errors.Is(err, service.ErrInvalidToken):
		ErrInvalidToken.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error(op+" failed", "err", err)
		ErrServerError.WriteError(w)
	}
}
