package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for the auth core. Specific errors wrap their category so callers
// can test either level with errors.Is.
var (
	// Configuration errors are fatal at startup
	ErrConfig = errors.New("configuration error")

	// Protocol errors abort the request (bad or missing OAuth state, code or tokens)
	ErrProtocol            = errors.New("protocol error")
	ErrInvalidState        = fmt.Errorf("%w: invalid state", ErrProtocol)
	ErrMissingCodeOrState  = fmt.Errorf("%w: missing code or state", ErrProtocol)
	ErrTokenExchangeFailed = fmt.Errorf("%w: token exchange failed", ErrProtocol)
	ErrMissingIDToken      = fmt.Errorf("%w: missing id token", ErrProtocol)
	ErrInvalidIDToken      = fmt.Errorf("%w: invalid id token", ErrProtocol)
	ErrAuthorizationDenied = fmt.Errorf("%w: authorization denied by provider", ErrProtocol)

	// Validation errors are reported to the client as JSON
	ErrValidation         = errors.New("validation error")
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrValidation)
	ErrUserExists         = fmt.Errorf("%w: user may already exist", ErrValidation)
	ErrInvalidResetToken  = fmt.Errorf("%w: invalid or expired reset token", ErrValidation)

	// Security
	ErrCsrfRejected = errors.New("csrf validation failed")
	ErrRateLimited  = errors.New("too many requests")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Lookups
	ErrNotFound         = errors.New("not found")
	ErrProviderNotFound = fmt.Errorf("%w: provider", ErrNotFound)

	// General errors
	ErrInternal = errors.New("internal error")
)

// HTTPStatus maps an error chain to the status code returned to the client.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrProtocol):
		return http.StatusBadRequest
	case errors.Is(err, ErrCsrfRejected), errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// publicErrors are reported to clients by their own text, never by the wrapping chain,
// so upstream detail (provider responses, driver errors) is not echoed back.
var publicErrors = []error{
	ErrInvalidState,
	ErrMissingCodeOrState,
	ErrTokenExchangeFailed,
	ErrMissingIDToken,
	ErrInvalidIDToken,
	ErrAuthorizationDenied,
	ErrInvalidResetToken,
	ErrUnauthorized,
	ErrForbidden,
	ErrRateLimited,
}

// PublicMessage returns a client-safe message for err. Internal failures never leak detail.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, ErrUserExists):
		return "User may already exist"
	case errors.Is(err, ErrInvalidResetToken):
		return "Invalid or expired reset token"
	case errors.Is(err, ErrCsrfRejected):
		return "Invalid CSRF token"
	case errors.Is(err, ErrProviderNotFound):
		return "Provider not found"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	}
	for _, e := range publicErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	if errors.Is(err, ErrValidation) {
		// validation failures are raised with a client-facing message and not wrapped further
		return err.Error()
	}
	if errors.Is(err, ErrProtocol) {
		return ErrProtocol.Error()
	}
	return "Internal server error"
}
