// Package httperrors maps domain error codes onto HTTP statuses so handlers
// translate typed business outcomes mechanically, never by string matching.
package httperrors

import (
	"net/http"

	dErrors "curanet/pkg/domain-errors"
)

// ToHTTPStatus maps a domain error code to an HTTP status code.
func ToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeAccessDenied:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvalidState:
		return http.StatusConflict
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeUnavailable, dErrors.CodeAuditWriteFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError resolves the HTTP status for any error via its domain code.
func FromError(err error) int {
	return ToHTTPStatus(dErrors.CodeOf(err))
}
