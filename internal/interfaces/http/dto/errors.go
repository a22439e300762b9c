package dto

import (
	"net/http"
	"strings"

	"github.com/betonplant/backend/internal/domain/shared"
)

// Transport-level error codes. Domain codes (INVALID_TRANSITION and friends)
// come from the shared package and pass through unchanged.
const (
	ErrCodeInternal     = "INTERNAL"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
)

// Weighing session error codes issued by the session manager
const (
	ErrCodeSessionExists      = "SESSION_EXISTS"
	ErrCodeNoSession          = "NO_SESSION"
	ErrCodeIncompleteWeighing = "INCOMPLETE_WEIGHING"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes. The mapping
// keeps "wrong state" (422) distinct from "bad input" (400) and "lost a
// race" (409) so clients can decide between fixing the request and retrying.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,

	"ALREADY_EXISTS": http.StatusConflict,
	"INVALID_INPUT":  http.StatusBadRequest,

	shared.CodeConcurrencyConflict: http.StatusConflict,
	shared.CodeCaptureConflict:     http.StatusConflict,
	shared.CodeInvalidTransition:   http.StatusUnprocessableEntity,
	shared.CodeProposalViolation:   http.StatusUnprocessableEntity,
	shared.CodeInvalidWeight:       http.StatusUnprocessableEntity,
	shared.CodeDeviceUnavailable:   http.StatusServiceUnavailable,

	ErrCodeSessionExists:      http.StatusConflict,
	ErrCodeNoSession:          http.StatusUnprocessableEntity,
	ErrCodeIncompleteWeighing: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code. Unmapped
// INVALID_* codes come from domain field validation and map to 400;
// everything else unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
