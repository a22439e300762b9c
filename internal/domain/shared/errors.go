package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes for the order fulfillment taxonomy. InvalidTransition is kept
// distinct from plain validation errors so clients can tell "wrong state"
// apart from "bad input".
const (
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeCaptureConflict     = "CAPTURE_CONFLICT"
	CodeDeviceUnavailable   = "DEVICE_UNAVAILABLE"
	CodeProposalViolation   = "PROPOSAL_VIOLATION"
	CodeInvalidWeight       = "INVALID_WEIGHT"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Transition not allowed from current status")
	ErrCaptureConflict     = NewDomainError(CodeCaptureConflict, "Weight reading already captured")
	ErrCaptureInProgress   = NewDomainError(CodeCaptureConflict, "Another capture is in progress on this session")
	ErrDeviceUnavailable   = NewDomainError(CodeDeviceUnavailable, "Weighbridge device is unreachable")
	ErrProposalViolation   = NewDomainError(CodeProposalViolation, "Change proposal may alter only date and time")
	ErrNegativeNetWeight   = NewDomainError(CodeInvalidWeight, "Gross weight is lower than tare weight")
)
