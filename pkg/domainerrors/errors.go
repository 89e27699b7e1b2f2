package domainerrors

import "net/http"

// Code is a machine-readable error code. The redemption codes form a closed
// taxonomy: scanners and participant apps switch on them, so new failure modes
// must be added here rather than invented ad hoc in handlers.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
	CodeUnavailable  Code = "unavailable"

	// Redemption failure taxonomy. A token absent from the store and a token
	// already consumed are reported identically on purpose, so a scanner
	// cannot distinguish the two cases.
	CodeInvalidOrUsedToken Code = "invalid_or_used_token"
	CodeExpired            Code = "expired"
	CodeAgendaMismatch     Code = "agenda_mismatch"
	CodeDuplicateCheckIn   Code = "duplicate_checkin"
	CodeStorageError       Code = "storage_error"
)

// Error carries a code alongside a human-readable message. Services return
// these; the HTTP layer maps them to statuses with ToHTTPStatus.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a coded domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf extracts the code from an error, falling back to CodeInternal for
// anything that is not a domain error.
func CodeOf(err error) Code {
	if de, ok := err.(*Error); ok {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeInvalidOrUsedToken, CodeExpired, CodeAgendaMismatch:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateCheckIn:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeStorageError, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
