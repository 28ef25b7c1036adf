package realtime

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeAuthRejected         ErrorCode = "AUTH_REJECTED"
	CodeValidation           ErrorCode = "VALIDATION_ERROR"
	CodePersistenceFailure   ErrorCode = "PERSISTENCE_FAILURE"
	CodeAlreadyAuthenticated ErrorCode = "ALREADY_AUTHENTICATED"
	CodeUnauthenticated      ErrorCode = "UNAUTHENTICATED"
	CodeUnknownEvent         ErrorCode = "UNKNOWN_EVENT"
	CodeBadPayload           ErrorCode = "BAD_PAYLOAD"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// Error is reported back to the client as an error event. None of them end the process.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the code of a realtime error, or "" for anything else.
func CodeOf(err error) ErrorCode {
	var rtErr *Error
	if errors.As(err, &rtErr) {
		return rtErr.Code
	}
	return ""
}

// ErrStaleSession marks a disconnect of a connection that no longer owns its user's binding.
// It is logged and otherwise ignored.
var ErrStaleSession = errors.New("stale session")
