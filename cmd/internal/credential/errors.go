package credential

import (
	"errors"
)

// Error kinds returned by Service. Callers map them to responses with errors.Is.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateUser      = errors.New("duplicate user")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInternal           = errors.New("internal error")
)

// Failure reasons carried by ErrInvalidCredentials. They are for server-side logs only.
const (
	ReasonNotFound    = "not_found"
	ReasonBadPassword = "bad_password"
)

// Error is the only error type returned by Service.
// Error() prints Op and Kind only; Err holds the cause for logging and errors.As.
type Error struct {
	Op     string
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	return e.Op + ": " + e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason returns the log-only reason attached to err, or "".
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

func newError(op string, kind, cause error) *Error {
	return &Error{Op: op, Kind: kind, Err: cause}
}
