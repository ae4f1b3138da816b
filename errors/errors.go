package errors

import "fmt"

// DriverError is an error carrying one of the DiskoError kinds, optionally
// decorated with a message and/or a wrapped cause.
type DriverError interface {
	error
	// WithMessage returns a new DriverError with message appended, keeping
	// the original kind reachable via errors.Is.
	WithMessage(message string) DriverError
	// WrapError returns a new DriverError with err recorded as the cause,
	// keeping the original kind reachable via errors.Is.
	WrapError(err error) DriverError
}

// -----------------------------------------------------------------------------

type customDriverError struct {
	kind          DiskoError
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e customDriverError) Error() string {
	if e.originalError != nil {
		return fmt.Sprintf("%s: %s", e.message, e.originalError.Error())
	}
	return e.message
}

func (e customDriverError) WithMessage(message string) DriverError {
	return customDriverError{
		kind:          e.kind,
		message:       fmt.Sprintf("%s: %s", e.message, message),
		originalError: e.originalError,
	}
}

func (e customDriverError) WrapError(err error) DriverError {
	return customDriverError{
		kind:          e.kind,
		message:       e.message,
		originalError: err,
	}
}

func (e customDriverError) Unwrap() error {
	if e.originalError != nil {
		return e.originalError
	}
	return e.kind
}

// Is reports whether target is the DiskoError kind this error originated
// from, so errors.Is(err, errors.ErrOutOfRange) keeps working after
// WithMessage/WrapError have decorated it.
func (e customDriverError) Is(target error) bool {
	kind, ok := target.(DiskoError)
	return ok && kind == e.kind
}
