package core

import "github.com/pkg/errors"

// Store error kinds. Storage backends translate their native failures to one
// of these before they reach a service; handlers map them to user-facing
// messages so no raw wire error ever leaves the API.
var (
	// ErrPermissionDenied is returned when the store's write rules reject an
	// operation (eg. creating a record that already exists).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailable is returned on connectivity failures. Recoverable by
	// user retry; nothing is retried automatically.
	ErrUnavailable = errors.New("service unavailable")
)

func IsPermissionDenied(err error) bool { return errors.Cause(err) == ErrPermissionDenied }
func IsUnavailable(err error) bool      { return errors.Cause(err) == ErrUnavailable }

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
