package apperror

import "fmt"

// AppError is an error that carries the HTTP status code it should be
// reported with. Expected business failures are values of this type;
// anything else reaching the transport layer is treated as unexpected.
type AppError struct {
	Code    int    // HTTP status code (400, 403, 404, 409, ...)
	Message string // User-facing message
	Err     error  // Underlying cause, not exposed to clients
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates an AppError with a formatted message.
func Newf(code int, format string, args ...any) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
