package common

// AppError carries a failure across the service boundary together with the
// HTTP status and machine-readable code the handler should render. The
// wrapped cause stays reachable through errors.Is and errors.As.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    any
	Err        error
}

// NewAppError builds an AppError wrapping cause. A nil cause is allowed.
func NewAppError(code, message string, status int, cause error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: cause}
}

func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

// Unwrap exposes the cause to the errors package.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
