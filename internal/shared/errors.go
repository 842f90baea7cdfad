package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrFileNotFound       = fmt.Errorf("drive file not found")
	ErrNetwork            = fmt.Errorf("network error")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidLink     = fmt.Errorf("invalid Google Drive URL")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")

	// Job store errors
	ErrDuplicateID       = fmt.Errorf("duplicate job id")
	ErrJobNotFound       = fmt.Errorf("job not found")
	ErrJobActive         = fmt.Errorf("job is active")
	ErrJobFinalized      = fmt.Errorf("job already finished")
	ErrInvalidTransition = fmt.Errorf("invalid status transition")

	// Transfer errors
	ErrTransferFailed  = fmt.Errorf("transfer failed")
	ErrTransferTimeout = fmt.Errorf("transfer phase timed out")
	ErrCancelled       = fmt.Errorf("transfer cancelled")
	ErrBusy            = fmt.Errorf("a clone run is already in progress")
)

// ValidationError is a user-facing input error tied to a single field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}
