package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Validation errors
	ErrValidation = fmt.Errorf("validation failed")
	ErrTemplate   = fmt.Errorf("%w: invalid template", ErrValidation)

	// Authentication errors
	ErrAuthState              = fmt.Errorf("invalid authorization state")
	ErrAuthorizationRequired  = fmt.Errorf("authorization required")
	ErrNotAuthenticated       = fmt.Errorf("not authenticated")
	ErrCredentialsUnavailable = fmt.Errorf("credential store unavailable")

	// API and service errors
	ErrConnection = fmt.Errorf("connection to Discogs failed")
	ErrNotFound   = fmt.Errorf("not found")
	ErrDataShape  = fmt.Errorf("unexpected data shape")

	// Input validation errors
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
