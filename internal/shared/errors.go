package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrSourceCredentials  = fmt.Errorf("missing source credentials") // per source, never fatal

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrUserNotFound = fmt.Errorf("library user not found")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrSourceUnavailable  = fmt.Errorf("source unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrSectionNotFound    = fmt.Errorf("library section not found")
	ErrMissingMetadata    = fmt.Errorf("missing metadata")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
