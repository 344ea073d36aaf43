package config

import "errors"

var (
	// ErrNotInitialized is returned when config.toml does not exist yet.
	ErrNotInitialized = errors.New("rv is not initialized: run 'rv init' first")

	// ErrMissingHost is returned when connection.host is empty.
	ErrMissingHost = errors.New("config: connection.host is required")

	// ErrMissingUser is returned when connection.user is empty.
	ErrMissingUser = errors.New("config: connection.user is required")
)

// ParseError wraps a TOML decode failure with the file path that failed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "config: failed to parse " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
