package relay

import "errors"

// Client-input errors. Both reject the request before any upstream call
// or session mutation.
var (
	// ErrMissingCredential means no API key was resolvable from the
	// request or the server configuration.
	ErrMissingCredential = errors.New("API key is required: provide it in the request or configure it on the server")

	// ErrEmptyMessage means the request carried no message content and
	// did not ask for a clear.
	ErrEmptyMessage = errors.New("message is required")
)
