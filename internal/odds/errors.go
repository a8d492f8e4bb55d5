package odds

import "errors"

// Error taxonomy shared by the source adapters, the service and the HTTP layer.
var (
	// ErrUpstreamUnavailable covers network errors, timeouts and non-2xx responses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedRecord marks a single event, bookmaker or market that could not be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNotConfigured is returned before any network call when a credential is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrNotFound is returned when an event id or team match is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery marks caller input that cannot be served, such as an unknown market key.
	ErrInvalidQuery = errors.New("invalid query")
)
