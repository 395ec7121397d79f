package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited signals a provider rate limit hit (transient).
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable signals a transient embedding provider failure.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrProviderRejected signals a permanent embedding provider failure.
	ErrProviderRejected = errors.New("embedding provider rejected request")
)

// IsTransient reports whether an embedding failure is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
