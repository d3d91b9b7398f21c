// Package errs holds the sentinel error kinds from spec.md §7, so callers
// across packages can classify a wrapped error with errors.Is without
// importing whichever package first produced it.
package errs

import "errors"

var (
	// ErrConfig marks malformed or missing configuration. Fatal at
	// startup; surfaced directly to the operator.
	ErrConfig = errors.New("config error")

	// ErrIO marks a store or filesystem failure. Logged; store
	// operations bubble it up to the caller, the persister drops the
	// batch.
	ErrIO = errors.New("io error")

	// ErrCodec marks a value serialization/deserialization failure.
	// Latest-value decode failures are coerced to value.None by the
	// caller rather than propagated; write-side codec errors bubble up.
	ErrCodec = errors.New("codec error")

	// ErrNetwork marks a failure raised by an adapter, not the core.
	// The service loop returns; the supervisor cools down and restarts.
	ErrNetwork = errors.New("network error")

	// ErrProtocol marks an unknown value tag, invalid compass point, or
	// bad schema version. Logged and surfaced.
	ErrProtocol = errors.New("protocol error")

	// ErrCancelled marks a channel closure during an orderly shutdown.
	// Terminal, but never logged as an error.
	ErrCancelled = errors.New("cancelled")
)

// IsCancelled reports whether err (or anything it wraps) is ErrCancelled,
// the one sentinel that callers should treat as routine rather than worth
// logging at error level.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
