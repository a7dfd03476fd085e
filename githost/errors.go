package githost

import "errors"

// Sentinel errors classifying upstream failures. Implementations wrap
// these with context; callers test with errors.Is.
var (
	// ErrRefNotFound reports that a branch or other named ref does
	// not exist on the host.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefConflict reports that a ref update was rejected because
	// it was not a fast-forward, i.e. another writer moved the ref
	// since it was read.
	ErrRefConflict = errors.New("ref update conflict")

	// ErrNotFound reports that a repository or object does not
	// exist on the host.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable reports a transport, timeout, or
	// authentication failure talking to the host.
	ErrUnavailable = errors.New("host unavailable")
)
