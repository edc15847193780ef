package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the stored token is missing, expired or
	// rejected. Never retried: the caller clears the token and returns to
	// the login flow.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict means the server rejected a state transition because it
	// is already in a different state (another exercise running, duplicate
	// team name). Recovery is a refetch of authoritative state, never a
	// blind retry of the same mutation.
	ErrConflict = errors.New("conflict with server state")
)

// TransportError covers network failures and unexpected HTTP statuses.
// Read paths surface it as a retryable error view; write paths roll back
// their optimistic update and resync.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
