package cart

import (
	"errors"
	"fmt"
)

var (
	ErrCatalogFetch = errors.New("catalog fetch failed")
	ErrCartFetch    = errors.New("cart fetch failed")

	// ErrStaleResponse marks a response superseded by a newer request for
	// the same resource. Internal ordering guard, never shown to users.
	ErrStaleResponse = errors.New("stale response discarded")
)

type MutationOp string

const (
	OpRead  MutationOp = "read"
	OpWrite MutationOp = "write"
)

// MutationError wraps a failed step of the read-modify-write cycle. Op tells
// the caller whether the remote cart could have changed: a failed read or a
// failed write both leave it untouched, but only a write failure after an
// out-of-band change can lose that change.
type MutationError struct {
	Op  MutationOp
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("cart %s failed: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
