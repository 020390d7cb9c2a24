package replay

import (
	"fmt"

	"github.com/xraph/redrive/id"
)

// ProjectionError wraps a projector failure, including recovered panics.
// The record stays in the store.
type ProjectionError struct {
	RecordID id.DeadLetterID
	Subject  string
	Err      error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection of %s failed: %v", e.Subject, e.Err)
}

func (e *ProjectionError) Unwrap() error { return e.Err }

// StoreError wraps a dead-letter store failure. Op is "get_dead_letters"
// or "remove_dead_letter".
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("dead letter store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
