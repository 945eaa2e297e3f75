package relay

import "fmt"

// ValidationError rejects a malformed intent before any nonce is
// reserved.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid intent: %s %s", e.Field, e.Reason)
}

// BroadcastRejectedError is a proven terminal rejection: the node
// evaluated the transaction and refused it, or the chain confirmed it
// never reached a mempool. The reservation was aborted and will be
// reissued to the same id on retry.
type BroadcastRejectedError struct {
	Reason string
	Err    error
}

func (e *BroadcastRejectedError) Error() string {
	return fmt.Sprintf("broadcast rejected (%s): %v", e.Reason, e.Err)
}

func (e *BroadcastRejectedError) Unwrap() error {
	return e.Err
}

// StorageError means a durable write failed. The system fails closed: a
// submission is never reported accepted unless its record committed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
