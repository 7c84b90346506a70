package board

import (
	"errors"
	"fmt"
)

// ErrNoItem is returned by Tx.GetItemForUpdate when the id does not exist.
var ErrNoItem = errors.New("board: no such item")

// ErrSerialization marks a transaction the store aborted because of an
// isolation conflict. Move retries these before giving up.
var ErrSerialization = errors.New("board: serialization conflict")

// NotFoundError reports a move against an item that does not exist.
type NotFoundError struct {
	ItemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ItemID)
}

// InvalidArgumentError reports a lane outside the closed enumeration or
// a position outside the allowed range.
type InvalidArgumentError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// StorageError wraps a store failure. The transaction it came from was
// rolled back; nothing was persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("board %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ConflictError surfaces after a Move exhausted its serialization retries.
type ConflictError struct {
	Attempts int
	Err      error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("move conflicted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
