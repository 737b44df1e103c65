// Package store keeps the operator-curated list of redirect candidates.
package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalid is wrapped by every ValidationError.
	ErrInvalid = errors.New("invalid input")
)

// ValidationError reports a rejected title or url. Nothing is written when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalid }

// StorageReadError describes a persisted collection that could not be decoded.
// List logs it and carries on with an empty collection, and mutations
// overwrite it.
type StorageReadError struct {
	Key string
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read %q: %v", e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// LinkStoreIface exposes the link list operations used by the admin surfaces.
type LinkStoreIface interface {
	List(ctx context.Context) []LinkRecord
	Add(ctx context.Context, title, url string) (*LinkRecord, error)
	Update(ctx context.Context, id, title, url string) (*LinkRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
	MostRecent(ctx context.Context) (*LinkRecord, bool)
}
