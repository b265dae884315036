package storage

import "context"

// Storage is a durable string-keyed byte store, the process-side equivalent of
// a browser's local storage. Implementations are safe for concurrent use.
type Storage interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Clear removes every key owned by this storage.
	Clear(ctx context.Context) error
}
