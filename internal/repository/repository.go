package repository

import "context"

// KeyValueStore is string-keyed local storage. A missing key is reported
// with found=false and a nil error. Implementations are safe for concurrent
// use and scope every key to their own namespace.
type KeyValueStore interface {
	// Get returns the value stored under key.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key in the namespace.
	Clear(ctx context.Context) error

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
}
