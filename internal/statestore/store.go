package statestore

import "context"

// Persisted keys.
const (
	KeyToken = "token"
	KeyTheme = "theme"
)

// Store is the persisted client-side key-value state.
// Every write or delete is visible to the next Get in the same process.
type Store interface {
	// Get returns the value of key and whether it is present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the backend.
	Close() error
}
