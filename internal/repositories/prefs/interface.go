package prefs

import "context"

// Repository is a small key-value store for preferences and gatekeeper
// state (code salt/verifier, onboarding flags, visibility preference).
type Repository interface {
	// Get returns the stored value, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value, replacing any previous one.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key. Removing an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear removes every key.
	Clear(ctx context.Context) error
}
