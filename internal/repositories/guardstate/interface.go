// Package guardstate persists the credential guard's operational state:
// failure counters, lockout expiry, and the outstanding recovery-code digest.
// None of it is cryptographic material, so it lives in the local state
// database rather than the keystore.
package guardstate

import "context"

// Well-known state keys.
const (
	KeyFailedAttempts  = "failed_attempts"
	KeyLockedUntil     = "locked_until"
	KeyRecoveryDigest  = "recovery_digest"
	KeyRecoveryExpires = "recovery_expires_at"
)

// Repository is a small key/value store for guard state. Get returns
// (nil, nil) when the key is absent.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
