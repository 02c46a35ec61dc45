// Package keystore abstracts durable, OS-backed storage for the vault's two
// secrets: the master encryption key and the credential material (salt and
// derived verifier). Implementations must keep secrets outside regular
// application data so they are not captured by generic backups.
package keystore

import (
	"context"
	"errors"
)

// Well-known secret identifiers.
const (
	MasterKeyID          = "vault.master-key"
	CredentialSaltID     = "credential.salt"
	CredentialVerifierID = "credential.verifier"
)

// ErrNotFound is returned by Retrieve when no secret exists under the id.
var ErrNotFound = errors.New("secret not found")

// Store is the secret storage contract. Implementations must treat Delete of
// a missing secret as a no-op: deletion is used on irreversible destroy paths
// and must be idempotent.
type Store interface {
	// Store persists value under id, replacing any previous value.
	Store(ctx context.Context, id string, value []byte) error

	// Retrieve returns the value stored under id, or ErrNotFound.
	Retrieve(ctx context.Context, id string) ([]byte, error)

	// Delete removes the secret stored under id, if any.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a secret is stored under id.
	Exists(ctx context.Context, id string) (bool, error)
}
