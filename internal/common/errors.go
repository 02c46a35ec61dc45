// Package common defines shared constants and sentinel errors used across
// the vault subsystem. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Crypto-layer errors.
	ErrKeyUnavailable     = errors.New("encryption key unavailable")
	ErrTamperOrCorruption = errors.New("decryption failed: data corrupt or tampered")

	// Catalog errors.
	ErrItemNotFound   = errors.New("item not found")
	ErrIndexCorrupted = errors.New("vault index corrupted")

	// Credential errors.
	ErrLockedOut           = errors.New("credential verification locked out")
	ErrCredentialMismatch  = errors.New("credential mismatch")
	ErrRecoveryCodeInvalid = errors.New("recovery code expired or invalid")
	ErrVaultLocked         = errors.New("vault is locked")
	ErrCredentialNotSet    = errors.New("credential not set")

	// Storage errors.
	ErrInsufficientStorage = errors.New("insufficient storage")
)
