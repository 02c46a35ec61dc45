// Package cryptox implements the vault's authenticated encryption and key
// derivation. All blobs are sealed with AES-256-GCM; the master key lives in
// the keystore and is created on first use.
package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/keystore"
)

const (
	// MasterKeySize is the AES-256 key length in bytes.
	MasterKeySize = 32

	gcmNonceSize = 12
)

// DeriveVerifier derives a 32-byte verifier from a credential and salt using
// argon2id. The parameters (t=1, m=64MiB, p=4) cost roughly 100ms on
// commodity hardware: expensive enough to blunt brute force, cheap enough
// for interactive unlock.
//
// The same inputs always produce the same output, so the result can be
// stored and compared against later submissions.
func DeriveVerifier(credential, salt []byte) []byte {
	return argon2.IDKey(credential, salt, 1, 64*1024, 4, 32)
}

// VerifierEqual compares two verifiers in constant time. The comparison cost
// does not depend on where the first mismatching byte occurs.
func VerifierEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Engine seals and opens byte buffers with the vault master key. Sealed
// output is self-contained (nonce || ciphertext || tag) and requires nothing
// but the key to reverse. The zero value is not usable; construct with
// NewEngine.
type Engine struct {
	keys  keystore.Store
	group singleflight.Group

	mu  sync.RWMutex
	key []byte // cached master key, nil until first use
}

func NewEngine(keys keystore.Store) *Engine {
	return &Engine{keys: keys}
}

// masterKey returns the vault master key, creating and persisting a fresh
// random one on very first use. Concurrent first-use calls are collapsed by
// singleflight so exactly one key is ever generated.
func (e *Engine) masterKey(ctx context.Context) ([]byte, error) {
	e.mu.RLock()
	if e.key != nil {
		defer e.mu.RUnlock()
		return e.key, nil
	}
	e.mu.RUnlock()

	v, err, _ := e.group.Do(keystore.MasterKeyID, func() (any, error) {
		e.mu.RLock()
		if e.key != nil {
			defer e.mu.RUnlock()
			return e.key, nil
		}
		e.mu.RUnlock()

		key, err := e.keys.Retrieve(ctx, keystore.MasterKeyID)
		if err != nil {
			if !errors.Is(err, keystore.ErrNotFound) {
				return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
			}
			key = common.GenerateRandByteArray(MasterKeySize)
			if err := e.keys.Store(ctx, keystore.MasterKeyID, key); err != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
			}
		}
		if len(key) != MasterKeySize {
			return nil, fmt.Errorf("%w: stored key has %d bytes", common.ErrKeyUnavailable, len(key))
		}

		e.mu.Lock()
		e.key = key
		e.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Seal encrypts plaintext with the master key and returns
// nonce || ciphertext || tag as a single self-contained unit.
func (e *Engine) Seal(ctx context.Context, plaintext []byte) ([]byte, error) {
	key, err := e.masterKey(ctx)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}

	nonce := common.GenerateRandByteArray(gcmNonceSize)

	out := make([]byte, 0, len(nonce)+len(plaintext)+aesgcm.Overhead())
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plaintext, nil), nil
}

// Open decrypts a unit produced by Seal. Any bit flip, truncation, or key
// mismatch yields common.ErrTamperOrCorruption; Open never returns altered
// plaintext.
func (e *Engine) Open(ctx context.Context, sealed []byte) ([]byte, error) {
	key, err := e.masterKey(ctx)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}

	if len(sealed) < gcmNonceSize+aesgcm.Overhead() {
		return nil, fmt.Errorf("%w: sealed unit too short", common.ErrTamperOrCorruption)
	}
	nonce, ciphertext := sealed[:gcmNonceSize], sealed[gcmNonceSize:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTamperOrCorruption, err)
	}
	return plaintext, nil
}

// DestroyKey irreversibly deletes the master key from the keystore and wipes
// the in-memory copy. Every blob sealed with the old key becomes permanently
// unopenable; a later Seal will mint a fresh key. This is only reachable
// through the explicit vault-destruction path.
func (e *Engine) DestroyKey(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.keys.Delete(ctx, keystore.MasterKeyID); err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyUnavailable, err)
	}
	common.WipeByteArray(e.key)
	e.key = nil
	return nil
}
