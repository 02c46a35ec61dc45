package keystore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps secrets in the operating system credential store
// (Keychain on macOS, Secret Service on Linux, Credential Manager on
// Windows). Secrets live outside the application data directory and are only
// readable while the user session is unlocked. Values are base64-encoded
// because the keyring API stores strings.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a store scoped to the given service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Store(ctx context.Context, id string, value []byte) error {
	encoded := base64.StdEncoding.EncodeToString(value)
	if err := keyring.Set(s.service, id, encoded); err != nil {
		return fmt.Errorf("keyring set %s: %w", id, err)
	}
	return nil
}

func (s *KeyringStore) Retrieve(ctx context.Context, id string) ([]byte, error) {
	encoded, err := keyring.Get(s.service, id)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("keyring get %s: %w", id, err)
	}
	value, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keyring decode %s: %w", id, err)
	}
	return value, nil
}

func (s *KeyringStore) Delete(ctx context.Context, id string) error {
	if err := keyring.Delete(s.service, id); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("keyring delete %s: %w", id, err)
	}
	return nil
}

func (s *KeyringStore) Exists(ctx context.Context, id string) (bool, error) {
	_, err := keyring.Get(s.service, id)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("keyring get %s: %w", id, err)
	}
	return true, nil
}
