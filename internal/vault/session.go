package vault

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/guard"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

// ErrBiometricsUnavailable is returned by UnlockWithBiometrics when no
// authenticator was configured.
var ErrBiometricsUnavailable = errors.New("biometric authentication unavailable")

// BiometricAuthenticator abstracts a platform biometric prompt. A nil error
// means the platform vouched for the user; any error keeps the vault locked
// without touching the PIN failure counters.
type BiometricAuthenticator interface {
	Authenticate(ctx context.Context) error
}

// BiometricFunc adapts a plain function to BiometricAuthenticator.
type BiometricFunc func(ctx context.Context) error

func (f BiometricFunc) Authenticate(ctx context.Context) error { return f(ctx) }

// Session is the single entry point applications use: it gates every data
// operation behind an unlocked state, auto-locks after idleness, and fronts
// the guard for credential and recovery flows.
type Session struct {
	guard *guard.Guard
	store *Store
	bio   BiometricAuthenticator
	log   logging.Logger
	now   func() time.Time

	idleTimeout time.Duration

	mu           sync.Mutex
	unlocked     bool
	lastActivity time.Time
}

// NewSession wires a session over the guard and store. idleTimeout <= 0
// disables auto-locking. bio may be nil when the platform offers no
// biometrics.
func NewSession(g *guard.Guard, store *Store, bio BiometricAuthenticator, idleTimeout time.Duration, log logging.Logger) *Session {
	return &Session{
		guard:       g,
		store:       store,
		bio:         bio,
		log:         log,
		now:         time.Now,
		idleTimeout: idleTimeout,
	}
}

// Unlock verifies the PIN through the guard and, on success, opens the vault.
// Lockout and mismatch errors pass through untouched so callers can present
// remaining-attempt and wait-time details.
func (s *Session) Unlock(ctx context.Context, pin string) error {
	status, err := s.guard.Submit(ctx, pin)
	if err != nil {
		s.log.Warn(ctx, "unlock rejected", "state", status.State)
		return err
	}
	return s.markUnlocked(ctx)
}

// UnlockWithBiometrics unlocks without a PIN. A biometric failure never
// advances the PIN failure counters.
func (s *Session) UnlockWithBiometrics(ctx context.Context) error {
	if s.bio == nil {
		return ErrBiometricsUnavailable
	}
	if err := s.bio.Authenticate(ctx); err != nil {
		s.log.Warn(ctx, "biometric authentication failed", "error", err)
		return err
	}
	return s.markUnlocked(ctx)
}

// Lock closes the vault and purges all decrypted material from memory.
func (s *Session) Lock() {
	s.mu.Lock()
	wasUnlocked := s.unlocked
	s.unlocked = false
	s.mu.Unlock()
	if wasUnlocked {
		s.store.Close()
		s.log.Info(context.Background(), "vault locked")
	}
}

// IsUnlocked reports the session state, applying the idle timeout first.
func (s *Session) IsUnlocked() bool {
	s.checkIdle()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

// Status exposes the guard's view: lockout state, failure counters, and
// remaining wait. Usable while locked.
func (s *Session) Status(ctx context.Context) (guard.Status, error) {
	return s.guard.Status(ctx)
}

// HasCredential reports whether a PIN has been set. Usable while locked.
func (s *Session) HasCredential(ctx context.Context) (bool, error) {
	return s.guard.HasCredential(ctx)
}

// SetCredential sets or changes the PIN. First-time setup is allowed while
// locked; changing an existing PIN requires an unlocked session.
func (s *Session) SetCredential(ctx context.Context, pin string) error {
	has, err := s.guard.HasCredential(ctx)
	if err != nil {
		return err
	}
	if has {
		if err := s.ensureUnlocked(); err != nil {
			return err
		}
	}
	return s.guard.SetCredential(ctx, pin)
}

// IssueRecoveryCode mints a fresh recovery code. Deliberately usable while
// locked out: recovery is the escape hatch from a lockout.
func (s *Session) IssueRecoveryCode(ctx context.Context) (string, error) {
	return s.guard.IssueRecoveryCode(ctx)
}

// ResetWithRecoveryCode trades a valid recovery code for a new PIN. The
// session stays locked afterwards; the user unlocks with the new PIN.
func (s *Session) ResetWithRecoveryCode(ctx context.Context, code, newPIN string) error {
	if err := s.guard.ResetWithRecoveryCode(ctx, code, newPIN); err != nil {
		return err
	}
	s.Lock()
	return nil
}

func (s *Session) AddItem(ctx context.Context, content []byte, originalTS time.Time, sourceRef string) (Item, error) {
	if err := s.ensureUnlocked(); err != nil {
		return Item{}, err
	}
	return s.store.AddItem(ctx, content, originalTS, sourceRef)
}

func (s *Session) AddBatch(ctx context.Context, reqs []AddRequest) ([]AddResult, error) {
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}
	return s.store.AddBatch(ctx, reqs)
}

func (s *Session) GetContent(ctx context.Context, id string) ([]byte, error) {
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}
	return s.store.GetContent(ctx, id)
}

func (s *Session) GetThumbnail(ctx context.Context, id string) ([]byte, error) {
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}
	return s.store.GetThumbnail(ctx, id)
}

func (s *Session) DeleteItem(ctx context.Context, id string) error {
	if err := s.ensureUnlocked(); err != nil {
		return err
	}
	return s.store.DeleteItem(ctx, id)
}

func (s *Session) ListItems(ctx context.Context) ([]Item, error) {
	if err := s.ensureUnlocked(); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx)
}

func (s *Session) ContainsSourceRef(ctx context.Context, sourceRef string) (bool, error) {
	if err := s.ensureUnlocked(); err != nil {
		return false, err
	}
	return s.store.ContainsSourceRef(ctx, sourceRef)
}

func (s *Session) Statistics(ctx context.Context) (Stats, error) {
	if err := s.ensureUnlocked(); err != nil {
		return Stats{}, err
	}
	return s.store.Statistics(ctx)
}

func (s *Session) SweepOrphans(ctx context.Context) (int, error) {
	if err := s.ensureUnlocked(); err != nil {
		return 0, err
	}
	return s.store.SweepOrphans(ctx)
}

// DestroyVault erases every photo, the index, and the metadata. The
// encryption key and the PIN survive; destroying the key is a separate
// decision made at the crypto layer.
func (s *Session) DestroyVault(ctx context.Context) error {
	if err := s.ensureUnlocked(); err != nil {
		return err
	}
	return s.store.DestroyVault(ctx)
}

func (s *Session) markUnlocked(ctx context.Context) error {
	if err := s.store.Open(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.unlocked = true
	s.lastActivity = s.now()
	s.mu.Unlock()
	s.log.Info(ctx, "vault unlocked")
	return nil
}

// ensureUnlocked gates a data operation, applying the idle timeout and
// refreshing the activity clock on success.
func (s *Session) ensureUnlocked() error {
	s.checkIdle()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return common.ErrVaultLocked
	}
	s.lastActivity = s.now()
	return nil
}

// checkIdle locks the session when the idle timeout has elapsed since the
// last gated operation.
func (s *Session) checkIdle() {
	if s.idleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	expired := s.unlocked && s.now().Sub(s.lastActivity) >= s.idleTimeout
	s.mu.Unlock()
	if expired {
		s.log.Info(context.Background(), "vault auto-locked after inactivity")
		s.Lock()
	}
}
