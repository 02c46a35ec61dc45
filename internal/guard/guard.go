// Package guard implements the credential guard: PIN verification with an
// argon2id verifier, a progressive lockout state machine whose counters
// survive process restarts, and a time-boxed recovery-code path.
//
// The guard only decides whether a submission is acceptable; holding the
// resulting unlocked session state is the caller's job (see vault.Session).
// Biometric unlocks bypass the guard entirely and never touch its counters.
package guard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/dbx"
	"github.com/dmitrijs2005/photovault/internal/keystore"
	"github.com/dmitrijs2005/photovault/internal/logging"
	"github.com/dmitrijs2005/photovault/internal/repositories/guardstate"
)

const credentialSaltSize = 32

// State labels the guard's decision state.
type State string

const (
	StateLocked    State = "locked"
	StateUnlocked  State = "unlocked"
	StateLockedOut State = "locked_out"
)

// Status describes the guard's state after an operation, in terms the
// credential UI can display directly.
type Status struct {
	State          State
	FailedAttempts int

	// LockedUntil is the wall-clock end of the active lockout window;
	// zero when no lockout is active.
	LockedUntil time.Time

	// LockoutRemaining is the time left in the active lockout window.
	LockoutRemaining time.Duration

	// RemainingAttempts is how many more consecutive failures are allowed
	// before the next lockout triggers.
	RemainingAttempts int
}

// Guard verifies PIN submissions against the stored verifier and enforces
// the lockout schedule. Safe for concurrent use; verifications are
// serialized so counter updates never race.
type Guard struct {
	keys keystore.Store
	db   *sql.DB
	log  logging.Logger
	now  func() time.Time

	mu sync.Mutex
}

func NewGuard(keys keystore.Store, db *sql.DB, log logging.Logger) *Guard {
	return &Guard{keys: keys, db: db, log: log, now: time.Now}
}

func (g *Guard) repo() guardstate.Repository {
	return guardstate.NewSQLiteRepository(g.db)
}

// HasCredential reports whether a credential has ever been set.
func (g *Guard) HasCredential(ctx context.Context) (bool, error) {
	return g.keys.Exists(ctx, keystore.CredentialVerifierID)
}

// SetCredential installs pin as the active credential: a fresh random salt
// and argon2id verifier go to the keystore, and all failure state is reset.
func (g *Guard) SetCredential(ctx context.Context, pin string) error {
	if pin == "" {
		return fmt.Errorf("%w: empty credential", common.ErrCredentialMismatch)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	salt := common.GenerateRandByteArray(credentialSaltSize)
	verifier := cryptox.DeriveVerifier([]byte(pin), salt)

	if err := g.keys.Store(ctx, keystore.CredentialSaltID, salt); err != nil {
		return fmt.Errorf("store credential salt: %w", err)
	}
	if err := g.keys.Store(ctx, keystore.CredentialVerifierID, verifier); err != nil {
		return fmt.Errorf("store credential verifier: %w", err)
	}

	return g.resetFailureState(ctx)
}

// Submit evaluates a PIN submission.
//
// During an active lockout the submission is rejected with
// common.ErrLockedOut before the expensive derivation runs. A match resets
// the failure counter and returns StateUnlocked. A mismatch increments the
// persisted counter, applies the lockout schedule, and returns
// common.ErrCredentialMismatch.
func (g *Guard) Submit(ctx context.Context, pin string) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	failed, lockedUntil, err := g.loadFailureState(ctx)
	if err != nil {
		return Status{}, err
	}

	now := g.now()
	if now.Before(lockedUntil) {
		st := g.status(StateLockedOut, failed, lockedUntil)
		return st, fmt.Errorf("%w: retry in %s", common.ErrLockedOut, st.LockoutRemaining.Round(time.Second))
	}

	salt, err := g.keys.Retrieve(ctx, keystore.CredentialSaltID)
	if err != nil {
		return Status{}, g.credentialErr(err)
	}
	verifier, err := g.keys.Retrieve(ctx, keystore.CredentialVerifierID)
	if err != nil {
		return Status{}, g.credentialErr(err)
	}

	candidate := cryptox.DeriveVerifier([]byte(pin), salt)
	defer common.WipeByteArray(candidate)

	if cryptox.VerifierEqual(verifier, candidate) {
		if err := g.resetFailureState(ctx); err != nil {
			return Status{}, err
		}
		return g.status(StateUnlocked, 0, time.Time{}), nil
	}

	failed++
	lockedUntil = time.Time{}
	if d := lockoutDuration(failed); d > 0 {
		lockedUntil = now.Add(d)
	}
	if err := g.saveFailureState(ctx, failed, lockedUntil); err != nil {
		return Status{}, err
	}

	g.log.Warn(ctx, "credential mismatch", "failed_attempts", failed, "locked_out", !lockedUntil.IsZero())

	state := StateLocked
	if !lockedUntil.IsZero() {
		state = StateLockedOut
	}
	return g.status(state, failed, lockedUntil), common.ErrCredentialMismatch
}

// Status reports the current guard state without evaluating anything.
func (g *Guard) Status(ctx context.Context) (Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	failed, lockedUntil, err := g.loadFailureState(ctx)
	if err != nil {
		return Status{}, err
	}
	state := StateLocked
	if g.now().Before(lockedUntil) {
		state = StateLockedOut
	} else {
		lockedUntil = time.Time{}
	}
	return g.status(state, failed, lockedUntil), nil
}

func (g *Guard) status(state State, failed int, lockedUntil time.Time) Status {
	st := Status{State: state, FailedAttempts: failed, LockedUntil: lockedUntil}
	if !lockedUntil.IsZero() {
		if remaining := lockedUntil.Sub(g.now()); remaining > 0 {
			st.LockoutRemaining = remaining
		}
	}
	if failed < lockoutThreshold {
		st.RemainingAttempts = lockoutThreshold - failed
	}
	return st
}

func (g *Guard) credentialErr(err error) error {
	if errors.Is(err, keystore.ErrNotFound) {
		return common.ErrCredentialNotSet
	}
	return fmt.Errorf("retrieve credential material: %w", err)
}

func (g *Guard) loadFailureState(ctx context.Context) (failed int, lockedUntil time.Time, err error) {
	repo := g.repo()

	if v, err := repo.Get(ctx, guardstate.KeyFailedAttempts); err != nil {
		return 0, time.Time{}, err
	} else if v != nil {
		failed, err = strconv.Atoi(string(v))
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("corrupt failure counter: %w", err)
		}
	}

	if v, err := repo.Get(ctx, guardstate.KeyLockedUntil); err != nil {
		return 0, time.Time{}, err
	} else if v != nil {
		lockedUntil, err = time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return 0, time.Time{}, fmt.Errorf("corrupt lockout expiry: %w", err)
		}
	}
	return failed, lockedUntil, nil
}

func (g *Guard) saveFailureState(ctx context.Context, failed int, lockedUntil time.Time) error {
	return dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := guardstate.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, guardstate.KeyFailedAttempts, []byte(strconv.Itoa(failed))); err != nil {
			return err
		}
		if lockedUntil.IsZero() {
			return repo.Delete(ctx, guardstate.KeyLockedUntil)
		}
		return repo.Set(ctx, guardstate.KeyLockedUntil, []byte(lockedUntil.Format(time.RFC3339Nano)))
	})
}

func (g *Guard) resetFailureState(ctx context.Context) error {
	return dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := guardstate.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, guardstate.KeyFailedAttempts); err != nil {
			return err
		}
		return repo.Delete(ctx, guardstate.KeyLockedUntil)
	})
}
