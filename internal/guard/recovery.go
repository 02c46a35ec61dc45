package guard

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/cryptox"
	"github.com/dmitrijs2005/photovault/internal/dbx"
	"github.com/dmitrijs2005/photovault/internal/repositories/guardstate"
)

const (
	recoveryCodeDigits = 8
	recoveryCodeTTL    = 15 * time.Minute
	recoverySaltSize   = 16
)

// IssueRecoveryCode generates a fresh numeric recovery code and persists only
// its salted argon2id digest together with an expiry. At most one code is
// outstanding: issuing a new one replaces the previous. The plaintext code is
// returned once and never stored.
func (g *Guard) IssueRecoveryCode(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code, err := makeRecoveryCode()
	if err != nil {
		return "", fmt.Errorf("generate recovery code: %w", err)
	}

	salt := common.GenerateRandByteArray(recoverySaltSize)
	digest := cryptox.DeriveVerifier([]byte(code), salt)
	expires := g.now().Add(recoveryCodeTTL)

	err = dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := guardstate.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, guardstate.KeyRecoveryDigest, append(salt, digest...)); err != nil {
			return err
		}
		return repo.Set(ctx, guardstate.KeyRecoveryExpires, []byte(expires.Format(time.RFC3339Nano)))
	})
	if err != nil {
		return "", err
	}

	g.log.Info(ctx, "recovery code issued", "expires_at", expires)
	return code, nil
}

// ResetWithRecoveryCode verifies code against the outstanding recovery code
// and, on success, installs newPIN as the credential and clears all lockout
// state. The stored code is consumed by the attempt regardless of outcome:
// a second submission of the same code always fails.
func (g *Guard) ResetWithRecoveryCode(ctx context.Context, code, newPIN string) error {
	g.mu.Lock()

	repo := g.repo()
	stored, err := repo.Get(ctx, guardstate.KeyRecoveryDigest)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	expiresRaw, err := repo.Get(ctx, guardstate.KeyRecoveryExpires)
	if err != nil {
		g.mu.Unlock()
		return err
	}

	// One shot: whatever happens next, the stored code is gone.
	if err := g.clearRecoveryCode(ctx); err != nil {
		g.mu.Unlock()
		return err
	}

	if stored == nil || expiresRaw == nil || len(stored) <= recoverySaltSize {
		g.mu.Unlock()
		return common.ErrRecoveryCodeInvalid
	}
	expires, err := time.Parse(time.RFC3339Nano, string(expiresRaw))
	if err != nil || g.now().After(expires) {
		g.mu.Unlock()
		return common.ErrRecoveryCodeInvalid
	}

	salt, digest := stored[:recoverySaltSize], stored[recoverySaltSize:]
	candidate := cryptox.DeriveVerifier([]byte(code), salt)
	match := cryptox.VerifierEqual(digest, candidate)
	common.WipeByteArray(candidate)

	if !match {
		g.mu.Unlock()
		return common.ErrRecoveryCodeInvalid
	}

	// SetCredential takes the same mutex.
	g.mu.Unlock()
	if err := g.SetCredential(ctx, newPIN); err != nil {
		return err
	}
	g.log.Info(ctx, "credential reset via recovery code")
	return nil
}

func (g *Guard) clearRecoveryCode(ctx context.Context) error {
	return dbx.WithTx(ctx, g.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := guardstate.NewSQLiteRepository(tx)
		if err := repo.Delete(ctx, guardstate.KeyRecoveryDigest); err != nil {
			return err
		}
		return repo.Delete(ctx, guardstate.KeyRecoveryExpires)
	})
}

// makeRecoveryCode returns a uniformly random, zero-padded numeric code.
func makeRecoveryCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < recoveryCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", recoveryCodeDigits, n), nil
}
