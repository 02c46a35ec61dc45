package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/photovault/internal/common"
)

func TestMakeRecoveryCode_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := makeRecoveryCode()
		require.NoError(t, err)
		require.Len(t, code, recoveryCodeDigits)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code must be numeric: %q", code)
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1, "codes must vary")
}

func TestRecovery_ResetHappyPath(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))
	for i := 0; i < 5; i++ {
		_, _ = g.Submit(ctx, "000000")
	}

	code, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)

	require.NoError(t, g.ResetWithRecoveryCode(ctx, code, "999999"))

	// New credential works immediately; lockout state is gone.
	st, err := g.Submit(ctx, "999999")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, st.State)

	// Old credential no longer matches.
	_, err = g.Submit(ctx, "123456")
	assert.ErrorIs(t, err, common.ErrCredentialMismatch)
}

func TestRecovery_CodeIsSingleUse(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	code, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)

	require.NoError(t, g.ResetWithRecoveryCode(ctx, code, "999999"))

	err = g.ResetWithRecoveryCode(ctx, code, "888888")
	assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)
}

func TestRecovery_WrongCodeConsumesOutstanding(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	code, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)

	err = g.ResetWithRecoveryCode(ctx, "00000000", "999999")
	assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)

	// The failed attempt consumed the code.
	err = g.ResetWithRecoveryCode(ctx, code, "999999")
	assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)
}

func TestRecovery_ExpiredCodeRejected(t *testing.T) {
	g, clock, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	code, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)

	clock.Advance(recoveryCodeTTL + time.Minute)

	err = g.ResetWithRecoveryCode(ctx, code, "999999")
	assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)
}

func TestRecovery_ReissueReplacesOutstandingCode(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	first, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)
	second, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)

	// The stale first code must not work (it was replaced by the second).
	// Attempting it also consumes the outstanding code, so reissue afterwards.
	if first != second {
		err = g.ResetWithRecoveryCode(ctx, first, "999999")
		assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)
	}

	third, err := g.IssueRecoveryCode(ctx)
	require.NoError(t, err)
	require.NoError(t, g.ResetWithRecoveryCode(ctx, third, "999999"))
}

func TestRecovery_NoOutstandingCode(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	err := g.ResetWithRecoveryCode(ctx, "12345678", "999999")
	assert.ErrorIs(t, err, common.ErrRecoveryCodeInvalid)
}
