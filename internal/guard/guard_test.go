package guard

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/photovault/internal/common"
	"github.com/dmitrijs2005/photovault/internal/keystore"
	"github.com/dmitrijs2005/photovault/internal/logging"
)

func setupStateDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE guard_state (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)
	return db
}

// fakeClock lets tests advance wall-clock time manually.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard(t *testing.T) (*Guard, *fakeClock, *sql.DB) {
	t.Helper()
	db := setupStateDB(t)
	clock := &fakeClock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
	g := NewGuard(keystore.NewMemoryStore(), db, logging.NopLogger{})
	g.now = clock.Now
	return g, clock, db
}

func TestLockoutDuration_Schedule(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, 0}, {4, 0},
		{5, time.Minute}, {7, time.Minute},
		{8, 5 * time.Minute}, {9, 5 * time.Minute},
		{10, 15 * time.Minute}, {14, 15 * time.Minute},
		{15, 60 * time.Minute}, {100, 60 * time.Minute},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, lockoutDuration(tc.failures), "failures=%d", tc.failures)
	}
}

func TestLockoutDuration_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		d := lockoutDuration(n)
		assert.GreaterOrEqual(t, d, prev, "schedule must never shorten at %d failures", n)
		prev = d
	}
}

func TestGuard_SubmitCorrectPIN(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	st, err := g.Submit(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, st.State)
	assert.Equal(t, 0, st.FailedAttempts)
}

func TestGuard_SubmitWithoutCredential(t *testing.T) {
	g, _, _ := newTestGuard(t)

	_, err := g.Submit(context.Background(), "123456")
	assert.ErrorIs(t, err, common.ErrCredentialNotSet)
}

func TestGuard_MismatchIncrementsCounter(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	for i := 1; i <= 4; i++ {
		st, err := g.Submit(ctx, "000000")
		assert.ErrorIs(t, err, common.ErrCredentialMismatch)
		assert.Equal(t, StateLocked, st.State)
		assert.Equal(t, i, st.FailedAttempts)
		assert.Equal(t, 5-i, st.RemainingAttempts)
	}
}

func TestGuard_CorrectPINResetsCounter(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	for i := 0; i < 3; i++ {
		_, _ = g.Submit(ctx, "000000")
	}
	st, err := g.Submit(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, 0, st.FailedAttempts)

	// The budget is fully restored: three more failures stay short of lockout.
	for i := 0; i < 3; i++ {
		st, err = g.Submit(ctx, "000000")
		assert.ErrorIs(t, err, common.ErrCredentialMismatch)
		assert.Equal(t, StateLocked, st.State)
	}
}

// Set credential "123456", fail 5 times with "000000": the 6th attempt with
// the correct PIN is still rejected until the 1-minute window elapses.
func TestGuard_FifthFailureLocksOutEvenCorrectPIN(t *testing.T) {
	g, clock, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	var st Status
	var err error
	for i := 0; i < 5; i++ {
		st, err = g.Submit(ctx, "000000")
		assert.ErrorIs(t, err, common.ErrCredentialMismatch)
	}
	assert.Equal(t, StateLockedOut, st.State)
	assert.Equal(t, time.Minute, st.LockoutRemaining)

	st, err = g.Submit(ctx, "123456")
	assert.ErrorIs(t, err, common.ErrLockedOut)
	assert.Equal(t, StateLockedOut, st.State)
	assert.Equal(t, 5, st.FailedAttempts, "lockout rejection must not change the counter")

	clock.Advance(61 * time.Second)

	st, err = g.Submit(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, st.State)
}

func TestGuard_EscalatingLockouts(t *testing.T) {
	g, clock, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))

	fail := func(wantLockout time.Duration) {
		t.Helper()
		st, err := g.Submit(ctx, "000000")
		assert.ErrorIs(t, err, common.ErrCredentialMismatch)
		if wantLockout == 0 {
			assert.Equal(t, StateLocked, st.State)
		} else {
			assert.Equal(t, StateLockedOut, st.State)
			assert.Equal(t, wantLockout, st.LockoutRemaining)
			clock.Advance(wantLockout + time.Second)
		}
	}

	for i := 0; i < 4; i++ {
		fail(0)
	}
	fail(time.Minute)      // 5
	fail(time.Minute)      // 6
	fail(time.Minute)      // 7
	fail(5 * time.Minute)  // 8
	fail(5 * time.Minute)  // 9
	fail(15 * time.Minute) // 10
}

// The lockout expiry is persisted: a fresh guard over the same state DB
// refuses submissions without running the verifier.
func TestGuard_LockoutSurvivesRestart(t *testing.T) {
	g, clock, db := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))
	for i := 0; i < 5; i++ {
		_, _ = g.Submit(ctx, "000000")
	}

	// Simulated restart: new guard, same keystore and DB, same wall clock.
	g2 := NewGuard(g.keys, db, logging.NopLogger{})
	g2.now = clock.Now

	st, err := g2.Submit(ctx, "123456")
	assert.ErrorIs(t, err, common.ErrLockedOut)
	assert.Equal(t, StateLockedOut, st.State)
	assert.Equal(t, 5, st.FailedAttempts)

	clock.Advance(2 * time.Minute)
	st, err = g2.Submit(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, st.State)
}

func TestGuard_StatusReportsLockout(t *testing.T) {
	g, clock, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))
	for i := 0; i < 5; i++ {
		_, _ = g.Submit(ctx, "000000")
	}

	st, err := g.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLockedOut, st.State)
	assert.Equal(t, time.Minute, st.LockoutRemaining)

	clock.Advance(2 * time.Minute)
	st, err = g.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateLocked, st.State)
	assert.True(t, st.LockedUntil.IsZero())
}

func TestGuard_SetCredentialClearsLockout(t *testing.T) {
	g, _, _ := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.SetCredential(ctx, "123456"))
	for i := 0; i < 5; i++ {
		_, _ = g.Submit(ctx, "000000")
	}

	require.NoError(t, g.SetCredential(ctx, "654321"))

	st, err := g.Submit(ctx, "654321")
	require.NoError(t, err)
	assert.Equal(t, StateUnlocked, st.State)
}
