package lock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ocsync/core/database/dbtest"
	"ocsync/core/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// livePIDs is a liveness checker over a fixed set of pids.
type livePIDs struct {
	mu   sync.Mutex
	pids map[int]bool
}

func newLivePIDs(pids ...int) *livePIDs {
	l := &livePIDs{pids: make(map[int]bool)}
	for _, p := range pids {
		l.pids[p] = true
	}
	return l
}

func (l *livePIDs) Alive(pid int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pids[pid]
}

func (l *livePIDs) kill(pid int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pids, pid)
}

func newLocker(db *gorm.DB, pid int, live process.Checker) *Locker {
	return New(db, WithOwner(pid, "host-a"), WithChecker(live))
}

func TestTryAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("FreeLock", func(t *testing.T) {
		db := dbtest.New(t, &Record{})
		live := newLivePIDs(100)
		l := newLocker(db, 100, live)

		out, err := l.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, Acquired, out)

		var rec Record
		require.NoError(t, db.First(&rec, "name = ?", "ableton").Error)
		assert.Equal(t, 100, rec.PID)
		assert.Equal(t, "host-a", rec.Hostname)
	})

	t.Run("LiveOwnerIsBusy", func(t *testing.T) {
		db := dbtest.New(t, &Record{})
		live := newLivePIDs(100, 200)
		first := newLocker(db, 100, live)
		second := newLocker(db, 200, live)

		out, err := first.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		require.Equal(t, Acquired, out)

		out, err = second.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, Busy, out)

		// The owner's record is untouched.
		var rec Record
		require.NoError(t, db.First(&rec, "name = ?", "ableton").Error)
		assert.Equal(t, 100, rec.PID)
	})

	t.Run("DeadOwnerIsReplaced", func(t *testing.T) {
		db := dbtest.New(t, &Record{})
		live := newLivePIDs(100, 200)
		crashed := newLocker(db, 100, live)
		next := newLocker(db, 200, live)

		out, err := crashed.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		require.Equal(t, Acquired, out)

		live.kill(100)

		state, _, err := next.Inspect(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, StateStale, state)

		out, err = next.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, Acquired, out)

		var rec Record
		require.NoError(t, db.First(&rec, "name = ?", "ableton").Error)
		assert.Equal(t, 200, rec.PID)
	})

	t.Run("OtherHostIsTrusted", func(t *testing.T) {
		db := dbtest.New(t, &Record{})
		remote := New(db, WithOwner(100, "host-b"), WithChecker(newLivePIDs()))
		local := newLocker(db, 200, newLivePIDs(200))

		out, err := remote.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		require.Equal(t, Acquired, out)

		out, err = local.TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, Busy, out)
	})

	t.Run("DestinationsAreIndependent", func(t *testing.T) {
		db := dbtest.New(t, &Record{})
		live := newLivePIDs(100, 200)

		out, err := newLocker(db, 100, live).TryAcquire(ctx, "ableton")
		require.NoError(t, err)
		require.Equal(t, Acquired, out)

		out, err = newLocker(db, 200, live).TryAcquire(ctx, "photos")
		require.NoError(t, err)
		assert.Equal(t, Acquired, out)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Record{})
	live := newLivePIDs(100, 200)
	l := newLocker(db, 100, live)

	_, err := l.TryAcquire(ctx, "ableton")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, "ableton"))

	state, rec, err := l.Inspect(ctx, "ableton")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, state)
	assert.Nil(t, rec)

	// Releasing a free lock is not an error.
	assert.NoError(t, l.Release(ctx, "ableton"))

	out, err := newLocker(db, 200, live).TryAcquire(ctx, "ableton")
	require.NoError(t, err)
	assert.Equal(t, Acquired, out)
}

func TestInspect_Running(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t, &Record{})
	l := newLocker(db, 100, newLivePIDs(100))

	_, err := l.TryAcquire(ctx, "ableton")
	require.NoError(t, err)

	state, rec, err := l.Inspect(ctx, "ableton")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	require.NotNil(t, rec)
	assert.Equal(t, 100, rec.PID)
}

func TestTryAcquire_DatabaseError(t *testing.T) {
	db, mock := dbtest.Mock(t)
	l := newLocker(db, 100, newLivePIDs(100))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `execution_locks`").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	out, err := l.TryAcquire(context.Background(), "ableton")
	assert.Error(t, err)
	assert.Equal(t, Busy, out)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestInspect_DatabaseError(t *testing.T) {
	db, mock := dbtest.Mock(t)
	l := newLocker(db, 100, newLivePIDs(100))

	mock.ExpectQuery("SELECT \\* FROM `execution_locks`").WillReturnError(errors.New("connection reset"))

	_, _, err := l.Inspect(context.Background(), "ableton")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "acquired", Acquired.String())
	assert.Equal(t, "busy", Busy.String())
}

func TestRecord_Columns(t *testing.T) {
	db := dbtest.New(t, &Record{})
	for _, col := range []string{"name", "pid", "hostname", "acquired_at"} {
		assert.True(t, db.Migrator().HasColumn(&Record{}, col), col)
	}
	assert.False(t, db.Migrator().HasColumn(&Record{}, "p_id"))
}
