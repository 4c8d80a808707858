package failure

import (
	"context"
	"errors"
	"testing"

	"ocsync/core/database/dbtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_MonotonicThenReset(t *testing.T) {
	ctx := context.Background()
	tr := New(dbtest.New(t, &Record{}))

	count, err := tr.Get(ctx, "ableton")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for want := 1; want <= 4; want++ {
		got, err := tr.RecordFailure(ctx, "ableton", errors.New("exit status 1"))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		stored, err := tr.Get(ctx, "ableton")
		require.NoError(t, err)
		assert.Equal(t, want, stored)
	}

	require.NoError(t, tr.RecordSuccess(ctx, "ableton"))

	rec, err := tr.Lookup(ctx, "ableton")
	require.NoError(t, err)
	assert.Nil(t, rec, "success must delete the record, not zero it")

	got, err := tr.RecordFailure(ctx, "ableton", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestTracker_LastError(t *testing.T) {
	ctx := context.Background()
	tr := New(dbtest.New(t, &Record{}))

	_, err := tr.RecordFailure(ctx, "ableton", errors.New("first"))
	require.NoError(t, err)
	_, err = tr.RecordFailure(ctx, "ableton", errors.New("second"))
	require.NoError(t, err)

	rec, err := tr.Lookup(ctx, "ableton")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.Count)
	assert.Equal(t, "second", rec.LastError)
}

func TestTracker_Independent(t *testing.T) {
	ctx := context.Background()
	tr := New(dbtest.New(t, &Record{}))

	_, err := tr.RecordFailure(ctx, "a", nil)
	require.NoError(t, err)
	_, err = tr.RecordFailure(ctx, "a", nil)
	require.NoError(t, err)
	_, err = tr.RecordFailure(ctx, "b", nil)
	require.NoError(t, err)

	require.NoError(t, tr.Reset(ctx, "b"))

	a, _ := tr.Get(ctx, "a")
	b, _ := tr.Get(ctx, "b")
	assert.Equal(t, 2, a)
	assert.Equal(t, 0, b)
}

func TestTracker_DatabaseError(t *testing.T) {
	db, mock := dbtest.Mock(t)
	tr := New(db)

	mock.ExpectQuery("SELECT \\* FROM `failure_records`").WillReturnError(errors.New("gone away"))

	_, err := tr.Get(context.Background(), "ableton")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gone away")
	assert.NoError(t, mock.ExpectationsWereMet())
}
