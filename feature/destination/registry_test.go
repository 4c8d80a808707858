package destination

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"testing"

	"ocsync/core/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	root := t.TempDir()
	return NewRegistry(filepath.Join(root, "destinations"), nil), root
}

func TestValidName(t *testing.T) {
	for _, name := range []string{"ableton", "Music_2024", "a-b", "X", "lsd", "rmx"} {
		assert.True(t, ValidName(name), name)
	}
	for _, name := range []string{"", "my music", "../etc", "a.b", "naïve", "a/b", "ls", "rm"} {
		assert.False(t, ValidName(name), name)
	}
}

func TestAddOrUpdate(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		r, root := newRegistry(t)
		local := filepath.Join(root, "Music", "Ableton")

		d, created, err := r.AddOrUpdate("ableton", Update{LocalPath: local, RemotePath: "/Music/Ableton/"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, local, d.LocalPath)
		assert.Equal(t, "Music/Ableton", d.RemotePath)
		assert.DirExists(t, local, "local path is created")
		assert.FileExists(t, filepath.Join(root, "destinations", "ableton.env"))

		got, err := r.Get("ableton")
		require.NoError(t, err)
		assert.Equal(t, d, got)
	})

	t.Run("UpdateKeepsUnsetFields", func(t *testing.T) {
		r, root := newRegistry(t)
		local := filepath.Join(root, "Music")

		_, _, err := r.AddOrUpdate("music", Update{LocalPath: local, RemotePath: "Music", Excludes: []string{"*.tmp"}})
		require.NoError(t, err)

		d, created, err := r.AddOrUpdate("music", Update{RemotePath: "Audio/Music"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, local, d.LocalPath)
		assert.Equal(t, "Audio/Music", d.RemotePath)
		assert.Equal(t, []string{"*.tmp"}, d.Excludes)

		d, _, err = r.AddOrUpdate("music", Update{Excludes: []string{}})
		require.NoError(t, err)
		assert.Empty(t, d.Excludes)
	})

	t.Run("Excludes", func(t *testing.T) {
		r, root := newRegistry(t)

		d, _, err := r.AddOrUpdate("code", Update{
			LocalPath:  filepath.Join(root, "code"),
			RemotePath: "code",
			Excludes:   []string{"**/node_modules/**", " .DS_Store ", "", "**/node_modules/**", "{a,b}/cache"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"**/node_modules/**", ".DS_Store", "{a,b}/cache"}, d.Excludes)

		got, err := r.Get("code")
		require.NoError(t, err)
		assert.Equal(t, d.Excludes, got.Excludes)
	})

	t.Run("InvalidName", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("my music", Update{LocalPath: root, RemotePath: "Music"})
		require.Error(t, err)
		assert.Equal(t, apperr.KindInvalidName, apperr.KindOf(err))
		assert.Equal(t, apperr.ExitConfiguration, apperr.ExitCode(err))
	})

	t.Run("ReservedName", func(t *testing.T) {
		r, root := newRegistry(t)
		for _, name := range []string{"ls", "rm"} {
			_, _, err := r.AddOrUpdate(name, Update{LocalPath: root, RemotePath: "Music"})
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidName, apperr.KindOf(err))
			assert.False(t, r.Exists(name))
		}
		_, _, err := r.AddOrUpdate("lsx", Update{LocalPath: root, RemotePath: "Music"})
		assert.NoError(t, err)
	})

	t.Run("NewRequiresBothPaths", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("ableton", Update{LocalPath: filepath.Join(root, "a")})
		require.Error(t, err)
		assert.True(t, apperr.IsConfiguration(err))
		assert.Contains(t, err.Error(), "RemotePath is required")
		assert.False(t, r.Exists("ableton"))
		assert.NoDirExists(t, filepath.Join(root, "a"), "nothing is created for an invalid destination")
	})

	t.Run("RemoteEscapesRoot", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("ableton", Update{LocalPath: root, RemotePath: "../secrets"})
		require.Error(t, err)
		assert.True(t, apperr.IsConfiguration(err))
	})

	t.Run("InvalidExclude", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("ableton", Update{LocalPath: root, RemotePath: "x", Excludes: []string{"[unclosed"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `invalid exclude pattern "[unclosed"`)
	})

	t.Run("HomeRelative", func(t *testing.T) {
		r, root := newRegistry(t)
		t.Setenv("HOME", root)

		d, _, err := r.AddOrUpdate("ableton", Update{LocalPath: "~/Music/Ableton", RemotePath: "Music/Ableton"})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "Music", "Ableton"), d.LocalPath)
	})
}

func TestGet(t *testing.T) {
	r, _ := newRegistry(t)

	_, err := r.Get("missing")
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Contains(t, apperr.Suggestions(err), "sync ls")

	_, err = r.Get("bad name")
	assert.Equal(t, apperr.KindInvalidName, apperr.KindOf(err))
}

func TestNames(t *testing.T) {
	r, root := newRegistry(t)

	assert.Empty(t, slices.Collect(r.Names()), "missing directory yields nothing")

	for _, name := range []string{"ableton", "photos", "notes"} {
		_, _, err := r.AddOrUpdate(name, Update{LocalPath: filepath.Join(root, name), RemotePath: name})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "destinations", "README.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "destinations", "bad name.env"), []byte("x"), 0o644))

	names := slices.Collect(r.Names())
	sort.Strings(names)
	assert.Equal(t, []string{"ableton", "notes", "photos"}, names)

	again := slices.Collect(r.Names())
	assert.Len(t, again, 3, "the sequence is restartable")

	count := 0
	for range r.Names() {
		count++
		break
	}
	assert.Equal(t, 1, count)

	list, err := r.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "ableton", list[0].Name)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("Cascades", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("ableton", Update{LocalPath: filepath.Join(root, "a"), RemotePath: "a"})
		require.NoError(t, err)

		var cleaned []string
		for _, what := range []string{"schedule", "lock", "failure", "baseline"} {
			r.OnRemove(what, func(_ context.Context, name string) error {
				cleaned = append(cleaned, what+":"+name)
				return nil
			})
		}

		require.NoError(t, r.Remove(ctx, "ableton"))
		assert.Equal(t, []string{"schedule:ableton", "lock:ableton", "failure:ableton", "baseline:ableton"}, cleaned)
		assert.False(t, r.Exists("ableton"))
		assert.DirExists(t, filepath.Join(root, "a"), "local data is never touched")
	})

	t.Run("Unknown", func(t *testing.T) {
		r, _ := newRegistry(t)
		called := false
		r.OnRemove("schedule", func(context.Context, string) error {
			called = true
			return nil
		})

		err := r.Remove(ctx, "unknown-name")
		require.Error(t, err)
		assert.True(t, apperr.IsConfiguration(err))
		assert.Equal(t, apperr.ExitConfiguration, apperr.ExitCode(err))
		assert.False(t, called)
	})

	t.Run("CleanupFailureKeepsDestination", func(t *testing.T) {
		r, root := newRegistry(t)
		_, _, err := r.AddOrUpdate("ableton", Update{LocalPath: filepath.Join(root, "a"), RemotePath: "a"})
		require.NoError(t, err)

		r.OnRemove("schedule", func(context.Context, string) error { return errors.New("launchctl failed") })
		lockCleaned := false
		r.OnRemove("lock", func(context.Context, string) error {
			lockCleaned = true
			return nil
		})

		err = r.Remove(ctx, "ableton")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schedule: launchctl failed")
		assert.True(t, lockCleaned, "remaining cleanups still run")
		assert.True(t, r.Exists("ableton"))
	})
}
