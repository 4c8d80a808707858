package remote

import (
	"context"
	"errors"
	"testing"

	"ocsync/core/apperr"
	"ocsync/core/runner"
	"ocsync/core/storage"
	"ocsync/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type listerFunc func(ctx context.Context) error

func (f listerFunc) ListRemote(ctx context.Context) error { return f(ctx) }

func TestConfigured(t *testing.T) {
	assert.False(t, Config{}.Configured())
	assert.True(t, Config{URL: "https://cloud.example.com/remote.php/webdav"}.Configured())
	assert.False(t, Config{Type: TypeS3, URL: "minio:9000"}.Configured())
	assert.True(t, Config{Type: TypeS3, URL: "minio:9000", Bucket: "sync"}.Configured())
	assert.False(t, Config{Type: "ftp", URL: "ftp://x"}.Configured())
}

func TestResolvedMountPoint(t *testing.T) {
	t.Setenv("HOME", "/home/ada")

	mp, err := Config{Name: "ocsync"}.ResolvedMountPoint()
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/ocsync", mp)

	mp, err = Config{MountPoint: "~/Cloud"}.ResolvedMountPoint()
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/Cloud", mp)

	mp, err = Config{MountPoint: "/mnt/cloud"}.ResolvedMountPoint()
	require.NoError(t, err)
	assert.Equal(t, "/mnt/cloud", mp)
}

func TestCheck_WebDAV(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: TypeWebDAV, URL: "https://cloud.example.com/remote.php/webdav"}

	t.Run("Reachable", func(t *testing.T) {
		called := false
		c := NewChecker(cfg, listerFunc(func(context.Context) error {
			called = true
			return nil
		}))
		assert.NoError(t, c.Check(ctx))
		assert.True(t, called)
	})

	t.Run("Unreachable", func(t *testing.T) {
		c := NewChecker(cfg, listerFunc(func(context.Context) error {
			return errors.New("couldn't list directory")
		}))
		err := c.Check(ctx)
		require.Error(t, err)
		assert.Equal(t, apperr.KindConnectivity, apperr.KindOf(err))
		assert.Equal(t, apperr.ExitConnectivity, apperr.ExitCode(err))
	})

	t.Run("NotConfigured", func(t *testing.T) {
		c := NewChecker(Config{}, listerFunc(func(context.Context) error {
			t.Fatal("must not list an unconfigured remote")
			return nil
		}))
		err := c.Check(ctx)
		require.Error(t, err)
		assert.True(t, apperr.IsConfiguration(err))
		assert.Contains(t, apperr.Suggestions(err), "setup")
	})
}

func TestCheck_S3(t *testing.T) {
	ctx := context.Background()
	cfg := Config{
		Type:      TypeS3,
		URL:       "https://minio.example.com",
		Bucket:    "sync",
		AccessKey: "key",
		SecretKey: "secret",
	}

	t.Run("Reachable", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "sync").Return(true, nil)
		client.On("ListObjects", mock.Anything, "sync", mock.Anything).Return(nil)

		var got storage.Config
		c := NewChecker(cfg, nil).WithStorageClient(func(sc storage.Config) (storage.Client, error) {
			got = sc
			return client, nil
		})

		require.NoError(t, c.Check(ctx))
		assert.Equal(t, "minio.example.com", got.Endpoint)
		assert.True(t, got.UseSSL)
		client.AssertExpectations(t)
	})

	t.Run("MissingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "sync").Return(false, nil)

		c := NewChecker(cfg, nil).WithStorageClient(func(storage.Config) (storage.Client, error) {
			return client, nil
		})

		err := c.Check(ctx)
		require.Error(t, err)
		assert.Equal(t, apperr.KindConnectivity, apperr.KindOf(err))
	})
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("WebDAV", func(t *testing.T) {
		fake := &runner.Fake{}
		cfg := Config{Name: "ocsync", URL: "https://cloud.example.com/dav", Vendor: "owncloud", User: "ada"}

		require.NoError(t, Provision(ctx, fake, "rclone", cfg, "s3cret"))
		assert.Equal(t, []string{
			"rclone config create ocsync webdav url=https://cloud.example.com/dav vendor=owncloud user=ada pass=s3cret --obscure --non-interactive",
		}, fake.Lines())
	})

	t.Run("S3", func(t *testing.T) {
		fake := &runner.Fake{}
		cfg := Config{Type: TypeS3, Name: "ocsync", URL: "https://minio.example.com", Bucket: "sync",
			AccessKey: "key", SecretKey: "secret", Region: "eu-west-1"}

		require.NoError(t, Provision(ctx, fake, "rclone", cfg, ""))
		assert.Equal(t, []string{
			"rclone config create ocsync-s3 s3 provider=Other endpoint=https://minio.example.com access_key_id=key secret_access_key=secret region=eu-west-1 --non-interactive",
			"rclone config create ocsync alias remote=ocsync-s3:sync --non-interactive",
		}, fake.Lines())
	})

	t.Run("RcloneFails", func(t *testing.T) {
		fake := &runner.Fake{Handler: func(runner.Call) (*runner.Result, error) {
			return runner.ExitError(1, "Failed to create remote")
		}}
		err := Provision(ctx, fake, "rclone", Config{Name: "ocsync", URL: "https://x"}, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Failed to create remote")
	})

	t.Run("FailureKeepsSecretsOutOfError", func(t *testing.T) {
		err := Provision(ctx, runner.New(), "false",
			Config{Name: "ocsync", URL: "https://cloud.example.com/dav", User: "me"}, "hunter2-secret")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "hunter2-secret")

		err = Provision(ctx, runner.New(), "false",
			Config{Type: TypeS3, Name: "ocsync", URL: "https://minio.example.com", Bucket: "sync",
				AccessKey: "key", SecretKey: "s3-secret-key"}, "")
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "s3-secret-key")
	})

	t.Run("Invalid", func(t *testing.T) {
		fake := &runner.Fake{}
		assert.Error(t, Provision(ctx, fake, "rclone", Config{Name: "ocsync"}, ""))
		assert.Error(t, Provision(ctx, fake, "rclone", Config{Type: "ftp", Name: "ocsync", URL: "ftp://x"}, ""))
		assert.Empty(t, fake.Calls())
	})
}
