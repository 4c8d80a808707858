package storage_test

import (
	"context"
	"errors"
	"testing"

	"ocsync/core/storage"
	"ocsync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{
			Endpoint:  "localhost:9000",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			Region:    "us-east-1",
		})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EndpointWithHTTPS", func(t *testing.T) {
		client, err := storage.NewClient(storage.Config{
			Endpoint:  "https://s3.amazonaws.com/",
			AccessKey: "testkey",
			SecretKey: "testsecret",
			UseSSL:    true,
		})
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("EmptyEndpoint", func(t *testing.T) {
		_, err := storage.NewClient(storage.Config{})
		assert.Error(t, err)
	})
}

func objects(items ...minio.ObjectInfo) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func TestProbe(t *testing.T) {
	ctx := context.Background()

	t.Run("Reachable", func(t *testing.T) {
		c := new(mocks.Client)
		c.On("BucketExists", mock.Anything, "backups").Return(true, nil)
		c.On("ListObjects", mock.Anything, "backups", mock.Anything).
			Return(objects(minio.ObjectInfo{Key: "Music/a.als"}))

		assert.NoError(t, storage.Probe(ctx, c, "backups"))
		c.AssertExpectations(t)
	})

	t.Run("EmptyBucket", func(t *testing.T) {
		c := new(mocks.Client)
		c.On("BucketExists", mock.Anything, "backups").Return(true, nil)
		c.On("ListObjects", mock.Anything, "backups", mock.Anything).Return(objects())

		assert.NoError(t, storage.Probe(ctx, c, "backups"))
	})

	t.Run("MissingBucket", func(t *testing.T) {
		c := new(mocks.Client)
		c.On("BucketExists", mock.Anything, "backups").Return(false, nil)

		err := storage.Probe(ctx, c, "backups")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
		c.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unreachable", func(t *testing.T) {
		c := new(mocks.Client)
		c.On("BucketExists", mock.Anything, "backups").Return(false, errors.New("dial tcp: connection refused"))

		err := storage.Probe(ctx, c, "backups")
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("ListDenied", func(t *testing.T) {
		c := new(mocks.Client)
		c.On("BucketExists", mock.Anything, "backups").Return(true, nil)
		c.On("ListObjects", mock.Anything, "backups", mock.Anything).
			Return(objects(minio.ObjectInfo{Err: errors.New("access denied")}))

		assert.ErrorContains(t, storage.Probe(ctx, c, "backups"), "access denied")
	})

	t.Run("NoBucket", func(t *testing.T) {
		assert.Error(t, storage.Probe(ctx, new(mocks.Client), ""))
	})
}
