package app

import (
	"context"
	"testing"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/s3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMediaStore(t *testing.T) {
	s3Config := config.S3Config{
		Bucket:          "car-pictures",
		Region:          "eu-west-3",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	}

	t.Run("s3 driver", func(t *testing.T) {
		store, err := newMediaStore(context.Background(), config.Config{
			Media: config.MediaConfig{Driver: "s3"},
			S3:    s3Config,
		}, zap.NewNop())
		require.NoError(t, err)

		uploader, ok := store.(*s3.Uploader)
		require.True(t, ok, "got %T", store)
		assert.Equal(t, "car-pictures", uploader.Bucket)
		assert.True(t, store.Owns("https://car-pictures.s3.eu-west-3.amazonaws.com/cars/a.jpg"))
	})

	t.Run("cloudfront domain", func(t *testing.T) {
		cfg := s3Config
		cfg.CloudFrontDomain = "d111111abcdef8.cloudfront.net"
		store, err := newMediaStore(context.Background(), config.Config{
			Media: config.MediaConfig{Driver: "s3"},
			S3:    cfg,
		}, zap.NewNop())
		require.NoError(t, err)
		assert.True(t, store.Owns("https://d111111abcdef8.cloudfront.net/cars/a.jpg"))
		assert.False(t, store.Owns("https://car-pictures.s3.eu-west-3.amazonaws.com/cars/a.jpg"))
	})

	t.Run("minio driver reports connection errors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		store, err := newMediaStore(ctx, config.Config{
			Media: config.MediaConfig{Driver: "minio"},
			Minio: config.MinioConfig{Endpoint: "127.0.0.1:9000", AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "cars"},
		}, zap.NewNop())
		assert.Nil(t, store)
		assert.ErrorContains(t, err, "failed to initialize MinIO storage")
	})
}
