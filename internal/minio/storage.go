// Package minio is the media.Store used against a MinIO (or any S3
// compatible) endpoint, mostly for local development.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/media"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Storage struct {
	client  objectClient
	bucket  string
	baseURL string
	log     *zap.Logger
}

var _ media.Store = (*Storage)(nil)

// NewStorage connects to MinIO and creates the bucket when it is missing.
func NewStorage(ctx context.Context, cfg config.MinioConfig, log *zap.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", cfg.Endpoint, err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("minio bucket created", zap.String("bucket", cfg.Bucket))
	}

	return &Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: fmt.Sprintf("%s/%s", client.EndpointURL().String(), cfg.Bucket),
		log:     log,
	}, nil
}

func (s *Storage) Upload(ctx context.Context, image, folder string) (string, error) {
	img, err := media.DecodeImage(image)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), img.Ext)
	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(img.Data), int64(len(img.Data)), minio.PutObjectOptions{
		ContentType: img.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}
	s.log.Debug("image uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))

	return s.baseURL + "/" + objectKey, nil
}

func (s *Storage) Destroy(ctx context.Context, folder, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("empty public id")
	}
	prefix := folder + "/" + publicID

	removed := 0
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return fmt.Errorf("failed to list objects %q: %w", prefix, obj.Err)
		}
		if err := s.client.RemoveObject(ctx, s.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove object %q: %w", obj.Key, err)
		}
		removed++
	}
	if removed == 0 {
		return fmt.Errorf("object %q not found", prefix)
	}
	return nil
}

func (s *Storage) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, s.baseURL+"/")
}
