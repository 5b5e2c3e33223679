// server/internal/s3/uploader.go
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"car-listing-api-server/config"
	"car-listing-api-server/internal/media"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// ObjectAPI is the subset of the S3 client the uploader calls.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

type Uploader struct {
	Client           ObjectAPI
	Bucket           string
	Region           string
	CloudFrontDomain string
}

var _ media.Store = (*Uploader)(nil)

func NewUploader(ctx context.Context, cfg config.S3Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Uploader{
		Client:           s3.NewFromConfig(sdkConfig),
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
	}, nil
}

// Upload decodes a base64 image and puts it under folder/<uuid><ext>.
func (u *Uploader) Upload(ctx context.Context, image, folder string) (string, error) {
	img, err := media.DecodeImage(image)
	if err != nil {
		return "", err
	}

	objectKey := fmt.Sprintf("%s/%s%s", folder, uuid.New().String(), img.Ext)
	_, err = u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.Bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(img.Data),
		ContentLength: aws.Int64(int64(len(img.Data))),
		ContentType:   aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return u.baseURL() + "/" + objectKey, nil
}

// Destroy deletes every object whose key starts with folder/publicID, so the
// extension stripped from the public id does not need to be known.
func (u *Uploader) Destroy(ctx context.Context, folder, publicID string) error {
	if publicID == "" {
		return fmt.Errorf("empty public id")
	}
	prefix := folder + "/" + publicID

	out, err := u.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.Bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to list objects %q: %w", prefix, err)
	}
	if len(out.Contents) == 0 {
		return fmt.Errorf("object %q not found", prefix)
	}

	ids := make([]types.ObjectIdentifier, 0, len(out.Contents))
	for _, obj := range out.Contents {
		ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
	}
	res, err := u.Client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(u.Bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to delete objects %q: %w", prefix, err)
	}
	if len(res.Errors) > 0 {
		return fmt.Errorf("failed to delete %q: %s", aws.ToString(res.Errors[0].Key), aws.ToString(res.Errors[0].Message))
	}
	return nil
}

func (u *Uploader) Owns(rawURL string) bool {
	return strings.HasPrefix(rawURL, u.baseURL()+"/")
}

func (u *Uploader) baseURL() string {
	if u.CloudFrontDomain != "" {
		return "https://" + u.CloudFrontDomain
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", u.Bucket, u.Region)
}
