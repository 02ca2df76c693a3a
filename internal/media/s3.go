// internal/media/s3.go
// Package media stages the bytes of pending uploads so the gallery can show
// a preview of an item before the gateway has confirmed it.
// The S3 stager supports AWS S3 and S3-compatible services like MinIO.
package media

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/P3dro7wz/Luxy/internal/model"
)

// Stager stores upload bytes under a key and returns a URL the preview can
// be fetched from. Discard drops the staged bytes once the gateway has
// answered.
type Stager interface {
	Stage(ctx context.Context, key string, file model.UploadFile) (string, error)
	Discard(ctx context.Context, key string) error
}

// previewPrefix is the object key prefix of staged previews.
const previewPrefix = "previews/"

// S3Stager stages previews in an S3 bucket and hands out presigned GET URLs.
type S3Stager struct {
	client  *s3.Client        // AWS S3 client
	presign *s3.PresignClient // Presigner for preview URLs
	bucket  string            // Bucket holding staged previews
	ttl     time.Duration     // Lifetime of a preview URL
}

// NewS3Stager creates a stager for bucket.
// Parameters:
//   - endpoint: S3 service endpoint URL
//   - region: AWS region (or equivalent for S3-compatible services)
//   - bucket: S3 bucket name for staged previews
//   - accessKey, secretKey: static credentials
//   - ttl: lifetime of the presigned preview URLs
func NewS3Stager(endpoint, region, bucket, accessKey, secretKey string, ttl time.Duration) (*S3Stager, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(region),
		config.WithBaseEndpoint(endpoint),
		config.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for MinIO and other S3-compatible services
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Stager{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		ttl:     ttl,
	}, nil
}

// Stage uploads the file bytes and returns a presigned GET URL for them.
func (s *S3Stager) Stage(ctx context.Context, key string, file model.UploadFile) (string, error) {
	objectKey := previewPrefix + key
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(file.Data),
		ContentLength: aws.Int64(int64(len(file.Data))),
		ContentType:   aws.String(file.MimeType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to stage preview: %w", err)
	}

	presigned, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return presigned.URL, nil
}

// Discard deletes the staged object.
func (s *S3Stager) Discard(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(previewPrefix + key),
	})
	if err != nil {
		return fmt.Errorf("failed to discard preview: %w", err)
	}
	return nil
}

// Inline is the stager used without object storage. The preview URL is a
// local object URL that only the process holding the bytes can resolve.
type Inline struct{}

// Stage implements Stager.
func (Inline) Stage(ctx context.Context, key string, file model.UploadFile) (string, error) {
	return "blob:" + key, nil
}

// Discard implements Stager.
func (Inline) Discard(ctx context.Context, key string) error { return nil }
