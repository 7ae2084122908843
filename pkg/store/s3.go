package store

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"quietpost/pkg/config"
	"quietpost/pkg/logger"
)

// S3Blobs is the networked blob backend: one blob name is one object in
// a single bucket. A custom endpoint with path-style addressing supports
// MinIO deployments.
type S3Blobs struct {
	client *s3.Client
	bucket string
}

// OpenS3 builds an S3 client from static credentials and verifies
// nothing up front; the first Get against a missing log is expected and
// maps to ErrNotFound.
func OpenS3(ctx context.Context, cfg config.S3Config) (*S3Blobs, error) {
	awscfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awscfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info("s3_backend_ready", "bucket", cfg.Bucket, "endpoint", cfg.Endpoint)
	return &S3Blobs{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Blobs) Get(ctx context.Context, name string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		logger.Error("s3_get_failed", "name", name, "error", err)
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Blobs) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		logger.Error("s3_put_failed", "name", name, "error", err)
		return err
	}
	logger.Debug("s3_put_ok", "name", name, "len", len(data))
	return nil
}

func (s *S3Blobs) Close() error { return nil }
