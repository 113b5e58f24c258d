package storages

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"tenantbase-backend/internal/config"
)

// StorageService reads and writes backup blobs in S3-compatible object
// storage. Blobs are opaque here; the envelope layer owns their contents.
type StorageService struct {
	client *s3.S3
	logger *slog.Logger
}

func NewStorageService(env *config.Env, logger *slog.Logger) (*StorageService, error) {
	awsConfig := &aws.Config{
		Region: aws.String(env.S3Region),
	}

	if env.S3AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			env.S3AccessKey,
			env.S3SecretKey,
			"",
		)
	}

	if env.S3Endpoint != "" {
		// minio and friends
		awsConfig.Endpoint = aws.String(env.S3Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage session: %w", err)
	}

	return &StorageService{
		client: s3.New(sess),
		logger: logger,
	}, nil
}

func (s *StorageService) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	output, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download object %s/%s: %w", bucket, key, err)
	}
	defer func() {
		if closeErr := output.Body.Close(); closeErr != nil {
			s.logger.Error("Failed to close object body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucket, key, err)
	}

	return data, nil
}

func (s *StorageService) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s/%s: %w", bucket, key, err)
	}

	return nil
}
