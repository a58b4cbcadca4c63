package provider

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3ArtifactStore uploads scaffolded site archives to an S3-compatible
// bucket the deploy platform pulls from.
type S3ArtifactStore struct {
	endpoint string
	bucket   string
	client   *s3.Client
	logger   zerolog.Logger
}

func NewS3ArtifactStore(endpoint, bucket, accessKey, secretKey string, logger zerolog.Logger) *S3ArtifactStore {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       "us-east-1",
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &S3ArtifactStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		bucket:   bucket,
		client:   client,
		logger:   logger.With().Str("component", "artifact-store").Logger(),
	}
}

func (s *S3ArtifactStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", key, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	s.logger.Info().Str("key", key).Int("bytes", len(data)).Msg("uploaded site artifact")
	return url, nil
}

// NullArtifactStore is used when no artifact bucket is configured; the deploy
// request carries no artifact URL and the platform rebuilds from source.
type NullArtifactStore struct{}

func (NullArtifactStore) Put(context.Context, string, []byte) (string, error) {
	return "", nil
}
