package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const (
	reportPrefix  = "reports/"
	presignExpiry = 1 * time.Hour
)

// S3Client stores report artifacts in a bucket. Refs are object keys.
type S3Client struct {
	svc     *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Client creates a new S3 client instance
func NewS3Client(ctx context.Context, region, bucket string) (*S3Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket cannot be empty")
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	svc := s3.NewFromConfig(cfg)
	return &S3Client{
		svc:     svc,
		presign: s3.NewPresignClient(svc),
		bucket:  bucket,
	}, nil
}

// Save uploads an artifact under the reports prefix. PutObject is atomic, so
// a failed upload never leaves a partial object behind.
func (c *S3Client) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := reportPrefix + path.Base(name)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"uploaded-at": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if _, err := c.svc.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

func (c *S3Client) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := c.svc.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat S3 object: %w", err)
	}
	return true, nil
}

// URL presigns a download link valid for one hour.
func (c *S3Client) URL(ctx context.Context, ref string) (string, error) {
	res, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(ref),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return res.URL, nil
}
