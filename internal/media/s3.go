package media

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/erazemk/assetlend/internal/config"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store uploads files to an S3 bucket, optionally fronted by CloudFront.
type S3Store struct {
	Client           S3API
	Bucket           string
	Region           string
	CloudFrontDomain string
}

// NewS3Store builds an S3 client from cfg. Without static keys the default
// AWS credential chain is used.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Store{
		Client:           s3.NewFromConfig(sdkConfig),
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
	}, nil
}

// Put uploads r and returns its CloudFront URL, or the bucket URL when no
// distribution is configured.
func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading to S3: %w", err)
	}
	return s.URL(key), nil
}

// Delete removes an object from the bucket.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from S3: %w", err)
	}
	return nil
}

// URL returns the public URL of key.
func (s *S3Store) URL(key string) string {
	if s.CloudFrontDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.CloudFrontDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.Bucket, s.Region, key)
}

// NewStore returns the store selected by cfg.Driver.
func NewStore(ctx context.Context, cfg config.MediaConfig) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "local", "":
		return NewLocalStore(cfg.Dir, cfg.URLPrefix)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}
}
