package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/socialchef/sizzle/internal/errors"
)

// S3Options configures an S3 compatible bucket. Endpoint switches the client
// to path-style addressing for MinIO, R2 or the OCI S3 compatibility API.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	PublicURL string
}

type S3Store struct {
	client *s3.Client
	opts   S3Options
}

// NewS3Store loads credentials from the default AWS chain.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3StoreFromClient(client, opts), nil
}

func NewS3StoreFromClient(client *s3.Client, opts S3Options) *S3Store {
	return &S3Store{client: client, opts: opts}
}

func (s *S3Store) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", apperrors.NewStorageError("s3 upload failed", "STORAGE_UPLOAD_FAILED", statusOf(err),
			fmt.Errorf("%w: %v", ErrUploadFailed, err))
	}
	return s.PublicURL(path), nil
}

func (s *S3Store) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(path),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) || statusOf(err) == http.StatusNotFound {
		return false, nil
	}
	return false, apperrors.NewStorageError("s3 existence check failed", "STORAGE_HEAD_FAILED", statusOf(err), err)
}

func (s *S3Store) PublicURL(path string) string {
	switch {
	case s.opts.PublicURL != "":
		return joinURL(s.opts.PublicURL, path)
	case s.opts.Endpoint != "":
		return joinURL(joinURL(s.opts.Endpoint, s.opts.Bucket), path)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, path)
	}
}

func statusOf(err error) int {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
