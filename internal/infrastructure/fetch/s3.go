package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/newmanyatta/manyatta/internal/infrastructure/config"
	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

// S3Fetcher reads s3://bucket/key sources
type S3Fetcher struct {
	api      s3iface.S3API
	maxBytes int64
	recorder Recorder
}

// NewS3Fetcher creates an S3 client from the storage config. Static
// credentials are used when both keys are set, otherwise the default chain.
func NewS3Fetcher(cfg config.StorageConfig, maxBytes int64, recorder Recorder) (*S3Fetcher, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewS3FetcherFrom(s3.New(sess), maxBytes, recorder), nil
}

// NewS3FetcherFrom wraps an existing S3 client
func NewS3FetcherFrom(api s3iface.S3API, maxBytes int64, recorder Recorder) *S3Fetcher {
	return &S3Fetcher{api: api, maxBytes: maxBytes, recorder: recorder}
}

// ParseS3Source splits "s3://bucket/key" into bucket and key
func ParseS3Source(src string) (bucket, key string, err error) {
	u, err := url.Parse(src)
	if err != nil {
		return "", "", fmt.Errorf("parse source: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", outbound.ErrUnsupportedSource
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 source %q has no key: %w", src, outbound.ErrUnsupportedSource)
	}
	return u.Host, key, nil
}

// Fetch implements outbound.ImageFetcher
func (f *S3Fetcher) Fetch(ctx context.Context, src string) (blob *outbound.Blob, err error) {
	start := time.Now()
	defer func() {
		if f.recorder != nil {
			f.recorder.RecordFetch("s3", time.Since(start), err)
		}
	}()

	bucket, key, err := ParseS3Source(src)
	if err != nil {
		return nil, err
	}

	out, err := f.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if f.maxBytes > 0 && aws.Int64Value(out.ContentLength) > f.maxBytes {
		return nil, ErrTooLarge
	}

	data, err := readLimited(out.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}

	return newBlob(data, aws.StringValue(out.ContentType)), nil
}
