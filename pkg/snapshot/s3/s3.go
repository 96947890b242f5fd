// Package s3 stores collection snapshots in Amazon S3 or S3-compatible storage.
//
// Snapshots are addressed with URIs of the form
//
//	s3://bucket/path/to/snapshot.zip
//
// A URI without a bucket ("s3:///key" or "s3:key") uses the configured default
// bucket. KeyPrefix is prepended to every key.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/dittodocs/internal/logger"
	"github.com/marmos91/dittodocs/internal/ratelimiter"
	"github.com/marmos91/dittodocs/pkg/metrics"
)

// Scheme is the URI scheme handled by this package.
const Scheme = "s3://"

// ErrObjectNotFound is returned when a snapshot object does not exist.
var ErrObjectNotFound = errors.New("snapshot object not found")

// Config contains the S3 connection settings, decoded from the
// snapshot.s3 configuration section.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`

	// MaxBytesPerSecond caps transfer bandwidth. Zero means unlimited.
	MaxBytesPerSecond uint `mapstructure:"max_bytes_per_second"`
}

// API is the subset of the S3 client used for snapshots.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewClientFromConfig builds an S3 client.
//
// Static credentials are used when both keys are set, otherwise the default
// AWS credential chain applies. A custom endpoint enables S3-compatible
// services (MinIO, Localstack, Cubbit DS3).
func NewClientFromConfig(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// Transfer uploads and downloads snapshot archives.
//
// Thread Safety:
// Transfer holds no mutable state and is safe for concurrent use.
type Transfer struct {
	client    API
	bucket    string
	keyPrefix string
	limiter   *ratelimiter.RateLimiter
	metrics   metrics.SnapshotMetrics
}

// NewTransfer creates a Transfer. A nil metrics value records nothing.
func NewTransfer(client API, cfg Config, m metrics.SnapshotMetrics) (*Transfer, error) {
	if client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if m == nil {
		m = metrics.NewSnapshotMetrics()
	}
	return &Transfer{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
		limiter:   ratelimiter.New(cfg.MaxBytesPerSecond, 0),
		metrics:   m,
	}, nil
}

// Handles reports whether location is an S3 URI.
func (t *Transfer) Handles(location string) bool {
	return IsURI(location)
}

// IsURI reports whether location uses the s3:// scheme.
func IsURI(location string) bool {
	return strings.HasPrefix(location, Scheme)
}

// ParseURI splits an s3:// URI into bucket and key. The bucket may be empty.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("not an S3 URI: %q", uri)
	}

	rest := strings.TrimPrefix(uri, Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	key = strings.Trim(key, "/")
	if key == "" {
		return "", "", fmt.Errorf("S3 URI %q has no object key", uri)
	}
	return bucket, key, nil
}

// resolve returns the bucket and full object key for uri.
func (t *Transfer) resolve(uri string) (string, string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", "", err
	}
	if bucket == "" {
		bucket = t.bucket
	}
	if bucket == "" {
		return "", "", fmt.Errorf("S3 URI %q has no bucket and no default bucket is configured", uri)
	}
	if t.keyPrefix != "" {
		key = path.Join(t.keyPrefix, key)
	}
	return bucket, key, nil
}

// Upload stores the local file at uri.
func (t *Transfer) Upload(ctx context.Context, localPath, uri string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	bucket, key, err := t.resolve(uri)
	if err != nil {
		return err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		var n int64
		if err == nil {
			n = info.Size()
		}
		t.metrics.RecordTransfer("PutObject", n, time.Since(start), err)
	}()

	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          t.limiter.ReadSeeker(ctx, f),
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", bucket, key, err)
	}

	logger.Info("Uploaded snapshot to s3://%s/%s (%d bytes)", bucket, key, info.Size())
	return nil
}

// Download fetches uri into the local file, which is created or truncated.
func (t *Transfer) Download(ctx context.Context, uri, localPath string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	bucket, key, err := t.resolve(uri)
	if err != nil {
		return err
	}

	var written int64
	start := time.Now()
	defer func() {
		t.metrics.RecordTransfer("GetObject", written, time.Since(start), err)
	}()

	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return fmt.Errorf("failed to download snapshot s3://%s/%s: %w", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	written, err = io.Copy(f, t.limiter.Reader(ctx, out.Body))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("Downloaded snapshot s3://%s/%s (%d bytes)", bucket, key, written)
	return nil
}
