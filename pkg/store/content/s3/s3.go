// Package s3 implements blob storage on Amazon S3 or any S3-compatible
// service (MinIO, Localstack, Cubbit DS3).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittocmis/internal/logger"
	"github.com/marmos91/dittocmis/internal/ratelimiter"
	"github.com/marmos91/dittocmis/pkg/store/content"
)

// maxDeleteBatch is the S3 limit for objects per DeleteObjects request.
const maxDeleteBatch = 1000

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client. When nil, NewS3ContentStore builds
	// one from the connection fields below.
	Client *s3.Client `mapstructure:"-"`

	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket" validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`

	// KeyPrefix is prepended to every object key.
	// Example: "dittocmis/" results in keys like "dittocmis/<content-id>"
	KeyPrefix string `mapstructure:"key_prefix"`

	// RequestsPerSecond caps the request rate to the bucket. 0 means
	// unlimited. Burst defaults to RequestsPerSecond.
	RequestsPerSecond uint `mapstructure:"requests_per_second"`
	Burst             uint `mapstructure:"burst"`

	// Metrics receives per-operation observations. Optional.
	Metrics S3Metrics `mapstructure:"-"`
}

// S3ContentStore implements content.Store on an S3 bucket.
//
// Each blob is one object; WriteContent is a single PutObject, so blobs are
// replaced atomically from the reader's point of view.
//
// Thread Safety:
// The S3 client is safe for concurrent use. Concurrent writes to the same
// ContentID are last-write-wins.
type S3ContentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	metrics   S3Metrics
	limiter   *ratelimiter.RateLimiter
}

var _ content.Store = (*S3ContentStore)(nil)

// NewS3ContentStore creates an S3-backed content store.
//
// The bucket must already exist; this function verifies access with a
// HeadBucket request but does not create it.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	// ========================================================================
	// Step 1: Validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	// ========================================================================
	// Step 2: Build the client if one was not injected
	// ========================================================================

	client := cfg.Client
	if client == nil {
		var err error
		client, err = NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", cfg.Bucket, err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	logger.Info("S3 content store opened: bucket=%s prefix=%q rate_limit=%d/s",
		cfg.Bucket, cfg.KeyPrefix, cfg.RequestsPerSecond)

	return &S3ContentStore{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   metrics,
		limiter:   ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst),
	}, nil
}

// NewClient builds an S3 client from the connection settings.
//
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain applies.
func NewClient(ctx context.Context, cfg S3ContentStoreConfig) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
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

func (s *S3ContentStore) objectKey(id content.ContentID) string {
	return s.keyPrefix + string(id)
}

func (s *S3ContentStore) contentID(key string) content.ContentID {
	return content.ContentID(strings.TrimPrefix(key, s.keyPrefix))
}

// throttle waits for the rate limiter before a request is sent.
func (s *S3ContentStore) throttle(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// isNotFound recognizes both GetObject (NoSuchKey) and HeadObject
// (NotFound) misses.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// ============================================================================
// ContentStore
// ============================================================================

func (s *S3ContentStore) ReadContent(ctx context.Context, id content.ContentID) (rc io.ReadCloser, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("GetObject", time.Since(start), err) }()

	if err := s.throttle(ctx); err != nil {
		return nil, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &metricsReadCloser{ReadCloser: result.Body, metrics: s.metrics, operation: "read"}, nil
}

func (s *S3ContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	result, err := s.head(ctx, id)
	if err != nil {
		return 0, err
	}
	if result.ContentLength == nil {
		return 0, fmt.Errorf("content length not available for %s", id)
	}
	return uint64(*result.ContentLength), nil
}

func (s *S3ContentStore) head(ctx context.Context, id content.ContentID) (result *s3.HeadObjectOutput, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("HeadObject", time.Since(start), err) }()

	if err := s.throttle(ctx); err != nil {
		return nil, err
	}

	result, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to head object: %w", err)
	}
	return result, nil
}

func (s *S3ContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetStorageStats lists every object under the prefix. This is expensive on
// large buckets and is only used by the info command and the collector.
func (s *S3ContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	var used, count uint64
	err := s.list(ctx, func(obj types.Object) {
		if obj.Size != nil {
			used += uint64(*obj.Size)
		}
		count++
	})
	if err != nil {
		return nil, err
	}
	return content.NewStorageStats(used, count), nil
}

// ============================================================================
// WritableContentStore
// ============================================================================

func (s *S3ContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("PutObject", time.Since(start), err) }()

	if err := content.ValidateContentID(id); err != nil {
		return err
	}
	if err := s.throttle(ctx); err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write content to S3: %w", err)
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Delete is idempotent: S3 DeleteObject succeeds for missing keys.
func (s *S3ContentStore) Delete(ctx context.Context, id content.ContentID) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("DeleteObject", time.Since(start), err) }()

	if err := s.throttle(ctx); err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete content from S3: %w", err)
	}
	return nil
}

// ============================================================================
// GarbageCollectableStore
// ============================================================================

func (s *S3ContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	var ids []content.ContentID
	err := s.list(ctx, func(obj types.Object) {
		ids = append(ids, s.contentID(aws.ToString(obj.Key)))
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteBatch chunks ids into DeleteObjects requests of at most 1000 keys.
func (s *S3ContentStore) GetContentModTime(ctx context.Context, id content.ContentID) (time.Time, error) {
	result, err := s.head(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if result.LastModified == nil {
		return time.Time{}, fmt.Errorf("last modified time not available for %s", id)
	}
	return *result.LastModified, nil
}

func (s *S3ContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	failures := make(map[content.ContentID]error)

	for i := 0; i < len(ids); i += maxDeleteBatch {
		if err := s.throttle(ctx); err != nil {
			for _, id := range ids[i:] {
				failures[id] = err
			}
			return failures, err
		}

		batch := ids[i:min(i+maxDeleteBatch, len(ids))]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, id := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(s.objectKey(id))}
		}

		start := time.Now()
		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		s.metrics.ObserveOperation("DeleteObjects", time.Since(start), err)
		if err != nil {
			for _, id := range batch {
				failures[id] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}
			failures[s.contentID(*deleteErr.Key)] = fmt.Errorf("%s: %s",
				aws.ToString(deleteErr.Code), aws.ToString(deleteErr.Message))
		}
	}

	return failures, nil
}

func (s *S3ContentStore) list(ctx context.Context, fn func(obj types.Object)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		if err := s.throttle(ctx); err != nil {
			return err
		}

		start := time.Now()
		page, err := paginator.NextPage(ctx)
		s.metrics.ObserveOperation("ListObjectsV2", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			fn(obj)
		}
	}
	return nil
}
