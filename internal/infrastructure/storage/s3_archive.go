// Package storage keeps copies of exchanged qbXML documents in S3-compatible
// object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/qbdsync/backend/internal/application/qbwc"
	infraconfig "github.com/qbdsync/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3Archive implements qbwc.Archiver
var _ qbwc.Archiver = (*S3Archive)(nil)

// objectAPI is the subset of *s3.Client the archive needs
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Archive writes one object per exchanged document. Keys group documents
// by realm, day and session so one sync run can be listed with a prefix:
//
//	<prefix>/<realm_id>/<yyyy>/<mm>/<dd>/<session_id>/<unix_nano>-<task_id>-<kind>.xml
type S3Archive struct {
	client objectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// S3ArchiveOption is a functional option for configuring S3Archive
type S3ArchiveOption func(*S3Archive)

// WithLogger sets a custom logger for S3Archive
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(s *S3Archive) {
		s.logger = logger
	}
}

// withClient replaces the S3 client; used by tests
func withClient(c objectAPI) S3ArchiveOption {
	return func(s *S3Archive) {
		s.client = c
	}
}

// NewS3Archive creates an archive from configuration. Static credentials are
// used when configured, otherwise the default AWS credential chain.
func NewS3Archive(ctx context.Context, cfg infraconfig.ArchiveConfig, opts ...S3ArchiveOption) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	archive := &S3Archive{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	if archive.client != nil {
		return archive, nil
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint *string
	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
		endpoint = aws.String(cfg.Endpoint)
	}

	archive.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
	return archive, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3Archive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		// Another replica won the race
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive uploads one document
func (s *S3Archive) Archive(ctx context.Context, ex qbwc.Exchange) error {
	key := s.Key(ex)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(ex.Payload),
		ContentType: aws.String("application/xml"),
		Metadata: map[string]string{
			"realm-id":   ex.RealmID.String(),
			"session-id": ex.SessionID.String(),
			"task-id":    ex.TaskID.String(),
			"kind":       string(ex.Kind),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Debug("Archived qbXML exchange", zap.String("key", key), zap.Int("bytes", len(ex.Payload)))
	return nil
}

// Key returns the object key for ex
func (s *S3Archive) Key(ex qbwc.Exchange) string {
	at := ex.At.UTC()
	name := fmt.Sprintf("%d-%s-%s.xml", at.UnixNano(), ex.TaskID, ex.Kind)
	return path.Join(s.prefix, ex.RealmID.String(), at.Format("2006/01/02"), ex.SessionID.String(), name)
}

// Bucket returns the bucket name
func (s *S3Archive) Bucket() string {
	return s.bucket
}
