// Package storage provides object storage implementations for dead-letter
// payload archival.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	dlqapp "github.com/channelsync/backend/internal/application/dlq"
	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
	infraconfig "github.com/channelsync/backend/internal/infrastructure/config"
)

// Ensure S3PayloadArchiver implements the DLQ archiver port
var _ dlqapp.PayloadArchiver = (*S3PayloadArchiver)(nil)

// S3PayloadArchiver exports dead-letter payload snapshots to S3 using AWS SDK
// v2. It is compatible with any S3-compatible storage (AWS S3, RustFS, MinIO,
// etc.); archived entries can be trimmed from the hot store without losing
// the ability to inspect or replay them later.
type S3PayloadArchiver struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// S3PayloadArchiverOption is a functional option for configuring S3PayloadArchiver
type S3PayloadArchiverOption func(*S3PayloadArchiver)

// WithLogger sets a custom logger for S3PayloadArchiver
func WithLogger(logger *zap.Logger) S3PayloadArchiverOption {
	return func(s *S3PayloadArchiver) {
		s.logger = logger
	}
}

// NewS3PayloadArchiver creates a new S3PayloadArchiver from configuration.
// It supports any S3-compatible storage backend.
func NewS3PayloadArchiver(cfg *infraconfig.ArchiveConfig, opts ...S3PayloadArchiverOption) (*S3PayloadArchiver, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}

	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("archive access key is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("archive secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "ap-southeast-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (not used for static credentials)
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	archiver := &S3PayloadArchiver{
		client: client,
		bucket: cfg.Bucket,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archiver)
	}

	return archiver, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3PayloadArchiver) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Ignore "BucketAlreadyOwnedByYou" error (race condition)
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Archive bucket created successfully", zap.String("bucket", s.bucket))
	return nil
}

// archiveSnapshot is the stored form of a dead-letter entry. The original
// payload is embedded verbatim so an archived job can still be replayed.
type archiveSnapshot struct {
	DeadLetterID  uuid.UUID          `json:"dead_letter_id"`
	TenantID      uuid.UUID          `json:"tenant_id"`
	OriginalJobID uuid.UUID          `json:"original_job_id"`
	OriginalQueue string             `json:"original_queue"`
	Platform      sync.PlatformCode  `json:"platform"`
	ChannelID     string             `json:"channel_id"`
	Operation     sync.OperationType `json:"operation"`
	FailureType   sync.FailureType   `json:"failure_type"`
	FailureReason string             `json:"failure_reason"`
	RetryCount    int                `json:"retry_count"`
	OriginatedAt  time.Time          `json:"originated_at"`
	CreatedAt     time.Time          `json:"created_at"`
	ArchivedAt    time.Time          `json:"archived_at"`
	Payload       json.RawMessage    `json:"payload"`
}

// ArchivePayload exports the dead-letter entry to the archive bucket and
// returns the storage key
func (s *S3PayloadArchiver) ArchivePayload(ctx context.Context, job *dlq.DeadLetterJob) (string, error) {
	if job == nil {
		return "", errors.New("dead letter job is required")
	}

	snapshot := archiveSnapshot{
		DeadLetterID:  job.ID,
		TenantID:      job.TenantID,
		OriginalJobID: job.OriginalJobID,
		OriginalQueue: job.OriginalQueue,
		Platform:      job.Platform,
		ChannelID:     job.ChannelID,
		Operation:     job.Operation,
		FailureType:   job.FailureType,
		FailureReason: job.FailureReason,
		RetryCount:    job.RetryCount,
		OriginatedAt:  job.OriginatedAt,
		CreatedAt:     job.CreatedAt,
		ArchivedAt:    time.Now(),
		Payload:       json.RawMessage(job.OriginalPayload),
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to serialize archive snapshot: %w", err)
	}

	key := ArchiveKeyFor(job)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload archive snapshot: %w", err)
	}

	s.logger.Info("dead-letter payload archived",
		zap.String("dead_letter_id", job.ID.String()),
		zap.String("bucket", s.bucket),
		zap.String("key", key),
	)
	return key, nil
}

// ObjectExists checks if an archived snapshot exists in storage.
func (s *S3PayloadArchiver) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		var notFound *types.NotFound
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
			return false, nil
		}
		// Some S3-compatible services return the code in the message only
		if strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}

// GetBucket returns the bucket name
func (s *S3PayloadArchiver) GetBucket() string {
	return s.bucket
}

// ArchiveKeyFor derives the storage key for a dead-letter entry. Keys are
// prefixed by tenant and capture month so retention policies can act on
// whole prefixes.
func ArchiveKeyFor(job *dlq.DeadLetterJob) string {
	return fmt.Sprintf("dlq/%s/%s/%s.json",
		job.TenantID, job.CreatedAt.UTC().Format("2006/01"), job.ID)
}
