package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

// ============================================================================
// Unit Tests (no external dependencies)
// ============================================================================

func TestNewS3PayloadArchiver_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3PayloadArchiver(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		}
		_, err := NewS3PayloadArchiver(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "test-bucket",
			SecretAccessKey: "test-secret",
		}
		_, err := NewS3PayloadArchiver(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:      "test-bucket",
			AccessKeyID: "test-key",
		}
		_, err := NewS3PayloadArchiver(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("valid config creates archiver", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Region:          "ap-southeast-1",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		}
		archiver, err := NewS3PayloadArchiver(cfg)
		require.NoError(t, err)
		require.NotNil(t, archiver)
		assert.Equal(t, "test-bucket", archiver.GetBucket())
	})

	t.Run("endpoint without protocol gets https prefix", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "storage.example.id:9000",
		}
		archiver, err := NewS3PayloadArchiver(cfg)
		require.NoError(t, err)
		require.NotNil(t, archiver)
	})

	t.Run("empty endpoint targets AWS", func(t *testing.T) {
		cfg := &config.ArchiveConfig{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		}
		archiver, err := NewS3PayloadArchiver(cfg)
		require.NoError(t, err)
		require.NotNil(t, archiver)
	})
}

func testDeadLetterJob(t *testing.T, tenantID uuid.UUID) *dlq.DeadLetterJob {
	t.Helper()
	job := sync.NewSyncJob(tenantID, "channel-1", sync.PlatformCodeTokopedia,
		sync.OperationOrderSync, []byte(`{"order_number":"SO-1"}`), "")
	dead, err := dlq.NewDeadLetterJob(job, "sync-pipeline", sync.FailureServerError, "platform down", 3)
	require.NoError(t, err)
	return dead
}

func TestArchiveKeyFor(t *testing.T) {
	tenantID := uuid.New()
	dead := testDeadLetterJob(t, tenantID)
	dead.CreatedAt = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	key := ArchiveKeyFor(dead)
	assert.Equal(t, fmt.Sprintf("dlq/%s/2026/08/%s.json", tenantID, dead.ID), key)
}

func TestInMemoryPayloadArchiver(t *testing.T) {
	archiver := NewInMemoryPayloadArchiver()
	dead := testDeadLetterJob(t, uuid.New())

	key, err := archiver.ArchivePayload(context.Background(), dead)
	require.NoError(t, err)
	assert.Equal(t, ArchiveKeyFor(dead), key)
	assert.Equal(t, 1, archiver.Size())

	payload, ok := archiver.Get(key)
	require.True(t, ok)
	assert.JSONEq(t, `{"order_number":"SO-1"}`, string(payload))
}

func TestInMemoryPayloadArchiver_NilJob(t *testing.T) {
	archiver := NewInMemoryPayloadArchiver()
	_, err := archiver.ArchivePayload(context.Background(), nil)
	require.Error(t, err)
}
