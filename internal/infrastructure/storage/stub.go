package storage

import (
	"context"
	"errors"
	gosync "sync"

	dlqapp "github.com/channelsync/backend/internal/application/dlq"
	"github.com/channelsync/backend/internal/domain/dlq"
)

// Ensure InMemoryPayloadArchiver implements the DLQ archiver port
var _ dlqapp.PayloadArchiver = (*InMemoryPayloadArchiver)(nil)

// InMemoryPayloadArchiver keeps archived payloads in memory. Used in
// development and tests when no S3-compatible backend is configured;
// archived entries do not survive a restart.
type InMemoryPayloadArchiver struct {
	mu        gosync.Mutex
	snapshots map[string][]byte
}

// NewInMemoryPayloadArchiver creates a new InMemoryPayloadArchiver
func NewInMemoryPayloadArchiver() *InMemoryPayloadArchiver {
	return &InMemoryPayloadArchiver{
		snapshots: make(map[string][]byte),
	}
}

// ArchivePayload stores the payload under the derived key and returns the key
func (a *InMemoryPayloadArchiver) ArchivePayload(ctx context.Context, job *dlq.DeadLetterJob) (string, error) {
	if job == nil {
		return "", errors.New("dead letter job is required")
	}

	key := ArchiveKeyFor(job)
	payload := make([]byte, len(job.OriginalPayload))
	copy(payload, job.OriginalPayload)

	a.mu.Lock()
	a.snapshots[key] = payload
	a.mu.Unlock()

	return key, nil
}

// Get returns an archived payload by key
func (a *InMemoryPayloadArchiver) Get(key string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	payload, ok := a.snapshots[key]
	return payload, ok
}

// Size returns the number of archived payloads
func (a *InMemoryPayloadArchiver) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.snapshots)
}
