// Package sync contains the error-handling orchestrator: the single entry
// point every marketplace operation flows through. It composes fail-fast
// validation, idempotency, the circuit breaker, the retry engine, dead-letter
// handoff and metrics recording around the platform adapters.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/resilience"
	"github.com/channelsync/backend/internal/infrastructure/telemetry"
)

// originalQueue names the pipeline stage recorded on dead-lettered jobs
const originalQueue = "sync-pipeline"

// defaultIdempotencyTTL bounds how long a consumed idempotency key blocks
// replays
const defaultIdempotencyTTL = 24 * time.Hour

// DeadLetterSink receives permanently-failed jobs. The DLQ manager implements
// it; the orchestrator never reports a final failure before the sink has
// durably accepted the job.
type DeadLetterSink interface {
	Enqueue(ctx context.Context, job *sync.SyncJob, failureType sync.FailureType, failureReason string) error
}

// AdapterCall is one platform invocation wrapped by the error-handling
// pipeline
type AdapterCall func(ctx context.Context, platform sync.MarketplacePlatform) (*sync.SyncResult, error)

// Config bounds the orchestrator
type Config struct {
	// MaxRetries mirrors the retry engine bound, recorded on dead-lettered jobs
	MaxRetries int
	// IdempotencyTTL is how long consumed idempotency keys are retained
	IdempotencyTTL time.Duration
}

// Orchestrator coordinates sync operations through the resilience pipeline.
// Ordering is fixed per job: breaker gate, then retry, then dead-letter
// handoff. Components never invoke each other outside this composition.
type Orchestrator struct {
	registry    sync.PlatformRegistry
	retrier     *resilience.Retrier
	breaker     *resilience.CircuitBreaker
	deadLetters DeadLetterSink
	metricsRepo sync.SyncMetricsRepository
	cfg         Config
	logger      *zap.Logger

	// optional collaborators
	calendar        sync.BusinessCalendar
	idempotency     shared.IdempotencyStore
	businessMetrics *telemetry.BusinessMetrics
}

// NewOrchestrator creates the orchestrator
func NewOrchestrator(
	registry sync.PlatformRegistry,
	retrier *resilience.Retrier,
	breaker *resilience.CircuitBreaker,
	deadLetters DeadLetterSink,
	metricsRepo sync.SyncMetricsRepository,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaultIdempotencyTTL
	}
	return &Orchestrator{
		registry:    registry,
		retrier:     retrier,
		breaker:     breaker,
		deadLetters: deadLetters,
		metricsRepo: metricsRepo,
		cfg:         cfg,
		logger:      logger,
	}
}

// SetCalendar sets the business calendar consulted for warning annotations
func (o *Orchestrator) SetCalendar(calendar sync.BusinessCalendar) {
	o.calendar = calendar
}

// SetIdempotencyStore sets the store that deduplicates replayed requests
func (o *Orchestrator) SetIdempotencyStore(store shared.IdempotencyStore) {
	o.idempotency = store
}

// SetBusinessMetrics sets the business metrics collector
func (o *Orchestrator) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	o.businessMetrics = bm
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// PerformSync pushes a normalized order to a marketplace. It is the sole
// entry point for order synchronization: validation failures are raised
// before any pipeline work, and every other outcome flows through the
// error-handling pipeline.
func (o *Orchestrator) PerformSync(ctx context.Context, tenantID uuid.UUID, channelID string, platform sync.PlatformCode, order *sync.NormalizedOrder) (*sync.SyncResult, error) {
	if order == nil {
		return o.failFast(ctx, tenantID, channelID, platform, sync.OperationOrderSync, sync.ErrOrderInvalid)
	}
	if err := order.Validate(); err != nil {
		return o.failFast(ctx, tenantID, channelID, platform, sync.OperationOrderSync, err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return o.failFast(ctx, tenantID, channelID, platform, sync.OperationOrderSync,
			fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
	}

	key := idempotencyKeyFor(tenantID, channelID, sync.OperationOrderSync, order.OrderID.String())
	job := sync.NewSyncJob(tenantID, channelID, platform, sync.OperationOrderSync, payload, key)
	if !order.RequestedAt.IsZero() {
		job.OriginatedAt = order.RequestedAt
	}

	return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
		return p.SyncOrder(ctx, tenantID, channelID, order)
	})
}

// PushInventory publishes stock levels to a marketplace through the pipeline
func (o *Orchestrator) PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, platform sync.PlatformCode, items []sync.InventoryUpdate) (*sync.SyncResult, error) {
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return o.failFast(ctx, tenantID, channelID, platform, sync.OperationInventoryPush, err)
		}
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return o.failFast(ctx, tenantID, channelID, platform, sync.OperationInventoryPush,
			fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
	}

	job := sync.NewSyncJob(tenantID, channelID, platform, sync.OperationInventoryPush, payload, "")
	return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
		return p.PushInventory(ctx, tenantID, channelID, items)
	})
}

// PushPrice publishes selling prices to a marketplace through the pipeline
func (o *Orchestrator) PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, platform sync.PlatformCode, items []sync.PriceUpdate) (*sync.SyncResult, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return o.failFast(ctx, tenantID, channelID, platform, sync.OperationPricePush,
			fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
	}

	job := sync.NewSyncJob(tenantID, channelID, platform, sync.OperationPricePush, payload, "")
	return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
		return p.PushPrice(ctx, tenantID, channelID, items)
	})
}

// PullOrderStatus retrieves a platform's reported order status through the
// pipeline. The report feeds cross-channel status conflict detection.
func (o *Orchestrator) PullOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID string, platform sync.PlatformCode, platformOrderID string) (*sync.OrderStatusReport, *sync.SyncResult, error) {
	payload, err := json.Marshal(statusPullPayload{PlatformOrderID: platformOrderID})
	if err != nil {
		result, ferr := o.failFast(ctx, tenantID, channelID, platform, sync.OperationStatusPull,
			fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
		return nil, result, ferr
	}

	var report *sync.OrderStatusReport
	job := sync.NewSyncJob(tenantID, channelID, platform, sync.OperationStatusPull, payload, "")
	result, err := o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
		r, err := p.GetOrderStatus(ctx, tenantID, channelID, platformOrderID)
		if err != nil {
			return nil, err
		}
		report = r
		res := sync.NewSuccessResult(platform, channelID, "", platformOrderID)
		res.Metrics.APICalls = 1
		return res, nil
	})
	return report, result, err
}

// ProcessJob replays a sync job rebuilt from its serialized payload. The
// scheduler workers and the DLQ requeue path both enter here.
func (o *Orchestrator) ProcessJob(ctx context.Context, job *sync.SyncJob) (*sync.SyncResult, error) {
	switch job.Operation {
	case sync.OperationOrderSync:
		var order sync.NormalizedOrder
		if err := json.Unmarshal(job.Payload, &order); err != nil {
			return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation,
				fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
		}
		return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
			return p.SyncOrder(ctx, job.TenantID, job.ChannelID, &order)
		})
	case sync.OperationInventoryPush:
		var items []sync.InventoryUpdate
		if err := json.Unmarshal(job.Payload, &items); err != nil {
			return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation,
				fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
		}
		return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
			return p.PushInventory(ctx, job.TenantID, job.ChannelID, items)
		})
	case sync.OperationPricePush:
		var items []sync.PriceUpdate
		if err := json.Unmarshal(job.Payload, &items); err != nil {
			return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation,
				fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
		}
		return o.ExecuteWithErrorHandling(ctx, job, func(ctx context.Context, p sync.MarketplacePlatform) (*sync.SyncResult, error) {
			return p.PushPrice(ctx, job.TenantID, job.ChannelID, items)
		})
	case sync.OperationStatusPull:
		var pull statusPullPayload
		if err := json.Unmarshal(job.Payload, &pull); err != nil {
			return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation,
				fmt.Errorf("%w: %v", sync.ErrOrderInvalid, err))
		}
		_, result, err := o.PullOrderStatus(ctx, job.TenantID, job.ChannelID, job.Platform, pull.PlatformOrderID)
		return result, err
	default:
		return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation, sync.ErrInvalidOperation)
	}
}

// statusPullPayload is the serialized form of a status-pull job
type statusPullPayload struct {
	PlatformOrderID string `json:"platform_order_id"`
}

// idempotencyKeyFor derives a deterministic key so a replay of the same
// logical request maps to the same idempotency slot
func idempotencyKeyFor(tenantID uuid.UUID, channelID string, op sync.OperationType, entityID string) string {
	return fmt.Sprintf("%s:%s:%s:%s", tenantID, channelID, op, entityID)
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// ExecuteWithErrorHandling runs one job through the full pipeline: idempotency
// gate, circuit breaker, retry engine, dead-letter handoff. A metrics record
// is written for every executed job regardless of outcome.
func (o *Orchestrator) ExecuteWithErrorHandling(ctx context.Context, job *sync.SyncJob, call AdapterCall) (*sync.SyncResult, error) {
	started := time.Now()

	if err := job.Validate(); err != nil {
		return o.failFast(ctx, job.TenantID, job.ChannelID, job.Platform, job.Operation, err)
	}

	if replay, done := o.checkIdempotency(ctx, job); done {
		return replay, nil
	}

	adapter, err := o.registry.GetPlatform(job.Platform)
	if err != nil {
		return o.finalizeFailure(ctx, job, sync.Classify(err), nil, time.Since(started))
	}

	key := resilience.CircuitKey{TenantID: job.TenantID, Platform: job.Platform, Operation: job.Operation}

	var lastResult *sync.SyncResult
	var apiCalls int
	var dataSize int64

	err = o.retrier.Execute(ctx, func(ctx context.Context) error {
		if err := o.breaker.Allow(key); err != nil {
			return err
		}
		job.Attempt++
		res, callErr := call(ctx, adapter)
		if res != nil {
			lastResult = res
			apiCalls += res.Metrics.APICalls
			dataSize += res.Metrics.DataSize
		}
		if callErr != nil {
			if countsTowardBreaker(callErr) {
				o.breaker.RecordFailure(key)
			}
			return callErr
		}
		o.breaker.RecordSuccess(key)
		return nil
	})

	duration := time.Since(started)

	if err != nil {
		classified := o.classifyFinal(err)
		return o.finalizeFailure(ctx, job, classified, &pipelineStats{
			retryAttempts: retriesOf(job),
			apiCalls:      apiCalls,
			dataSize:      dataSize,
		}, duration)
	}

	result := lastResult
	if result == nil {
		result = sync.NewSuccessResult(job.Platform, job.ChannelID, "", "")
	}
	result.Metrics.Duration = duration
	result.Metrics.RetryAttempts = retriesOf(job)
	result.Metrics.APICalls = apiCalls
	result.Metrics.DataSize = dataSize

	o.annotateCalendar(ctx, job.TenantID, result)
	o.markIdempotent(ctx, job)
	o.recordMetrics(ctx, job, result, "")

	return result, nil
}

// countsTowardBreaker reports whether a failure feeds the circuit breaker.
// Business rejections and validation errors describe the request, not the
// platform's health, so they never contribute to tripping the circuit.
func countsTowardBreaker(err error) bool {
	switch sync.Classify(err).Type {
	case sync.FailureBusinessLogic, sync.FailureValidation:
		return false
	default:
		return true
	}
}

// pipelineStats carries the counters accumulated across attempts into the
// failure path
type pipelineStats struct {
	retryAttempts int
	apiCalls      int
	dataSize      int64
}

// retriesOf converts the attempt counter into a retry count
func retriesOf(job *sync.SyncJob) int {
	if job.Attempt <= 1 {
		return 0
	}
	return job.Attempt - 1
}

// classifyFinal extracts the classification from a pipeline error. Retry
// exhaustion surfaces the last attempt's classification.
func (o *Orchestrator) classifyFinal(err error) *sync.ClassifiedError {
	var fin *resilience.FinalError
	if errors.As(err, &fin) {
		return fin.Classified
	}
	return sync.Classify(err)
}

// checkIdempotency returns the recorded replay outcome when the job's key was
// already consumed. The adapter is never invoked for a replay.
func (o *Orchestrator) checkIdempotency(ctx context.Context, job *sync.SyncJob) (*sync.SyncResult, bool) {
	if o.idempotency == nil || job.IdempotencyKey == "" {
		return nil, false
	}
	processed, err := o.idempotency.IsProcessed(ctx, job.IdempotencyKey)
	if err != nil {
		// the store being down must not block syncs; duplicates are tolerated
		o.logger.Warn("idempotency check failed, proceeding without deduplication",
			zap.String("idempotency_key", job.IdempotencyKey),
			zap.Error(err),
		)
		return nil, false
	}
	if !processed {
		return nil, false
	}

	result := sync.NewSuccessResult(job.Platform, job.ChannelID, "", "")
	result.Warnings = append(result.Warnings,
		fmt.Sprintf("idempotent replay: key %s already consumed, adapter not invoked", job.IdempotencyKey))
	o.logger.Info("duplicate sync request ignored",
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("idempotency_key", job.IdempotencyKey),
	)
	return result, true
}

// markIdempotent consumes the job's idempotency key after a successful sync
func (o *Orchestrator) markIdempotent(ctx context.Context, job *sync.SyncJob) {
	if o.idempotency == nil || job.IdempotencyKey == "" {
		return
	}
	if _, err := o.idempotency.MarkProcessed(ctx, job.IdempotencyKey, o.cfg.IdempotencyTTL); err != nil {
		o.logger.Warn("failed to mark idempotency key",
			zap.String("idempotency_key", job.IdempotencyKey),
			zap.Error(err),
		)
	}
}

// ---------------------------------------------------------------------------
// Failure handling
// ---------------------------------------------------------------------------

// failFast produces the result for a request rejected before the pipeline.
// No dead-letter entry is written: the job never entered the pipeline, so
// there is nothing to replay.
func (o *Orchestrator) failFast(ctx context.Context, tenantID uuid.UUID, channelID string, platform sync.PlatformCode, op sync.OperationType, err error) (*sync.SyncResult, error) {
	classified := sync.Classify(err)
	result := sync.NewFailureResult(platform, channelID, "", classified)
	result.Recommendations = recommendationsFor(classified)

	o.logger.Warn("sync request rejected by fail-fast validation",
		zap.String("tenant_id", tenantID.String()),
		zap.String("platform", platform.String()),
		zap.String("operation", op.String()),
		zap.Error(err),
	)

	record := &sync.SyncMetricsRecord{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Platform:    platform,
		ChannelID:   channelID,
		Operation:   op,
		Success:     false,
		FailureType: classified.Type,
		RecordedAt:  time.Now(),
	}
	o.saveMetrics(ctx, record)
	o.recordBusinessMetrics(ctx, tenantID, platform, op, false, classified.Type, 0, 0)

	return result, classified
}

// finalizeFailure handles a job that failed permanently inside the pipeline:
// dead-letter enqueue first (durable before reporting), then metrics, then
// the failure result.
func (o *Orchestrator) finalizeFailure(ctx context.Context, job *sync.SyncJob, classified *sync.ClassifiedError, stats *pipelineStats, duration time.Duration) (*sync.SyncResult, error) {
	if stats == nil {
		stats = &pipelineStats{}
	}

	result := sync.NewFailureResult(job.Platform, job.ChannelID, "", classified)
	result.Metrics.Duration = duration
	result.Metrics.RetryAttempts = stats.retryAttempts
	result.Metrics.APICalls = stats.apiCalls
	result.Metrics.DataSize = stats.dataSize
	result.Recommendations = recommendationsFor(classified)

	if o.deadLetters != nil {
		if err := o.deadLetters.Enqueue(ctx, job, classified.Type, classified.Error()); err != nil {
			o.logger.Error("dead-letter enqueue failed, manual replay required",
				zap.String("job_id", job.ID.String()),
				zap.String("tenant_id", job.TenantID.String()),
				zap.Error(err),
			)
			result.Warnings = append(result.Warnings,
				"dead-letter enqueue failed: the job was not durably recorded, manual replay required")
		} else {
			result.Recommendations = append(result.Recommendations,
				"Job preserved in the dead letter queue for inspection and replay")
		}
	}

	o.annotateCalendar(ctx, job.TenantID, result)
	o.recordMetrics(ctx, job, result, classified.Type)

	o.logger.Error("sync operation failed permanently",
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("platform", job.Platform.String()),
		zap.String("operation", job.Operation.String()),
		zap.String("failure_type", classified.Type.String()),
		zap.Int("retry_attempts", stats.retryAttempts),
	)

	return result, classified
}

// recommendationsFor maps a final classification to operator guidance
func recommendationsFor(classified *sync.ClassifiedError) []string {
	switch classified.Type {
	case sync.FailureRateLimit:
		wait := classified.RetryAfter
		if wait <= 0 {
			wait = time.Minute
		}
		return []string{fmt.Sprintf("Wait %dms before retrying due to rate limit", wait.Milliseconds())}
	case sync.FailureAuth:
		return []string{"Escalate to admin for authentication issues"}
	case sync.FailureNetworkTimeout:
		return []string{"Check platform availability and network connectivity before retrying"}
	case sync.FailureBusinessLogic:
		return []string{"Review the request data: the platform rejected the operation on business grounds"}
	case sync.FailureCircuitOpen:
		return []string{"Calls to this platform are suspended by the circuit breaker, retry after the cool-down"}
	case sync.FailureServerError:
		return []string{"Platform reported a server error, replay the job once the platform recovers"}
	case sync.FailureValidation:
		return []string{"Correct the request payload and resubmit"}
	case sync.FailureUnsupportedPlatform:
		return []string{"Verify the channel configuration: the target platform is not supported"}
	default:
		return []string{"Inspect the dead letter entry for failure details"}
	}
}

// ---------------------------------------------------------------------------
// Annotations and metrics
// ---------------------------------------------------------------------------

// annotateCalendar adds Indonesian business-context notes to a result. The
// calendar is consulted read-only and never fails the sync.
func (o *Orchestrator) annotateCalendar(ctx context.Context, tenantID uuid.UUID, result *sync.SyncResult) {
	if o.calendar == nil {
		return
	}
	now := time.Now()

	if holiday, err := o.calendar.PublicHoliday(ctx, tenantID, now); err == nil && holiday != nil {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("public holiday (%s): seller responses and logistics will be delayed", holiday.Name))
	}
	if open, err := o.calendar.IsBusinessHours(ctx, tenantID, now); err == nil && !open {
		result.Warnings = append(result.Warnings,
			"outside business hours (WIB): seller confirmation may be delayed")
	}
	if ramadan, err := o.calendar.IsRamadanPeriod(ctx, tenantID, now); err == nil && ramadan {
		result.Recommendations = append(result.Recommendations,
			"Ramadan period: expect shifted seller hours and slower platform processing")
	}
}

// recordMetrics writes the per-operation metrics row and the telemetry
// counters. Recording never fails the operation.
func (o *Orchestrator) recordMetrics(ctx context.Context, job *sync.SyncJob, result *sync.SyncResult, failureType sync.FailureType) {
	key := resilience.CircuitKey{TenantID: job.TenantID, Platform: job.Platform, Operation: job.Operation}
	record := &sync.SyncMetricsRecord{
		ID:            uuid.New(),
		TenantID:      job.TenantID,
		Platform:      job.Platform,
		ChannelID:     job.ChannelID,
		Operation:     job.Operation,
		JobID:         job.ID,
		Success:       result.Success,
		FailureType:   failureType,
		RetryAttempts: result.Metrics.RetryAttempts,
		APICalls:      result.Metrics.APICalls,
		DataSize:      result.Metrics.DataSize,
		CircuitState:  o.breaker.State(key).String(),
		Duration:      result.Metrics.Duration,
		RecordedAt:    time.Now(),
	}
	o.saveMetrics(ctx, record)
	o.recordBusinessMetrics(ctx, job.TenantID, job.Platform, job.Operation,
		result.Success, failureType, result.Metrics.RetryAttempts, result.Metrics.Duration)
}

func (o *Orchestrator) saveMetrics(ctx context.Context, record *sync.SyncMetricsRecord) {
	if o.metricsRepo == nil {
		return
	}
	if err := o.metricsRepo.Save(ctx, record); err != nil {
		o.logger.Warn("failed to persist sync metrics record",
			zap.String("job_id", record.JobID.String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) recordBusinessMetrics(ctx context.Context, tenantID uuid.UUID, platform sync.PlatformCode, op sync.OperationType, success bool, failureType sync.FailureType, retries int, duration time.Duration) {
	if o.businessMetrics == nil {
		return
	}
	o.businessMetrics.RecordSyncOperation(ctx, tenantID, platform.String(), op.String(), success, failureType.String(), duration)
	o.businessMetrics.RecordRetries(ctx, tenantID, platform.String(), op.String(), retries)
}
