package handler

import (
	"errors"
	"strconv"
	"time"

	dlqapp "github.com/channelsync/backend/internal/application/dlq"
	"github.com/channelsync/backend/internal/domain/dlq"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DLQHandler handles dead-letter queue API endpoints
type DLQHandler struct {
	BaseHandler
	manager *dlqapp.Manager
}

// NewDLQHandler creates a new DLQHandler
func NewDLQHandler(manager *dlqapp.Manager) *DLQHandler {
	return &DLQHandler{
		manager: manager,
	}
}

// DLQListFilter represents dead-letter list query parameters
// @Description Dead-letter list filter
type DLQListFilter struct {
	FailureType  string `form:"failure_type" binding:"omitempty,oneof=RATE_LIMIT AUTH_FAILURE NETWORK_TIMEOUT BUSINESS_LOGIC SERVER_ERROR CIRCUIT_OPEN VALIDATION UNSUPPORTED_PLATFORM UNKNOWN"`
	Platform     string `form:"platform" binding:"omitempty,oneof=TOKOPEDIA SHOPEE LAZADA"`
	Operation    string `form:"operation" binding:"omitempty,oneof=ORDER_SYNC INVENTORY_PUSH PRICE_PUSH STATUS_PULL"`
	Status       string `form:"status" binding:"omitempty,oneof=FAILED RECOVERING RECOVERED ARCHIVED"`
	OnlyCritical bool   `form:"only_critical"`
	Since        string `form:"since" binding:"omitempty"`
	Until        string `form:"until" binding:"omitempty"`
	Limit        int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// DeadLetterJobResponse represents a dead-letter entry in API responses
// @Description Dead-letter job
type DeadLetterJobResponse struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	OriginalJobID string     `json:"original_job_id"`
	OriginalQueue string     `json:"original_queue"`
	Platform      string     `json:"platform"`
	ChannelID     string     `json:"channel_id"`
	Operation     string     `json:"operation"`
	FailureType   string     `json:"failure_type"`
	FailureReason string     `json:"failure_reason"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	Status        string     `json:"status"`
	Priority      string     `json:"priority"`
	IsCritical    bool       `json:"is_critical"`
	ArchiveKey    string     `json:"archive_key,omitempty"`
	Payload       string     `json:"payload,omitempty"`
	OriginatedAt  time.Time  `json:"originated_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	RecoveredAt   *time.Time `json:"recovered_at,omitempty"`
}

// PatternSummaryResponse represents one failure pattern bucket
// @Description Failure pattern summary
type PatternSummaryResponse struct {
	FailureType   string    `json:"failure_type"`
	Platform      string    `json:"platform"`
	Count         int64     `json:"count"`
	CriticalCount int64     `json:"critical_count"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

func toDeadLetterJobResponse(job *dlq.DeadLetterJob, includePayload bool) DeadLetterJobResponse {
	resp := DeadLetterJobResponse{
		ID:            job.ID.String(),
		TenantID:      job.TenantID.String(),
		OriginalJobID: job.OriginalJobID.String(),
		OriginalQueue: job.OriginalQueue,
		Platform:      job.Platform.String(),
		ChannelID:     job.ChannelID,
		Operation:     job.Operation.String(),
		FailureType:   string(job.FailureType),
		FailureReason: job.FailureReason,
		RetryCount:    job.RetryCount,
		MaxRetries:    job.MaxRetries,
		Status:        string(job.Status),
		Priority:      string(job.Priority),
		IsCritical:    job.IsCritical,
		ArchiveKey:    job.ArchiveKey,
		OriginatedAt:  job.OriginatedAt,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		RecoveredAt:   job.RecoveredAt,
	}
	if includePayload {
		resp.Payload = string(job.OriginalPayload)
	}
	return resp
}

// toPatternFilter converts query parameters to the domain filter
func (f *DLQListFilter) toPatternFilter() (dlq.PatternFilter, error) {
	filter := dlq.PatternFilter{
		OnlyCritical: f.OnlyCritical,
		Limit:        f.Limit,
	}
	if f.FailureType != "" {
		ft := sync.FailureType(f.FailureType)
		filter.FailureType = &ft
	}
	if f.Platform != "" {
		platform := sync.PlatformCode(f.Platform)
		filter.Platform = &platform
	}
	if f.Operation != "" {
		op := sync.OperationType(f.Operation)
		filter.Operation = &op
	}
	if f.Status != "" {
		status := dlq.Status(f.Status)
		filter.Status = &status
	}
	if f.Since != "" {
		since, err := time.Parse(time.RFC3339, f.Since)
		if err != nil {
			return filter, err
		}
		filter.Since = &since
	}
	if f.Until != "" {
		until, err := time.Parse(time.RFC3339, f.Until)
		if err != nil {
			return filter, err
		}
		filter.Until = &until
	}
	return filter, nil
}

// List godoc
// @Summary      List dead-letter jobs
// @Description  Retrieve dead-letter jobs matching the pattern filter
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        failure_type query string false "Failure classification"
// @Param        platform query string false "Platform code"
// @Param        operation query string false "Operation type"
// @Param        status query string false "Lifecycle status"
// @Param        only_critical query bool false "Only critical jobs"
// @Param        since query string false "Dead-lettered after (RFC 3339)"
// @Param        until query string false "Dead-lettered before (RFC 3339)"
// @Param        limit query int false "Maximum jobs to return"
// @Success      200 {object} dto.Response{data=[]DeadLetterJobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/jobs [get]
func (h *DLQHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query DLQListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toPatternFilter()
	if err != nil {
		h.BadRequest(c, "Timestamps must be RFC 3339")
		return
	}

	jobs, err := h.manager.ListByPattern(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]DeadLetterJobResponse, 0, len(jobs))
	for i := range jobs {
		responses = append(responses, toDeadLetterJobResponse(&jobs[i], false))
	}

	h.Success(c, responses)
}

// Get godoc
// @Summary      Get a dead-letter job
// @Description  Retrieve one dead-letter job including its preserved payload
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Dead-letter job ID" format(uuid)
// @Success      200 {object} dto.Response{data=DeadLetterJobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/jobs/{id} [get]
func (h *DLQHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	job, err := h.manager.GetJob(c.Request.Context(), tenantID, jobID)
	if err != nil {
		if errors.Is(err, dlq.ErrJobNotFound) {
			h.NotFound(c, "Dead-letter job not found")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDeadLetterJobResponse(job, true))
}

// Requeue godoc
// @Summary      Requeue a dead-letter job
// @Description  Replays the preserved payload through the sync pipeline and reports the outcome
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Dead-letter job ID" format(uuid)
// @Success      200 {object} dto.Response{data=sync.SyncResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/jobs/{id}/requeue [post]
func (h *DLQHandler) Requeue(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	result, err := h.manager.Requeue(c.Request.Context(), tenantID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, dlq.ErrJobNotFound):
			h.NotFound(c, "Dead-letter job not found")
		case errors.Is(err, dlq.ErrJobNotRecoverable), errors.Is(err, dlq.ErrInvalidStatusChange):
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
		default:
			// replay ran and failed; surface the failure with the result
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeSyncFailed, err.Error(), getRequestID(c))
			if result != nil {
				resp.Data = result
			}
			c.JSON(dto.GetHTTPStatus(dto.ErrCodeSyncFailed), resp)
		}
		return
	}

	h.Success(c, result)
}

// Archive godoc
// @Summary      Archive a dead-letter job
// @Description  Closes the job without replay; the payload snapshot is written to object storage when configured
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Dead-letter job ID" format(uuid)
// @Success      200 {object} dto.Response{data=DeadLetterJobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/jobs/{id}/archive [post]
func (h *DLQHandler) Archive(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job ID format")
		return
	}

	job, err := h.manager.Archive(c.Request.Context(), tenantID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, dlq.ErrJobNotFound):
			h.NotFound(c, "Dead-letter job not found")
		case errors.Is(err, dlq.ErrJobAlreadyArchived), errors.Is(err, dlq.ErrInvalidStatusChange):
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, toDeadLetterJobResponse(job, false))
}

// Patterns godoc
// @Summary      Analyze dead-letter failure patterns
// @Description  Groups recent dead-letter jobs by failure type and platform
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        window_hours query int false "Analysis window in hours" default(24)
// @Success      200 {object} dto.Response{data=[]PatternSummaryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/patterns [get]
func (h *DLQHandler) Patterns(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	window := time.Duration(0)
	if raw := c.Query("window_hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			h.BadRequest(c, "window_hours must be a positive integer")
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	summaries, err := h.manager.AnalyzePatterns(c.Request.Context(), tenantID, window)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]PatternSummaryResponse, 0, len(summaries))
	for _, summary := range summaries {
		responses = append(responses, PatternSummaryResponse{
			FailureType:   string(summary.FailureType),
			Platform:      summary.Platform.String(),
			Count:         summary.Count,
			CriticalCount: summary.CriticalCount,
			FirstSeen:     summary.FirstSeen,
			LastSeen:      summary.LastSeen,
		})
	}

	h.Success(c, responses)
}

// CountByStatus godoc
// @Summary      Count dead-letter jobs by status
// @Tags         dlq
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} dto.Response{data=map[string]int64}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /dlq/stats/count [get]
func (h *DLQHandler) CountByStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	counts, err := h.manager.CountByStatus(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make(map[string]int64, len(counts))
	for status, count := range counts {
		response[string(status)] = count
	}

	h.Success(c, response)
}
