package handler

import (
	"errors"
	"time"

	conflictapp "github.com/channelsync/backend/internal/application/conflict"
	"github.com/channelsync/backend/internal/domain/conflict"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConflictHandler handles cross-channel conflict API endpoints
type ConflictHandler struct {
	BaseHandler
	service *conflictapp.Service
}

// NewConflictHandler creates a new ConflictHandler
func NewConflictHandler(service *conflictapp.Service) *ConflictHandler {
	return &ConflictHandler{
		service: service,
	}
}

// ConflictListFilter represents conflict list query parameters
// @Description Conflict list filter
type ConflictListFilter struct {
	Type      string `form:"type" binding:"omitempty,oneof=INVENTORY_MISMATCH PRICE_CONFLICT STATUS_CONFLICT DATA_INCONSISTENCY"`
	Severity  string `form:"severity" binding:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Status    string `form:"status" binding:"omitempty,oneof=DETECTED ANALYZING RESOLVING RESOLVED ESCALATED"`
	EntityKey string `form:"entity_key"`
	OpenOnly  bool   `form:"open_only"`
	Since     string `form:"since" binding:"omitempty"`
	Until     string `form:"until" binding:"omitempty"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// ResolveConflictRequest represents a manual resolution request
// @Description Manual conflict resolution
type ResolveConflictRequest struct {
	Note string `json:"note" binding:"required,max=2000" example:"Adjusted Shopee reservation after stock recount"`
}

// ReservationInput represents one channel's reserved quantity in a snapshot
type ReservationInput struct {
	ChannelID   string     `json:"channel_id" binding:"required" example:"shopee-main"`
	Platform    string     `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA"`
	Quantity    float64    `json:"quantity" binding:"gte=0" example:"12"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
	Priority    int        `json:"priority" example:"1"`
}

// ChannelPriceInput represents one channel's listed price in a snapshot
type ChannelPriceInput struct {
	ChannelID  string     `json:"channel_id" binding:"required" example:"tokopedia-main"`
	Platform   string     `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA"`
	Price      float64    `json:"price" binding:"required,gt=0" example:"150000"`
	ObservedAt *time.Time `json:"observed_at,omitempty"`
}

// StatusObservationInput represents the internal ledger's order status
type StatusObservationInput struct {
	Status    string     `json:"status" binding:"required,oneof=PENDING PAID PACKED SHIPPED DELIVERED COMPLETED CANCELLED RETURNED"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// StatusReportInput represents one platform's reported order status
type StatusReportInput struct {
	PlatformOrderID string     `json:"platform_order_id" binding:"required" example:"INV/20240101/MPL/1234"`
	Platform        string     `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA"`
	ChannelID       string     `json:"channel_id" binding:"required" example:"shopee-main"`
	Status          string     `json:"status" binding:"required,oneof=PENDING PAID PACKED SHIPPED DELIVERED COMPLETED CANCELLED RETURNED"`
	ReportedAt      *time.Time `json:"reported_at,omitempty"`
}

// EvaluateSnapshotRequest represents a per-channel state snapshot to check
// for cross-channel divergence
// @Description Entity snapshot for conflict detection
type EvaluateSnapshotRequest struct {
	EntityKey      string                  `json:"entity_key" binding:"required" example:"SKU-001@WH-JKT"`
	OnHand         *float64                `json:"on_hand,omitempty" example:"20"`
	Reservations   []ReservationInput      `json:"reservations,omitempty" binding:"omitempty,dive"`
	Prices         []ChannelPriceInput     `json:"prices,omitempty" binding:"omitempty,dive"`
	InternalStatus *StatusObservationInput `json:"internal_status,omitempty"`
	StatusReports  []StatusReportInput     `json:"status_reports,omitempty" binding:"omitempty,dive"`
}

// ConflictResponse represents a cross-channel conflict in API responses
// @Description Cross-channel conflict
type ConflictResponse struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	Type               string     `json:"type"`
	Severity           string     `json:"severity"`
	EntityKey          string     `json:"entity_key"`
	AffectedChannels   []string   `json:"affected_channels"`
	AffectedPlatforms  []string   `json:"affected_platforms"`
	DetectedAt         time.Time  `json:"detected_at"`
	Status             string     `json:"status"`
	AutoResolvable     bool       `json:"auto_resolvable"`
	ResolutionDeadline time.Time  `json:"resolution_deadline"`
	Detail             string     `json:"detail"`
	ResolutionNote     string     `json:"resolution_note,omitempty"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toConflictResponse(c *conflict.CrossChannelConflict) ConflictResponse {
	platforms := make([]string, 0, len(c.AffectedPlatforms))
	for _, p := range c.AffectedPlatforms {
		platforms = append(platforms, p.String())
	}
	return ConflictResponse{
		ID:                 c.ID.String(),
		TenantID:           c.TenantID.String(),
		Type:               string(c.Type),
		Severity:           string(c.Severity),
		EntityKey:          c.EntityKey,
		AffectedChannels:   c.AffectedChannels,
		AffectedPlatforms:  platforms,
		DetectedAt:         c.DetectedAt,
		Status:             string(c.Status),
		AutoResolvable:     c.AutoResolvable,
		ResolutionDeadline: c.ResolutionDeadline,
		Detail:             c.Detail,
		ResolutionNote:     c.ResolutionNote,
		ResolvedAt:         c.ResolvedAt,
		UpdatedAt:          c.UpdatedAt,
	}
}

func toConflictResponses(conflicts []*conflict.CrossChannelConflict) []ConflictResponse {
	responses := make([]ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		responses = append(responses, toConflictResponse(c))
	}
	return responses
}

// toFilter converts query parameters to the domain filter, scoped to a tenant
func (f *ConflictListFilter) toFilter(tenantID uuid.UUID) (conflict.Filter, error) {
	filter := conflict.Filter{
		TenantID:  &tenantID,
		EntityKey: f.EntityKey,
		OpenOnly:  f.OpenOnly,
		Limit:     f.Limit,
	}
	if f.Type != "" {
		t := conflict.Type(f.Type)
		filter.Type = &t
	}
	if f.Severity != "" {
		severity := conflict.Severity(f.Severity)
		filter.Severity = &severity
	}
	if f.Status != "" {
		status := conflict.Status(f.Status)
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

// toSnapshot converts the request into a domain snapshot
func (r *EvaluateSnapshotRequest) toSnapshot(tenantID uuid.UUID) *conflict.Snapshot {
	now := time.Now()

	snap := &conflict.Snapshot{
		TenantID:  tenantID,
		EntityKey: r.EntityKey,
	}
	if r.OnHand != nil {
		snap.OnHand = toDecimalPtr(*r.OnHand)
	}
	for _, res := range r.Reservations {
		requestedAt := now
		if res.RequestedAt != nil {
			requestedAt = *res.RequestedAt
		}
		snap.Reservations = append(snap.Reservations, conflict.ChannelReservation{
			ChannelID:   res.ChannelID,
			Platform:    sync.PlatformCode(res.Platform),
			Quantity:    toDecimal(res.Quantity),
			RequestedAt: requestedAt,
			Priority:    res.Priority,
		})
	}
	for _, price := range r.Prices {
		observedAt := now
		if price.ObservedAt != nil {
			observedAt = *price.ObservedAt
		}
		snap.Prices = append(snap.Prices, conflict.ChannelPrice{
			ChannelID:  price.ChannelID,
			Platform:   sync.PlatformCode(price.Platform),
			Price:      toDecimal(price.Price),
			ObservedAt: observedAt,
		})
	}
	if r.InternalStatus != nil {
		updatedAt := now
		if r.InternalStatus.UpdatedAt != nil {
			updatedAt = *r.InternalStatus.UpdatedAt
		}
		snap.InternalStatus = &conflict.StatusObservation{
			Status:    sync.OrderStatus(r.InternalStatus.Status),
			UpdatedAt: updatedAt,
		}
	}
	for _, report := range r.StatusReports {
		reportedAt := now
		if report.ReportedAt != nil {
			reportedAt = *report.ReportedAt
		}
		snap.StatusReports = append(snap.StatusReports, sync.OrderStatusReport{
			PlatformOrderID: report.PlatformOrderID,
			Platform:        sync.PlatformCode(report.Platform),
			ChannelID:       report.ChannelID,
			Status:          sync.OrderStatus(report.Status),
			ReportedAt:      reportedAt,
		})
	}
	return snap
}

// List godoc
// @Summary      List cross-channel conflicts
// @Description  Retrieve conflicts matching the filter, scoped to the tenant
// @Tags         conflicts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        type query string false "Conflict type"
// @Param        severity query string false "Severity grade"
// @Param        status query string false "Lifecycle status"
// @Param        entity_key query string false "Disputed entity key"
// @Param        open_only query bool false "Only non-terminal conflicts"
// @Param        since query string false "Detected after (RFC 3339)"
// @Param        until query string false "Detected before (RFC 3339)"
// @Param        limit query int false "Maximum conflicts to return"
// @Success      200 {object} dto.Response{data=[]ConflictResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var query ConflictListFilter
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter(tenantID)
	if err != nil {
		h.BadRequest(c, "Timestamps must be RFC 3339")
		return
	}

	conflicts, err := h.service.ListConflicts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConflictResponses(conflicts))
}

// Get godoc
// @Summary      Get a cross-channel conflict
// @Tags         conflicts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Conflict ID" format(uuid)
// @Success      200 {object} dto.Response{data=ConflictResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	conflictID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conflict ID format")
		return
	}

	found, err := h.service.GetConflict(c.Request.Context(), conflictID)
	if err != nil {
		if errors.Is(err, conflict.ErrConflictNotFound) {
			h.NotFound(c, "Conflict not found")
			return
		}
		h.HandleError(c, err)
		return
	}
	if found.TenantID != tenantID {
		h.NotFound(c, "Conflict not found")
		return
	}

	h.Success(c, toConflictResponse(found))
}

// Resolve godoc
// @Summary      Manually resolve a conflict
// @Description  Marks the conflict resolved with an operator note
// @Tags         conflicts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        id path string true "Conflict ID" format(uuid)
// @Param        request body ResolveConflictRequest true "Resolution note"
// @Success      200 {object} dto.Response{data=ConflictResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	conflictID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conflict ID format")
		return
	}

	var req ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Scope to the tenant before mutating
	found, err := h.service.GetConflict(c.Request.Context(), conflictID)
	if err != nil {
		if errors.Is(err, conflict.ErrConflictNotFound) {
			h.NotFound(c, "Conflict not found")
			return
		}
		h.HandleError(c, err)
		return
	}
	if found.TenantID != tenantID {
		h.NotFound(c, "Conflict not found")
		return
	}

	if err := h.service.ResolveManually(c.Request.Context(), conflictID, req.Note); err != nil {
		switch {
		case errors.Is(err, conflict.ErrConflictNotFound):
			h.NotFound(c, "Conflict not found")
		case errors.Is(err, conflict.ErrAlreadyTerminal):
			h.UnprocessableEntity(c, dto.ErrCodeInvalidState, err.Error())
		default:
			h.HandleError(c, err)
		}
		return
	}

	resolved, err := h.service.GetConflict(c.Request.Context(), conflictID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConflictResponse(resolved))
}

// EvaluateSnapshot godoc
// @Summary      Evaluate an entity snapshot
// @Description  Runs conflict detection over a per-channel state snapshot and persists any detected conflicts
// @Tags         conflicts
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body EvaluateSnapshotRequest true "Entity snapshot"
// @Success      200 {object} dto.Response{data=[]ConflictResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /conflicts/snapshots [post]
func (h *ConflictHandler) EvaluateSnapshot(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req EvaluateSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	conflicts, err := h.service.EvaluateSnapshot(c.Request.Context(), req.toSnapshot(tenantID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toConflictResponses(conflicts))
}

// EscalateOverdue godoc
// @Summary      Escalate overdue conflicts
// @Description  Escalates every open conflict whose resolution deadline has passed
// @Tags         conflicts
// @Produce      json
// @Success      200 {object} dto.Response{data=CountData}
// @Router       /conflicts/escalate-overdue [post]
func (h *ConflictHandler) EscalateOverdue(c *gin.Context) {
	escalated, err := h.service.EscalateOverdue(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CountData{Count: int64(escalated)})
}

// CountByStatus godoc
// @Summary      Count conflicts by status
// @Tags         conflicts
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Success      200 {object} dto.Response{data=map[string]int64}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /conflicts/stats/count [get]
func (h *ConflictHandler) CountByStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	counts, err := h.service.CountByStatus(c.Request.Context(), tenantID)
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
