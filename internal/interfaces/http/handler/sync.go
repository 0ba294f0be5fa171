package handler

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	syncapp "github.com/channelsync/backend/internal/application/sync"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/scheduler"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SyncHandler handles marketplace sync API endpoints
type SyncHandler struct {
	BaseHandler
	orchestrator *syncapp.Orchestrator
	pool         *scheduler.SyncWorkerPool
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *syncapp.Orchestrator) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
	}
}

// SetWorkerPool wires the background worker pool for asynchronous submission
func (h *SyncHandler) SetWorkerPool(pool *scheduler.SyncWorkerPool) {
	h.pool = pool
}

// OrderItemInput represents an order line in sync requests
// @Description Order line item
type OrderItemInput struct {
	SKU         string  `json:"sku" binding:"required,min=1,max=64" example:"SKU-001"`
	ProductName string  `json:"product_name" binding:"required,min=1,max=200" example:"Kopi Arabika 250g"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0" example:"2"`
	UnitPrice   float64 `json:"unit_price" binding:"required,gte=0" example:"75000"`
	Subtotal    float64 `json:"subtotal" binding:"gte=0" example:"150000"`
}

// SyncOrderRequest represents a request to push an order to a marketplace
// @Description Request body for a synchronous order sync
type SyncOrderRequest struct {
	ChannelID        string           `json:"channel_id" binding:"required,min=1,max=64" example:"channel-1"`
	Platform         string           `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA" example:"TOKOPEDIA"`
	OrderID          string           `json:"order_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440010"`
	OrderNumber      string           `json:"order_number" binding:"required,min=1,max=64" example:"SO-2026-00001"`
	Status           string           `json:"status" binding:"required" example:"PAID"`
	CustomerName     string           `json:"customer_name" binding:"required,min=1,max=200" example:"Budi Santoso"`
	CustomerPhone    string           `json:"customer_phone" example:"+62812345678"`
	ShippingAddress  string           `json:"shipping_address" example:"Jl. Sudirman No. 1"`
	ShippingProvince string           `json:"shipping_province" example:"DKI Jakarta"`
	ShippingCity     string           `json:"shipping_city" example:"Jakarta Selatan"`
	PostalCode       string           `json:"postal_code" example:"12190"`
	TotalAmount      float64          `json:"total_amount" example:"150000"`
	ShippingFee      float64          `json:"shipping_fee" example:"15000"`
	DiscountAmount   float64          `json:"discount_amount" example:"0"`
	Currency         string           `json:"currency" example:"IDR"`
	Items            []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	WarehouseID      string           `json:"warehouse_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440020"`
	RequestedAt      *time.Time       `json:"requested_at"`
}

// InventoryUpdateInput represents one stock level update
// @Description Inventory update line
type InventoryUpdateInput struct {
	SKU               string  `json:"sku" binding:"required,min=1,max=64" example:"SKU-001"`
	PlatformProductID string  `json:"platform_product_id" binding:"required,min=1,max=64" example:"TPD-991"`
	AvailableQuantity float64 `json:"available_quantity" example:"40"`
}

// PushInventoryRequest represents a request to publish stock levels
// @Description Request body for an inventory push
type PushInventoryRequest struct {
	ChannelID string                 `json:"channel_id" binding:"required,min=1,max=64" example:"channel-1"`
	Platform  string                 `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA" example:"SHOPEE"`
	Items     []InventoryUpdateInput `json:"items" binding:"required,min=1,dive"`
}

// PriceUpdateInput represents one selling price update
// @Description Price update line
type PriceUpdateInput struct {
	SKU               string  `json:"sku" binding:"required,min=1,max=64" example:"SKU-001"`
	PlatformProductID string  `json:"platform_product_id" binding:"required,min=1,max=64" example:"TPD-991"`
	Price             float64 `json:"price" binding:"required,gt=0" example:"75000"`
}

// PushPriceRequest represents a request to publish selling prices
// @Description Request body for a price push
type PushPriceRequest struct {
	ChannelID string             `json:"channel_id" binding:"required,min=1,max=64" example:"channel-1"`
	Platform  string             `json:"platform" binding:"required,oneof=TOKOPEDIA SHOPEE LAZADA" example:"LAZADA"`
	Items     []PriceUpdateInput `json:"items" binding:"required,min=1,dive"`
}

// OrderStatusReportResponse represents a platform's reported order status
// @Description Platform order status report
type OrderStatusReportResponse struct {
	PlatformOrderID string    `json:"platform_order_id" example:"TPD-ORDER-991"`
	Platform        string    `json:"platform" example:"TOKOPEDIA"`
	ChannelID       string    `json:"channel_id" example:"channel-1"`
	Status          string    `json:"status" example:"SHIPPED"`
	ReportedAt      time.Time `json:"reported_at"`
}

// SubmitJobResponse represents an accepted asynchronous sync job
// @Description Queued sync job acknowledgement
type SubmitJobResponse struct {
	JobID     string `json:"job_id" example:"550e8400-e29b-41d4-a716-446655440030"`
	Platform  string `json:"platform" example:"TOKOPEDIA"`
	Operation string `json:"operation" example:"ORDER_SYNC"`
	Queued    bool   `json:"queued" example:"true"`
}

// JobOutcomeResponse represents one processed background job
// @Description Background job outcome
type JobOutcomeResponse struct {
	JobID       string    `json:"job_id"`
	TenantID    string    `json:"tenant_id"`
	Platform    string    `json:"platform"`
	Operation   string    `json:"operation"`
	Success     bool      `json:"success"`
	FailureType string    `json:"failure_type,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// toNormalizedOrder converts the request body to the domain order
func (r *SyncOrderRequest) toNormalizedOrder() (*sync.NormalizedOrder, error) {
	orderID, err := uuid.Parse(r.OrderID)
	if err != nil {
		return nil, err
	}

	var warehouseID uuid.UUID
	if r.WarehouseID != "" {
		warehouseID, err = uuid.Parse(r.WarehouseID)
		if err != nil {
			return nil, err
		}
	}

	requestedAt := time.Now()
	if r.RequestedAt != nil {
		requestedAt = *r.RequestedAt
	}

	items := make([]sync.OrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		subtotal := toDecimal(item.Subtotal)
		if item.Subtotal == 0 {
			subtotal = toDecimal(item.Quantity).Mul(toDecimal(item.UnitPrice))
		}
		items = append(items, sync.OrderItem{
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    toDecimal(item.Quantity),
			UnitPrice:   toDecimal(item.UnitPrice),
			Subtotal:    subtotal,
		})
	}

	return &sync.NormalizedOrder{
		OrderID:          orderID,
		OrderNumber:      r.OrderNumber,
		Status:           sync.OrderStatus(r.Status),
		CustomerName:     r.CustomerName,
		CustomerPhone:    r.CustomerPhone,
		ShippingAddress:  r.ShippingAddress,
		ShippingProvince: r.ShippingProvince,
		ShippingCity:     r.ShippingCity,
		PostalCode:       r.PostalCode,
		TotalAmount:      toDecimal(r.TotalAmount),
		ShippingFee:      toDecimal(r.ShippingFee),
		DiscountAmount:   toDecimal(r.DiscountAmount),
		Currency:         r.Currency,
		Items:            items,
		WarehouseID:      warehouseID,
		RequestedAt:      requestedAt,
		UpdatedAt:        time.Now(),
	}, nil
}

// SyncOrder godoc
// @Summary      Sync an order to a marketplace
// @Description  Push a normalized order through the error-handling pipeline to the target platform
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body SyncOrderRequest true "Order sync request"
// @Success      200 {object} dto.Response{data=sync.SyncResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/orders [post]
func (h *SyncHandler) SyncOrder(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SyncOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := req.toNormalizedOrder()
	if err != nil {
		h.BadRequest(c, "Invalid order identifier format")
		return
	}

	result, err := h.orchestrator.PerformSync(c.Request.Context(), tenantID, req.ChannelID, sync.PlatformCode(req.Platform), order)
	if err != nil {
		h.handleSyncFailure(c, result, err)
		return
	}

	h.Success(c, result)
}

// PushInventory godoc
// @Summary      Push inventory levels to a marketplace
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body PushInventoryRequest true "Inventory push request"
// @Success      200 {object} dto.Response{data=sync.SyncResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/inventory [post]
func (h *SyncHandler) PushInventory(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req PushInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]sync.InventoryUpdate, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, sync.InventoryUpdate{
			SKU:               item.SKU,
			PlatformProductID: item.PlatformProductID,
			AvailableQuantity: toDecimal(item.AvailableQuantity),
		})
	}

	result, err := h.orchestrator.PushInventory(c.Request.Context(), tenantID, req.ChannelID, sync.PlatformCode(req.Platform), items)
	if err != nil {
		h.handleSyncFailure(c, result, err)
		return
	}

	h.Success(c, result)
}

// PushPrice godoc
// @Summary      Push selling prices to a marketplace
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body PushPriceRequest true "Price push request"
// @Success      200 {object} dto.Response{data=sync.SyncResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/prices [post]
func (h *SyncHandler) PushPrice(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req PushPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]sync.PriceUpdate, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, sync.PriceUpdate{
			SKU:               item.SKU,
			PlatformProductID: item.PlatformProductID,
			Price:             toDecimal(item.Price),
		})
	}

	result, err := h.orchestrator.PushPrice(c.Request.Context(), tenantID, req.ChannelID, sync.PlatformCode(req.Platform), items)
	if err != nil {
		h.handleSyncFailure(c, result, err)
		return
	}

	h.Success(c, result)
}

// PullOrderStatus godoc
// @Summary      Pull an order's status from a marketplace
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        platform_order_id path string true "Platform order ID"
// @Param        channel_id query string true "Sales channel ID"
// @Param        platform query string true "Platform code" Enums(TOKOPEDIA, SHOPEE, LAZADA)
// @Success      200 {object} dto.Response{data=OrderStatusReportResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/orders/{platform_order_id}/status [get]
func (h *SyncHandler) PullOrderStatus(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	platformOrderID := c.Param("platform_order_id")
	channelID := c.Query("channel_id")
	platform := sync.PlatformCode(c.Query("platform"))
	if platformOrderID == "" || channelID == "" {
		h.BadRequest(c, "platform_order_id and channel_id are required")
		return
	}
	if !platform.IsValid() {
		h.ErrorWithCode(c, dto.ErrCodeUnsupportedPlatform, "Unknown platform code")
		return
	}

	report, result, err := h.orchestrator.PullOrderStatus(c.Request.Context(), tenantID, channelID, platform, platformOrderID)
	if err != nil {
		h.handleSyncFailure(c, result, err)
		return
	}

	h.Success(c, OrderStatusReportResponse{
		PlatformOrderID: report.PlatformOrderID,
		Platform:        report.Platform.String(),
		ChannelID:       report.ChannelID,
		Status:          report.Status.String(),
		ReportedAt:      report.ReportedAt,
	})
}

// SubmitJob godoc
// @Summary      Queue an order sync for background execution
// @Description  Accepts the order and hands it to the worker pool; failures are dead-lettered by the pipeline
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        request body SyncOrderRequest true "Order sync request"
// @Success      202 {object} dto.Response{data=SubmitJobResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/jobs [post]
func (h *SyncHandler) SubmitJob(c *gin.Context) {
	if h.pool == nil {
		h.ServiceUnavailable(c, dto.ErrCodeQueueFull, "Background sync is not enabled")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req SyncOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	order, err := req.toNormalizedOrder()
	if err != nil {
		h.BadRequest(c, "Invalid order identifier format")
		return
	}
	if err := order.Validate(); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeValidation, err.Error())
		return
	}

	payload, err := json.Marshal(order)
	if err != nil {
		h.InternalError(c, "Failed to serialize order payload")
		return
	}

	job := sync.NewSyncJob(tenantID, req.ChannelID, sync.PlatformCode(req.Platform), sync.OperationOrderSync, payload, "")
	job.OriginatedAt = order.RequestedAt

	if err := h.pool.Submit(job); err != nil {
		if errors.Is(err, scheduler.ErrJobQueueFull) {
			h.ServiceUnavailable(c, dto.ErrCodeQueueFull, "Sync job queue is full, try again later")
			return
		}
		h.ServiceUnavailable(c, dto.ErrCodeQueueFull, "Background sync is not running")
		return
	}

	h.Accepted(c, SubmitJobResponse{
		JobID:     job.ID.String(),
		Platform:  job.Platform.String(),
		Operation: job.Operation.String(),
		Queued:    true,
	})
}

// JobHistory godoc
// @Summary      List recent background job outcomes for the tenant
// @Tags         sync
// @Produce      json
// @Param        X-Tenant-ID header string false "Tenant ID (optional for dev)"
// @Param        limit query int false "Maximum outcomes to return" default(20)
// @Success      200 {object} dto.Response{data=[]JobOutcomeResponse}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/jobs/history [get]
func (h *SyncHandler) JobHistory(c *gin.Context) {
	if h.pool == nil {
		h.ServiceUnavailable(c, dto.ErrCodeQueueFull, "Background sync is not enabled")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	outcomes := h.pool.HistoryByTenant(tenantID, limit)
	responses := make([]JobOutcomeResponse, 0, len(outcomes))
	for _, outcome := range outcomes {
		responses = append(responses, JobOutcomeResponse{
			JobID:       outcome.JobID.String(),
			TenantID:    outcome.TenantID.String(),
			Platform:    outcome.Platform.String(),
			Operation:   outcome.Operation.String(),
			Success:     outcome.Success,
			FailureType: string(outcome.FailureType),
			Error:       outcome.Error,
			DurationMS:  outcome.Duration.Milliseconds(),
			CompletedAt: outcome.CompletedAt,
		})
	}

	h.Success(c, responses)
}

// handleSyncFailure maps pipeline failures to HTTP responses. The failed
// SyncResult is attached so callers see warnings and recommendations.
func (h *SyncHandler) handleSyncFailure(c *gin.Context, result *sync.SyncResult, err error) {
	requestID := getRequestID(c)

	code := dto.ErrCodeSyncFailed
	switch {
	case errors.Is(err, sync.ErrUnsupportedPlatform):
		code = dto.ErrCodeUnsupportedPlatform
	case errors.Is(err, sync.ErrOrderInvalid), errors.Is(err, sync.ErrOrderNegativeAmount), errors.Is(err, sync.ErrInventoryNegative):
		code = dto.ErrCodeValidation
	default:
		classified := sync.Classify(err)
		switch classified.Type {
		case sync.FailureValidation:
			code = dto.ErrCodeValidation
		case sync.FailureCircuitOpen:
			code = dto.ErrCodeCircuitOpen
		case sync.FailureRateLimit:
			code = dto.ErrCodeRateLimited
		case sync.FailureUnsupportedPlatform:
			code = dto.ErrCodeUnsupportedPlatform
		}
	}

	resp := dto.NewErrorResponseWithRequestID(code, err.Error(), requestID)
	if result != nil {
		resp.Data = result
	}
	c.JSON(dto.GetHTTPStatus(code), resp)
}
