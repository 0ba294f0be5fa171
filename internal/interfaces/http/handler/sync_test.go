package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncapp "github.com/channelsync/backend/internal/application/sync"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/marketplace"
	"github.com/channelsync/backend/internal/infrastructure/resilience"
	"github.com/channelsync/backend/internal/interfaces/http/dto"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

// scriptedPlatform fails according to a per-call error script and succeeds
// once the script is consumed
type scriptedPlatform struct {
	code  sync.PlatformCode
	calls int
	errs  []error
}

func (p *scriptedPlatform) PlatformCode() sync.PlatformCode { return p.code }

func (p *scriptedPlatform) IsEnabled(ctx context.Context, tenantID uuid.UUID, channelID string) (bool, error) {
	return true, nil
}

func (p *scriptedPlatform) step() error {
	p.calls++
	if p.calls <= len(p.errs) {
		return p.errs[p.calls-1]
	}
	return nil
}

func (p *scriptedPlatform) SyncOrder(ctx context.Context, tenantID uuid.UUID, channelID string, order *sync.NormalizedOrder) (*sync.SyncResult, error) {
	if err := p.step(); err != nil {
		return nil, err
	}
	return sync.NewSuccessResult(p.code, channelID, order.OrderID.String(), fmt.Sprintf("PLT-%d", p.calls)), nil
}

func (p *scriptedPlatform) GetOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID, platformOrderID string) (*sync.OrderStatusReport, error) {
	if err := p.step(); err != nil {
		return nil, err
	}
	return &sync.OrderStatusReport{
		PlatformOrderID: platformOrderID,
		Platform:        p.code,
		ChannelID:       channelID,
		Status:          sync.OrderStatusShipped,
		ReportedAt:      time.Now(),
	}, nil
}

func (p *scriptedPlatform) PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.InventoryUpdate) (*sync.SyncResult, error) {
	if err := p.step(); err != nil {
		return nil, err
	}
	return sync.NewSuccessResult(p.code, channelID, "", ""), nil
}

func (p *scriptedPlatform) PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.PriceUpdate) (*sync.SyncResult, error) {
	if err := p.step(); err != nil {
		return nil, err
	}
	return sync.NewSuccessResult(p.code, channelID, "", ""), nil
}

// sinkRecorder captures dead-lettered jobs
type sinkRecorder struct {
	jobs []*sync.SyncJob
}

func (r *sinkRecorder) Enqueue(ctx context.Context, job *sync.SyncJob, failureType sync.FailureType, failureReason string) error {
	r.jobs = append(r.jobs, job)
	return nil
}

// noopMetrics discards metrics rows
type noopMetrics struct{}

func (noopMetrics) Save(ctx context.Context, record *sync.SyncMetricsRecord) error {
	return nil
}

func (noopMetrics) FindByFilter(ctx context.Context, tenantID uuid.UUID, filter sync.SyncMetricsFilter) ([]sync.SyncMetricsRecord, error) {
	return nil, nil
}

// ---------------------------------------------------------------------------
// Harness
// ---------------------------------------------------------------------------

func newSyncHandlerEnv(t *testing.T, adapterErrs []error) (*SyncHandler, *scriptedPlatform) {
	t.Helper()

	adapter := &scriptedPlatform{code: sync.PlatformCodeTokopedia, errs: adapterErrs}
	retryCfg := resilience.RetryConfig{
		MaxRetries:     1,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		JitterFraction: 0,
	}
	orc := syncapp.NewOrchestrator(
		marketplace.NewRegistry(adapter),
		resilience.NewRetrier(retryCfg, nil),
		resilience.NewCircuitBreaker(resilience.DefaultCircuitConfig(), nil),
		&sinkRecorder{},
		noopMetrics{},
		syncapp.Config{MaxRetries: retryCfg.MaxRetries},
		nil,
	)
	return NewSyncHandler(orc), adapter
}

func syncRouter(h *SyncHandler) *gin.Engine {
	r := gin.New()
	r.POST("/sync/orders", h.SyncOrder)
	r.POST("/sync/inventory", h.PushInventory)
	r.POST("/sync/prices", h.PushPrice)
	r.GET("/sync/orders/:platform_order_id/status", h.PullOrderStatus)
	r.POST("/sync/jobs", h.SubmitJob)
	r.GET("/sync/jobs/history", h.JobHistory)
	return r
}

func validOrderBody() map[string]any {
	return map[string]any{
		"channel_id":    "channel-1",
		"platform":      "TOKOPEDIA",
		"order_id":      uuid.New().String(),
		"order_number":  "SO-2026-000123",
		"status":        "PAID",
		"customer_name": "Budi Santoso",
		"total_amount":  150000,
		"shipping_fee":  12000,
		"currency":      "IDR",
		"items": []map[string]any{
			{"sku": "SKU-001", "product_name": "Kopi Gayo 250g", "quantity": 2, "unit_price": 69000, "subtotal": 138000},
		},
	}
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ---------------------------------------------------------------------------
// SyncOrder
// ---------------------------------------------------------------------------

func TestSyncHandler_SyncOrder_Success(t *testing.T) {
	h, adapter := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/orders", validOrderBody())

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, adapter.calls)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "TOKOPEDIA", data["platform"])
}

func TestSyncHandler_SyncOrder_BindingError(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	body := validOrderBody()
	delete(body, "items")

	w := postJSON(t, router, "/sync/orders", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
}

func TestSyncHandler_SyncOrder_InvalidPlatformRejected(t *testing.T) {
	h, adapter := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	body := validOrderBody()
	body["platform"] = "BUKALAPAK"

	w := postJSON(t, router, "/sync/orders", body)

	// oneof binding rejects unknown marketplaces before the pipeline runs
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, adapter.calls)
}

func TestSyncHandler_SyncOrder_PipelineFailure(t *testing.T) {
	boom := sync.NewClassifiedError(sync.FailureServerError, true, fmt.Errorf("tokopedia 500"))
	h, _ := newSyncHandlerEnv(t, []error{boom, boom, boom})
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/orders", validOrderBody())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeSyncFailed, resp.Error.Code)
	// the failed result rides along so callers see warnings and metrics
	assert.NotNil(t, resp.Data)
}

func TestSyncHandler_SyncOrder_ValidationFailure(t *testing.T) {
	h, adapter := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	body := validOrderBody()
	body["total_amount"] = -5000

	w := postJSON(t, router, "/sync/orders", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, 0, adapter.calls)
}

// ---------------------------------------------------------------------------
// PushInventory / PushPrice
// ---------------------------------------------------------------------------

func TestSyncHandler_PushInventory_Success(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/inventory", map[string]any{
		"channel_id": "channel-1",
		"platform":   "TOKOPEDIA",
		"items": []map[string]any{
			{"sku": "SKU-001", "platform_product_id": "TPD-991", "available_quantity": 40},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestSyncHandler_PushInventory_MissingItems(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/inventory", map[string]any{
		"channel_id": "channel-1",
		"platform":   "TOKOPEDIA",
		"items":      []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncHandler_PushPrice_Success(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/prices", map[string]any{
		"channel_id": "channel-1",
		"platform":   "TOKOPEDIA",
		"items": []map[string]any{
			{"sku": "SKU-001", "platform_product_id": "TPD-991", "price": 75000},
		},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

// ---------------------------------------------------------------------------
// PullOrderStatus
// ---------------------------------------------------------------------------

func TestSyncHandler_PullOrderStatus_Success(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sync/orders/TPD-ORDER-991/status?channel_id=channel-1&platform=TOKOPEDIA", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "TPD-ORDER-991", data["platform_order_id"])
	assert.Equal(t, "SHIPPED", data["status"])
}

func TestSyncHandler_PullOrderStatus_UnknownPlatform(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sync/orders/TPD-ORDER-991/status?channel_id=channel-1&platform=BUKALAPAK", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeUnsupportedPlatform, resp.Error.Code)
}

func TestSyncHandler_PullOrderStatus_MissingChannel(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sync/orders/TPD-ORDER-991/status?platform=TOKOPEDIA", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------------------------------------------------------------------------
// Background submission
// ---------------------------------------------------------------------------

func TestSyncHandler_SubmitJob_PoolNotConfigured(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := postJSON(t, router, "/sync/jobs", validOrderBody())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeQueueFull, resp.Error.Code)
}

func TestSyncHandler_JobHistory_PoolNotConfigured(t *testing.T) {
	h, _ := newSyncHandlerEnv(t, nil)
	router := syncRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/sync/jobs/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
