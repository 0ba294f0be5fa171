package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

// lazadaTimeLayout is the timestamp format Lazada reports order updates in
const lazadaTimeLayout = "2006-01-02 15:04:05 -0700"

// LazadaAdapter implements the MarketplacePlatform port for Lazada
type LazadaAdapter struct {
	config     *LazadaConfig
	httpClient *http.Client
	limiters   *limiterPool

	channelConfigs map[channelKey]*LazadaConfig
	mu             gosync.RWMutex
}

// NewLazadaAdapter creates a Lazada adapter with the given default
// configuration
func NewLazadaAdapter(config *LazadaConfig) (*LazadaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &LazadaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiters:       newLimiterPool(config.RequestsPerSecond, 0),
		channelConfigs: make(map[channelKey]*LazadaConfig),
	}, nil
}

// SetChannelConfig sets the credentials for a tenant's channel
func (a *LazadaAdapter) SetChannelConfig(tenantID uuid.UUID, channelID string, config *LazadaConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channelConfigs[channelKey{tenantID, channelID}] = config
	return nil
}

func (a *LazadaAdapter) getChannelConfig(tenantID uuid.UUID, channelID string) (*LazadaConfig, error) {
	a.mu.RLock()
	config, ok := a.channelConfigs[channelKey{tenantID, channelID}]
	a.mu.RUnlock()
	if ok {
		return config, nil
	}
	if a.config != nil {
		return a.config, nil
	}
	return nil, sync.ErrPlatformNotConfigured
}

// PlatformCode returns the platform code this adapter handles
func (a *LazadaAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeLazada
}

// IsEnabled returns true if the channel has active credentials
func (a *LazadaAdapter) IsEnabled(ctx context.Context, tenantID uuid.UUID, channelID string) (bool, error) {
	_, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

const (
	lazadaPathOrderPush   = "/order/push"
	lazadaPathOrderGet    = "/order/get"
	lazadaPathStockUpdate = "/product/stock/sellable/update"
	lazadaPathPriceUpdate = "/product/price_quantity/update"
)

// SyncOrder pushes a normalized order to Lazada
func (a *LazadaAdapter) SyncOrder(ctx context.Context, tenantID uuid.UUID, channelID string, order *sync.NormalizedOrder) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"seller_sku": item.SKU,
			"name":       item.ProductName,
			"quantity":   item.Quantity.IntPart(),
			"item_price": item.UnitPrice.StringFixed(0),
		})
	}
	payload := map[string]any{
		"external_order_id": order.OrderNumber,
		"customer_name":     order.CustomerName,
		"customer_phone":    order.CustomerPhone,
		"address":           order.ShippingAddress,
		"city":              order.ShippingCity,
		"province":          order.ShippingProvince,
		"post_code":         order.PostalCode,
		"price":             order.TotalAmount.StringFixed(0),
		"shipping_fee":      order.ShippingFee.StringFixed(0),
		"currency":          order.Currency,
		"items":             items,
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, lazadaPathOrderPush, payload)
	if err != nil {
		return nil, err
	}

	var resp LazadaOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Code, resp.Message)
	}
	if resp.Data == nil {
		return nil, sync.ErrPlatformInvalidResponse
	}

	result := sync.NewSuccessResult(sync.PlatformCodeLazada, channelID, order.OrderID.String(), resp.Data.OrderID)
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	result.PlatformSpecific["request_id"] = resp.RequestID
	return result, nil
}

// GetOrderStatus retrieves Lazada's view of an order's status
func (a *LazadaAdapter) GetOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID, platformOrderID string) (*sync.OrderStatusReport, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"order_id": platformOrderID}
	body, _, err := a.doRequest(ctx, config, tenantID, channelID, lazadaPathOrderGet, payload)
	if err != nil {
		return nil, err
	}

	var resp LazadaOrderStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Code, resp.Message)
	}
	if resp.Data == nil || len(resp.Data.Statuses) == 0 {
		return nil, sync.ErrOrderNotFound
	}

	reportedAt := time.Now()
	if t, err := time.Parse(lazadaTimeLayout, resp.Data.UpdatedAt); err == nil {
		reportedAt = t
	}
	return &sync.OrderStatusReport{
		PlatformOrderID: resp.Data.OrderID,
		Platform:        sync.PlatformCodeLazada,
		ChannelID:       channelID,
		Status:          mapLazadaOrderStatus(resp.Data.Statuses[0]),
		ReportedAt:      reportedAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Inventory / Price Operations
// ---------------------------------------------------------------------------

// PushInventory updates sellable stock on Lazada
func (a *LazadaAdapter) PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.InventoryUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	skus := make([]map[string]any, 0, len(items))
	for _, item := range items {
		skus = append(skus, map[string]any{
			"seller_sku": item.SKU,
			"item_id":    item.PlatformProductID,
			"sellable":   item.AvailableQuantity.IntPart(),
		})
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, lazadaPathStockUpdate, map[string]any{"skus": skus})
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

// PushPrice updates selling prices on Lazada
func (a *LazadaAdapter) PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.PriceUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	skus := make([]map[string]any, 0, len(items))
	for _, item := range items {
		skus = append(skus, map[string]any{
			"seller_sku": item.SKU,
			"item_id":    item.PlatformProductID,
			"price":      item.Price.StringFixed(0),
		})
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, lazadaPathPriceUpdate, map[string]any{"skus": skus})
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

func (a *LazadaAdapter) parseBatchResult(channelID string, body []byte, size int64) (*sync.SyncResult, error) {
	var resp LazadaBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Code, resp.Message)
	}

	result := sync.NewSuccessResult(sync.PlatformCodeLazada, channelID, "", "")
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	for _, d := range resp.Detail {
		if !d.Success {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("lazada rejected %s: %s", d.SellerSKU, d.Message))
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs a signed POST to the Lazada gateway. The JSON payload
// travels in the `payload` form field, signed together with the common
// parameters.
func (a *LazadaAdapter) doRequest(ctx context.Context, config *LazadaConfig, tenantID uuid.UUID, channelID, apiPath string, payload any) ([]byte, int64, error) {
	if err := a.limiters.limiterFor(channelKey{tenantID, channelID}).Wait(ctx); err != nil {
		return nil, 0, networkError(sync.PlatformCodeLazada, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("lazada: failed to encode request: %w", err)
	}

	params := map[string]string{
		"app_key":      config.AppKey,
		"access_token": config.AccessToken,
		"timestamp":    strconv.FormatInt(time.Now().UnixMilli(), 10),
		"sign_method":  "sha256",
		"payload":      string(raw),
	}
	params["sign"] = config.Sign(apiPath, params)

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.APIBaseURL+apiPath, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("lazada: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, networkError(sync.PlatformCodeLazada, err)
	}
	defer resp.Body.Close()

	if ce := classifyHTTPStatus(sync.PlatformCodeLazada, resp); ce != nil {
		return nil, 0, ce
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, int64(len(body)), nil
}

// classifyBusinessError maps Lazada error codes to classified errors.
// Lazada reports rate limiting through its body code, not HTTP 429.
func (a *LazadaAdapter) classifyBusinessError(code, message string) *sync.ClassifiedError {
	err := fmt.Errorf("%w: %s - %s", sync.ErrPlatformRequestFailed, code, message)
	var ce *sync.ClassifiedError
	switch code {
	case lazadaErrAppCallLimit:
		ce = sync.NewRateLimitError(sync.PlatformCodeLazada, 0, err)
	case lazadaErrTokenExpired:
		ce = sync.NewAuthError(sync.PlatformCodeLazada, true, err)
	case lazadaErrIllegalAccessToken:
		ce = sync.NewAuthError(sync.PlatformCodeLazada, false, err)
	case lazadaErrSystemError, lazadaErrServiceUnavailable:
		ce = sync.NewClassifiedError(sync.FailureServerError, true, err)
	default:
		ce = sync.NewClassifiedError(sync.FailureBusinessLogic, false, err)
	}
	ce.Platform = sync.PlatformCodeLazada
	ce.Code = code
	return ce
}

// mapLazadaOrderStatus maps Lazada order statuses to the internal vocabulary
func mapLazadaOrderStatus(status string) sync.OrderStatus {
	switch status {
	case "unpaid", "pending":
		return sync.OrderStatusPending
	case "packed", "ready_to_ship":
		return sync.OrderStatusPacked
	case "shipped":
		return sync.OrderStatusShipped
	case "delivered":
		return sync.OrderStatusDelivered
	case "completed", "confirmed":
		return sync.OrderStatusCompleted
	case "canceled", "cancelled":
		return sync.OrderStatusCancelled
	case "returned":
		return sync.OrderStatusReturned
	default:
		return sync.OrderStatusPending
	}
}

// Ensure LazadaAdapter implements the MarketplacePlatform port
var _ sync.MarketplacePlatform = (*LazadaAdapter)(nil)
