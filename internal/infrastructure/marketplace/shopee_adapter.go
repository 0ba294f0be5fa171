package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/channelsync/backend/internal/domain/sync"
)

// ShopeeAdapter implements the MarketplacePlatform port for Shopee
type ShopeeAdapter struct {
	config     *ShopeeConfig
	httpClient *http.Client
	limiters   *limiterPool

	// channelConfigs stores per tenant+channel credentials, loaded from the
	// channel configuration store at startup
	channelConfigs map[channelKey]*ShopeeConfig
	mu             gosync.RWMutex
}

// NewShopeeAdapter creates a Shopee adapter with the given default
// configuration
func NewShopeeAdapter(config *ShopeeConfig) (*ShopeeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ShopeeAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiters:       newLimiterPool(config.RequestsPerSecond, 0),
		channelConfigs: make(map[channelKey]*ShopeeConfig),
	}, nil
}

// SetChannelConfig sets the credentials for a tenant's channel
func (a *ShopeeAdapter) SetChannelConfig(tenantID uuid.UUID, channelID string, config *ShopeeConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channelConfigs[channelKey{tenantID, channelID}] = config
	return nil
}

// getChannelConfig retrieves the credentials for a tenant's channel
func (a *ShopeeAdapter) getChannelConfig(tenantID uuid.UUID, channelID string) (*ShopeeConfig, error) {
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
func (a *ShopeeAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeShopee
}

// IsEnabled returns true if the channel has active credentials
func (a *ShopeeAdapter) IsEnabled(ctx context.Context, tenantID uuid.UUID, channelID string) (bool, error) {
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
	shopeePathOrderPush   = "/api/v2/order/push_order"
	shopeePathOrderDetail = "/api/v2/order/get_order_detail"
	shopeePathStockUpdate = "/api/v2/product/update_stock"
	shopeePathPriceUpdate = "/api/v2/product/update_price"
)

// SyncOrder pushes a normalized order to Shopee
func (a *ShopeeAdapter) SyncOrder(ctx context.Context, tenantID uuid.UUID, channelID string, order *sync.NormalizedOrder) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	req := &ShopeeOrderRequest{
		ExternalOrderSN: order.OrderNumber,
		BuyerName:       order.CustomerName,
		BuyerPhone:      order.CustomerPhone,
		RecvAddress:     order.ShippingAddress,
		RecvCity:        order.ShippingCity,
		RecvState:       order.ShippingProvince,
		RecvZipcode:     order.PostalCode,
		TotalAmount:     order.TotalAmount.StringFixed(0),
		ShippingFee:     order.ShippingFee.StringFixed(0),
		Currency:        order.Currency,
		ItemList:        make([]ShopeeOrderItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		req.ItemList = append(req.ItemList, ShopeeOrderItem{
			ItemSKU:       item.SKU,
			ItemName:      item.ProductName,
			ModelQuantity: item.Quantity.IntPart(),
			OriginalPrice: item.UnitPrice.StringFixed(0),
		})
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, shopeePathOrderPush, req)
	if err != nil {
		return nil, err
	}

	var resp ShopeeOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Error, resp.Message)
	}
	if resp.Response == nil {
		return nil, sync.ErrPlatformInvalidResponse
	}

	result := sync.NewSuccessResult(sync.PlatformCodeShopee, channelID, order.OrderID.String(), resp.Response.OrderSN)
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	result.PlatformSpecific["request_id"] = resp.RequestID
	return result, nil
}

// GetOrderStatus retrieves Shopee's view of an order's status
func (a *ShopeeAdapter) GetOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID, platformOrderID string) (*sync.OrderStatusReport, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	req := map[string]any{"order_sn_list": []string{platformOrderID}}
	body, _, err := a.doRequest(ctx, config, tenantID, channelID, shopeePathOrderDetail, req)
	if err != nil {
		return nil, err
	}

	var resp ShopeeOrderDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Error, resp.Message)
	}
	if resp.Response == nil || len(resp.Response.OrderList) == 0 {
		return nil, sync.ErrOrderNotFound
	}

	entry := resp.Response.OrderList[0]
	return &sync.OrderStatusReport{
		PlatformOrderID: entry.OrderSN,
		Platform:        sync.PlatformCodeShopee,
		ChannelID:       channelID,
		Status:          mapShopeeOrderStatus(entry.OrderStatus),
		ReportedAt:      time.Unix(entry.UpdateTime, 0),
	}, nil
}

// ---------------------------------------------------------------------------
// Inventory / Price Operations
// ---------------------------------------------------------------------------

// PushInventory updates stock levels on Shopee
func (a *ShopeeAdapter) PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.InventoryUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	req := &ShopeeStockRequest{StockList: make([]ShopeeStockItem, 0, len(items))}
	for _, item := range items {
		req.StockList = append(req.StockList, ShopeeStockItem{
			ItemSKU:   item.SKU,
			SellerSKU: item.PlatformProductID,
			Stock:     item.AvailableQuantity.IntPart(),
		})
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, shopeePathStockUpdate, req)
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

// PushPrice updates selling prices on Shopee
func (a *ShopeeAdapter) PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.PriceUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	req := &ShopeePriceRequest{PriceList: make([]ShopeePriceItem, 0, len(items))}
	for _, item := range items {
		req.PriceList = append(req.PriceList, ShopeePriceItem{
			ItemSKU:       item.SKU,
			OriginalPrice: item.Price.StringFixed(0),
		})
	}

	body, size, err := a.doRequest(ctx, config, tenantID, channelID, shopeePathPriceUpdate, req)
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

// parseBatchResult converts a Shopee batch response into a SyncResult with
// per-item failures as warnings
func (a *ShopeeAdapter) parseBatchResult(channelID string, body []byte, size int64) (*sync.SyncResult, error) {
	var resp ShopeeBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Error, resp.Message)
	}

	result := sync.NewSuccessResult(sync.PlatformCodeShopee, channelID, "", "")
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	if resp.Response != nil {
		for _, f := range resp.Response.FailureList {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("shopee rejected %s: %s", f.ItemSKU, f.FailedReason))
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs a signed POST to the Shopee Partner API. Failures are
// returned as classified errors; the raw body is returned on success.
func (a *ShopeeAdapter) doRequest(ctx context.Context, config *ShopeeConfig, tenantID uuid.UUID, channelID, path string, payload any) ([]byte, int64, error) {
	if err := a.limiters.limiterFor(channelKey{tenantID, channelID}).Wait(ctx); err != nil {
		return nil, 0, networkError(sync.PlatformCodeShopee, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("shopee: failed to encode request: %w", err)
	}

	timestamp := time.Now().Unix()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.APIBaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("shopee: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	q := req.URL.Query()
	for k, v := range config.CommonQuery(path, timestamp) {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, networkError(sync.PlatformCodeShopee, err)
	}
	defer resp.Body.Close()

	if ce := classifyHTTPStatus(sync.PlatformCodeShopee, resp); ce != nil {
		return nil, 0, ce
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, int64(len(body)), nil
}

// classifyBusinessError maps Shopee error codes to classified errors
func (a *ShopeeAdapter) classifyBusinessError(code, message string) *sync.ClassifiedError {
	err := fmt.Errorf("%w: %s - %s", sync.ErrPlatformRequestFailed, code, message)
	var ce *sync.ClassifiedError
	switch code {
	case shopeeErrTokenExpired:
		ce = sync.NewAuthError(sync.PlatformCodeShopee, true, err)
	case shopeeErrAuth, shopeeErrPermission:
		ce = sync.NewAuthError(sync.PlatformCodeShopee, false, err)
	case shopeeErrServer, shopeeErrInnerFail:
		ce = sync.NewClassifiedError(sync.FailureServerError, true, err)
	default:
		ce = sync.NewClassifiedError(sync.FailureBusinessLogic, false, err)
	}
	ce.Platform = sync.PlatformCodeShopee
	ce.Code = code
	return ce
}

// mapShopeeOrderStatus maps Shopee order statuses to the internal vocabulary
func mapShopeeOrderStatus(status string) sync.OrderStatus {
	switch status {
	case "UNPAID":
		return sync.OrderStatusPending
	case "READY_TO_SHIP":
		return sync.OrderStatusPaid
	case "PROCESSED":
		return sync.OrderStatusPacked
	case "SHIPPED":
		return sync.OrderStatusShipped
	case "TO_CONFIRM_RECEIVE":
		return sync.OrderStatusDelivered
	case "COMPLETED":
		return sync.OrderStatusCompleted
	case "CANCELLED", "IN_CANCEL":
		return sync.OrderStatusCancelled
	case "TO_RETURN":
		return sync.OrderStatusReturned
	default:
		return sync.OrderStatusPending
	}
}

// Ensure ShopeeAdapter implements the MarketplacePlatform port
var _ sync.MarketplacePlatform = (*ShopeeAdapter)(nil)
