package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

// tokopediaTimeLayout is the timestamp format the Seller API reports
const tokopediaTimeLayout = "2006-01-02T15:04:05Z07:00"

// cachedToken is one channel's bearer token with its expiry
type cachedToken struct {
	value     string
	expiresAt time.Time
}

func (t *cachedToken) valid(now time.Time) bool {
	return t != nil && t.value != "" && now.Before(t.expiresAt)
}

// TokopediaAdapter implements the MarketplacePlatform port for Tokopedia
type TokopediaAdapter struct {
	config     *TokopediaConfig
	httpClient *http.Client
	limiters   *limiterPool

	channelConfigs map[channelKey]*TokopediaConfig
	tokens         map[channelKey]*cachedToken
	mu             gosync.RWMutex
}

// NewTokopediaAdapter creates a Tokopedia adapter with the given default
// configuration
func NewTokopediaAdapter(config *TokopediaConfig) (*TokopediaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TokopediaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiters:       newLimiterPool(config.RequestsPerSecond, 0),
		channelConfigs: make(map[channelKey]*TokopediaConfig),
		tokens:         make(map[channelKey]*cachedToken),
	}, nil
}

// SetChannelConfig sets the credentials for a tenant's channel
func (a *TokopediaAdapter) SetChannelConfig(tenantID uuid.UUID, channelID string, config *TokopediaConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	key := channelKey{tenantID, channelID}
	a.channelConfigs[key] = config
	delete(a.tokens, key)
	return nil
}

func (a *TokopediaAdapter) getChannelConfig(tenantID uuid.UUID, channelID string) (*TokopediaConfig, error) {
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
func (a *TokopediaAdapter) PlatformCode() sync.PlatformCode {
	return sync.PlatformCodeTokopedia
}

// IsEnabled returns true if the channel has active credentials
func (a *TokopediaAdapter) IsEnabled(ctx context.Context, tenantID uuid.UUID, channelID string) (bool, error) {
	_, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ---------------------------------------------------------------------------
// OAuth Token Handling
// ---------------------------------------------------------------------------

// bearerToken returns a valid token for the channel, exchanging the client
// credentials when the cached one is missing or expired
func (a *TokopediaAdapter) bearerToken(ctx context.Context, config *TokopediaConfig, key channelKey, force bool) (string, error) {
	now := time.Now()
	if !force {
		a.mu.RLock()
		token := a.tokens[key]
		a.mu.RUnlock()
		if token.valid(now) {
			return token.value, nil
		}
	}

	values := url.Values{}
	values.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		config.AccountsBaseURL+"/token", strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("tokopedia: failed to create token request: %w", err)
	}
	req.Header.Set("Authorization", config.BasicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", networkError(sync.PlatformCodeTokopedia, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// a rejected credential exchange is not refreshable
		return "", sync.NewAuthError(sync.PlatformCodeTokopedia, false,
			fmt.Errorf("%w: token exchange HTTP %d", sync.ErrPlatformAuthFailed, resp.StatusCode))
	}

	body, err := readBody(resp)
	if err != nil {
		return "", err
	}
	var token TokopediaTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if token.AccessToken == "" {
		return "", sync.ErrPlatformInvalidResponse
	}

	// refresh one minute early to avoid racing the expiry
	expiresAt := now.Add(time.Duration(token.ExpiresIn) * time.Second).Add(-time.Minute)
	a.mu.Lock()
	a.tokens[key] = &cachedToken{value: token.AccessToken, expiresAt: expiresAt}
	a.mu.Unlock()

	return token.AccessToken, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// SyncOrder pushes a normalized order to Tokopedia
func (a *TokopediaAdapter) SyncOrder(ctx context.Context, tenantID uuid.UUID, channelID string, order *sync.NormalizedOrder) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, map[string]any{
			"sku":      item.SKU,
			"name":     item.ProductName,
			"quantity": item.Quantity.IntPart(),
			"price":    item.UnitPrice.IntPart(),
		})
	}
	payload := map[string]any{
		"external_order_id": order.OrderNumber,
		"recipient": map[string]any{
			"name":        order.CustomerName,
			"phone":       order.CustomerPhone,
			"address":     order.ShippingAddress,
			"city":        order.ShippingCity,
			"province":    order.ShippingProvince,
			"postal_code": order.PostalCode,
		},
		"amount":       order.TotalAmount.IntPart(),
		"shipping_fee": order.ShippingFee.IntPart(),
		"items":        items,
	}

	path := fmt.Sprintf("/v1/order/push/fs/%d/shop/%d", config.FsID, config.ShopID)
	body, size, err := a.doRequest(ctx, config, tenantID, channelID, path, payload)
	if err != nil {
		return nil, err
	}

	var resp TokopediaOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.Header.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Header.ErrorCode, resp.Header.Reason)
	}
	if resp.Data == nil {
		return nil, sync.ErrPlatformInvalidResponse
	}

	result := sync.NewSuccessResult(sync.PlatformCodeTokopedia, channelID,
		order.OrderID.String(), strconv.FormatInt(resp.Data.OrderID, 10))
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	return result, nil
}

// GetOrderStatus retrieves Tokopedia's view of an order's status
func (a *TokopediaAdapter) GetOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID, platformOrderID string) (*sync.OrderStatusReport, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/v2/order/%s/fs/%d/status", platformOrderID, config.FsID)
	body, _, err := a.doRequest(ctx, config, tenantID, channelID, path, nil)
	if err != nil {
		return nil, err
	}

	var resp TokopediaOrderStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.Header.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Header.ErrorCode, resp.Header.Reason)
	}
	if resp.Data == nil {
		return nil, sync.ErrOrderNotFound
	}

	reportedAt := time.Now()
	if t, err := time.Parse(tokopediaTimeLayout, resp.Data.UpdateTime); err == nil {
		reportedAt = t
	}
	return &sync.OrderStatusReport{
		PlatformOrderID: strconv.FormatInt(resp.Data.OrderID, 10),
		Platform:        sync.PlatformCodeTokopedia,
		ChannelID:       channelID,
		Status:          mapTokopediaOrderStatus(resp.Data.OrderStatus),
		ReportedAt:      reportedAt,
	}, nil
}

// ---------------------------------------------------------------------------
// Inventory / Price Operations
// ---------------------------------------------------------------------------

// PushInventory updates stock levels on Tokopedia
func (a *TokopediaAdapter) PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.InventoryUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]any{
			"product_id": item.PlatformProductID,
			"sku":        item.SKU,
			"new_stock":  item.AvailableQuantity.IntPart(),
		})
	}

	path := fmt.Sprintf("/inventory/v1/fs/%d/stock/update?shop_id=%d", config.FsID, config.ShopID)
	body, size, err := a.doRequest(ctx, config, tenantID, channelID, path, rows)
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

// PushPrice updates selling prices on Tokopedia
func (a *TokopediaAdapter) PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, items []sync.PriceUpdate) (*sync.SyncResult, error) {
	config, err := a.getChannelConfig(tenantID, channelID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]any{
			"product_id": item.PlatformProductID,
			"sku":        item.SKU,
			"new_price":  item.Price.IntPart(),
		})
	}

	path := fmt.Sprintf("/inventory/v1/fs/%d/price/update?shop_id=%d", config.FsID, config.ShopID)
	body, size, err := a.doRequest(ctx, config, tenantID, channelID, path, rows)
	if err != nil {
		return nil, err
	}
	return a.parseBatchResult(channelID, body, size)
}

func (a *TokopediaAdapter) parseBatchResult(channelID string, body []byte, size int64) (*sync.SyncResult, error) {
	var resp TokopediaBatchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	if !resp.Header.IsSuccess() {
		return nil, a.classifyBusinessError(resp.Header.ErrorCode, resp.Header.Reason)
	}

	result := sync.NewSuccessResult(sync.PlatformCodeTokopedia, channelID, "", "")
	result.Metrics.APICalls = 1
	result.Metrics.DataSize = size
	if resp.Data != nil {
		for _, f := range resp.Data.Failed {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("tokopedia rejected product %d: %s", f.ProductID, f.Message))
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest performs an authenticated call to the Seller API. On a 401 the
// token is refreshed once and the call replayed; a second 401 surfaces as an
// auth failure.
func (a *TokopediaAdapter) doRequest(ctx context.Context, config *TokopediaConfig, tenantID uuid.UUID, channelID, path string, payload any) ([]byte, int64, error) {
	key := channelKey{tenantID, channelID}
	if err := a.limiters.limiterFor(key).Wait(ctx); err != nil {
		return nil, 0, networkError(sync.PlatformCodeTokopedia, err)
	}

	body, size, err := a.doOnce(ctx, config, key, path, payload, false)
	if err == nil {
		return body, size, nil
	}

	var classified *sync.ClassifiedError
	if errors.As(err, &classified) && classified.Type == sync.FailureAuth && classified.Recoverable {
		return a.doOnce(ctx, config, key, path, payload, true)
	}
	return nil, 0, err
}

func (a *TokopediaAdapter) doOnce(ctx context.Context, config *TokopediaConfig, key channelKey, path string, payload any, forceToken bool) ([]byte, int64, error) {
	token, err := a.bearerToken(ctx, config, key, forceToken)
	if err != nil {
		return nil, 0, err
	}

	var reqBody *bytes.Reader
	method := http.MethodGet
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("tokopedia: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
		method = http.MethodPost
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, config.APIBaseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("tokopedia: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, networkError(sync.PlatformCodeTokopedia, err)
	}
	defer resp.Body.Close()

	if ce := classifyHTTPStatus(sync.PlatformCodeTokopedia, resp); ce != nil {
		return nil, 0, ce
	}

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, int64(len(body)), nil
}

// classifyBusinessError maps Seller API header error codes to classified
// errors
func (a *TokopediaAdapter) classifyBusinessError(code, reason string) *sync.ClassifiedError {
	err := fmt.Errorf("%w: %s - %s", sync.ErrPlatformRequestFailed, code, reason)
	var ce *sync.ClassifiedError
	switch code {
	case tokopediaErrUnauthorized:
		ce = sync.NewAuthError(sync.PlatformCodeTokopedia, true, err)
	case tokopediaErrForbidden:
		ce = sync.NewAuthError(sync.PlatformCodeTokopedia, false, err)
	case tokopediaErrTooMany:
		ce = sync.NewRateLimitError(sync.PlatformCodeTokopedia, 0, err)
	case tokopediaErrInternal:
		ce = sync.NewClassifiedError(sync.FailureServerError, true, err)
	default:
		ce = sync.NewClassifiedError(sync.FailureBusinessLogic, false, err)
	}
	ce.Platform = sync.PlatformCodeTokopedia
	ce.Code = code
	return ce
}

// mapTokopediaOrderStatus maps Seller API numeric statuses to the internal
// vocabulary
func mapTokopediaOrderStatus(status int) sync.OrderStatus {
	switch status {
	case 100, 103:
		return sync.OrderStatusPending
	case 220, 221:
		return sync.OrderStatusPaid
	case 400, 450:
		return sync.OrderStatusPacked
	case 500, 501, 530:
		return sync.OrderStatusShipped
	case 600, 601:
		return sync.OrderStatusDelivered
	case 700:
		return sync.OrderStatusCompleted
	case 0, 2, 3, 4, 5, 6, 10, 15:
		return sync.OrderStatusCancelled
	case 690:
		return sync.OrderStatusReturned
	default:
		return sync.OrderStatusPending
	}
}

// Ensure TokopediaAdapter implements the MarketplacePlatform port
var _ sync.MarketplacePlatform = (*TokopediaAdapter)(nil)
