package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// Platform errors
	ErrPlatformNotConfigured   = errors.New("sync: platform not configured")
	ErrPlatformNotEnabled      = errors.New("sync: platform not enabled")
	ErrPlatformUnavailable     = errors.New("sync: platform temporarily unavailable")
	ErrPlatformRequestFailed   = errors.New("sync: platform request failed")
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	ErrPlatformAuthFailed      = errors.New("sync: platform authentication failed")
	ErrPlatformTokenExpired    = errors.New("sync: platform token expired")
	ErrPlatformRateLimited     = errors.New("sync: platform rate limited")
	ErrUnsupportedPlatform     = errors.New("sync: unsupported platform")

	// Order errors
	ErrOrderInvalid        = errors.New("sync: invalid order for sync")
	ErrOrderNotFound       = errors.New("sync: platform order not found")
	ErrOrderAlreadyShipped = errors.New("sync: order already shipped on platform")
	ErrOrderNegativeAmount = errors.New("sync: order total amount must be non-negative")

	// Channel errors
	ErrChannelNotFound   = errors.New("sync: channel not found")
	ErrChannelInactive   = errors.New("sync: channel credentials inactive")
	ErrInvalidTenantID   = errors.New("sync: invalid tenant ID")
	ErrInvalidChannelID  = errors.New("sync: invalid channel ID")
	ErrInvalidOperation  = errors.New("sync: invalid operation type")
	ErrInventoryNegative = errors.New("sync: inventory quantity must be non-negative")
)

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode identifies one of the supported marketplaces.
// The set is closed: adding a marketplace is a source-level extension,
// not a runtime plugin.
type PlatformCode string

const (
	// PlatformCodeTokopedia represents the Tokopedia marketplace
	PlatformCodeTokopedia PlatformCode = "TOKOPEDIA"
	// PlatformCodeShopee represents the Shopee marketplace
	PlatformCodeShopee PlatformCode = "SHOPEE"
	// PlatformCodeLazada represents the Lazada marketplace
	PlatformCodeLazada PlatformCode = "LAZADA"
)

// AllPlatformCodes returns the closed set of supported platforms.
func AllPlatformCodes() []PlatformCode {
	return []PlatformCode{PlatformCodeTokopedia, PlatformCodeShopee, PlatformCodeLazada}
}

// IsValid returns true if the platform code is one of the supported marketplaces
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformCodeTokopedia, PlatformCodeShopee, PlatformCodeLazada:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c PlatformCode) DisplayName() string {
	switch c {
	case PlatformCodeTokopedia:
		return "Tokopedia"
	case PlatformCodeShopee:
		return "Shopee"
	case PlatformCodeLazada:
		return "Lazada"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// MarketplacePlatform Port Interface
// ---------------------------------------------------------------------------

// MarketplacePlatform defines the port interface every marketplace adapter
// implements. It follows the Ports & Adapters pattern: the interface lives in
// the domain layer, the Tokopedia/Shopee/Lazada implementations live in the
// infrastructure layer.
//
// Adapters translate normalized data into platform wire formats, perform
// platform-specific authentication, and map platform response codes to
// ClassifiedError values. They make outbound network calls only and never
// write to the database; results are handed back to the orchestrator.
type MarketplacePlatform interface {
	// PlatformCode returns the platform code this adapter handles
	PlatformCode() PlatformCode

	// IsEnabled returns true if this platform has active credentials for the
	// tenant and channel
	IsEnabled(ctx context.Context, tenantID uuid.UUID, channelID string) (bool, error)

	// SyncOrder pushes a normalized order to the platform and returns the
	// normalized result. Failures are raised as *ClassifiedError.
	SyncOrder(ctx context.Context, tenantID uuid.UUID, channelID string, order *NormalizedOrder) (*SyncResult, error)

	// GetOrderStatus retrieves the platform's view of an order's status,
	// used by cross-channel conflict detection
	GetOrderStatus(ctx context.Context, tenantID uuid.UUID, channelID, platformOrderID string) (*OrderStatusReport, error)

	// PushInventory updates stock levels on the platform
	PushInventory(ctx context.Context, tenantID uuid.UUID, channelID string, items []InventoryUpdate) (*SyncResult, error)

	// PushPrice updates selling prices on the platform
	PushPrice(ctx context.Context, tenantID uuid.UUID, channelID string, items []PriceUpdate) (*SyncResult, error)
}

// PlatformRegistry provides access to the configured marketplace adapters
type PlatformRegistry interface {
	// GetPlatform returns the adapter for the specified code
	GetPlatform(code PlatformCode) (MarketplacePlatform, error)

	// ListPlatforms returns all registered adapters
	ListPlatforms() []MarketplacePlatform
}
