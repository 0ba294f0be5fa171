package sync

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Normalized Order
// ---------------------------------------------------------------------------

// OrderStatus is the internal, platform-agnostic order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusPacked    OrderStatus = "PACKED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusReturned  OrderStatus = "RETURNED"
)

// IsValid returns true if the status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPacked, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsFinal returns true if the status is terminal
func (s OrderStatus) IsFinal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// NormalizedOrder is the platform-agnostic representation of an order used
// internally before adapter translation. Amounts are IDR.
type NormalizedOrder struct {
	// OrderID is the internal order identifier
	OrderID uuid.UUID
	// OrderNumber is the human-facing internal order number
	OrderNumber string
	// Status is the internally expected order status
	Status OrderStatus
	// CustomerName is the buyer's name
	CustomerName string
	// CustomerPhone is the buyer's phone number
	CustomerPhone string
	// ShippingAddress is the flattened delivery address
	ShippingAddress string
	// ShippingProvince is the delivery province
	ShippingProvince string
	// ShippingCity is the delivery city
	ShippingCity string
	// PostalCode is the delivery postal code
	PostalCode string
	// TotalAmount is the order total in IDR (must be non-negative)
	TotalAmount decimal.Decimal
	// ShippingFee is the freight amount in IDR
	ShippingFee decimal.Decimal
	// DiscountAmount is the total discount in IDR
	DiscountAmount decimal.Decimal
	// Currency is the payment currency, IDR unless stated otherwise
	Currency string
	// Items contains the order lines
	Items []OrderItem
	// WarehouseID identifies the fulfilling location
	WarehouseID uuid.UUID
	// RequestedAt is the origin timestamp of the sync request; conflict
	// resolution tie-breaks on this, never on completion time
	RequestedAt time.Time
	// UpdatedAt is when the internal state last changed
	UpdatedAt time.Time
}

// OrderItem represents a line item in a normalized order
type OrderItem struct {
	// SKU is the internal stock keeping unit
	SKU string
	// ProductName is the product display name
	ProductName string
	// Quantity is the ordered quantity
	Quantity decimal.Decimal
	// UnitPrice is the unit price in IDR
	UnitPrice decimal.Decimal
	// Subtotal is quantity * unit price minus line discounts
	Subtotal decimal.Decimal
}

// Validate performs fail-fast validation before the order enters the
// error-handling pipeline
func (o *NormalizedOrder) Validate() error {
	if o.OrderID == uuid.Nil {
		return ErrOrderInvalid
	}
	if o.TotalAmount.IsNegative() {
		return ErrOrderNegativeAmount
	}
	if len(o.Items) == 0 {
		return ErrOrderInvalid
	}
	if o.Currency == "" {
		o.Currency = "IDR"
	}
	return nil
}

// ---------------------------------------------------------------------------
// Adapter push payloads
// ---------------------------------------------------------------------------

// InventoryUpdate is a stock level update pushed to a platform
type InventoryUpdate struct {
	// SKU is the internal stock keeping unit
	SKU string
	// PlatformProductID is the product identifier on the platform
	PlatformProductID string
	// AvailableQuantity is the sellable stock to publish
	AvailableQuantity decimal.Decimal
}

// Validate validates the inventory update
func (u *InventoryUpdate) Validate() error {
	if u.SKU == "" || u.PlatformProductID == "" {
		return ErrOrderInvalid
	}
	if u.AvailableQuantity.IsNegative() {
		return ErrInventoryNegative
	}
	return nil
}

// PriceUpdate is a selling price update pushed to a platform
type PriceUpdate struct {
	// SKU is the internal stock keeping unit
	SKU string
	// PlatformProductID is the product identifier on the platform
	PlatformProductID string
	// Price is the selling price in IDR
	Price decimal.Decimal
}

// OrderStatusReport is a platform's externally reported view of an order,
// fed into cross-channel status conflict detection
type OrderStatusReport struct {
	// PlatformOrderID is the order identifier on the platform
	PlatformOrderID string
	// Platform identifies the reporting marketplace
	Platform PlatformCode
	// ChannelID identifies the sales channel
	ChannelID string
	// Status is the platform status mapped to the internal vocabulary
	Status OrderStatus
	// ReportedAt is the platform-side timestamp of the reported status
	ReportedAt time.Time
}
