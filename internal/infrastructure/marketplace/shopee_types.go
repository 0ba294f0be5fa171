package marketplace

// ShopeeBaseResponse carries the error envelope every Shopee v2 response has
type ShopeeBaseResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

// IsSuccess returns true when the response carries no error code
func (r *ShopeeBaseResponse) IsSuccess() bool {
	return r.Error == ""
}

// Shopee business error codes mapped by the adapter
const (
	shopeeErrAuth         = "error_auth"
	shopeeErrTokenExpired = "error_token_expired"
	shopeeErrPermission   = "error_permission"
	shopeeErrParam        = "error_param"
	shopeeErrItemNotFound = "error_item_not_found"
	shopeeErrServer       = "error_server"
	shopeeErrInnerFail    = "error_inner"
)

// ShopeeOrderItem is one line in an order push request
type ShopeeOrderItem struct {
	ItemSKU       string `json:"item_sku"`
	ItemName      string `json:"item_name"`
	ModelQuantity int64  `json:"model_quantity_purchased"`
	// Prices are IDR integer strings on the wire
	OriginalPrice string `json:"original_price"`
}

// ShopeeOrderRequest is the order push payload
type ShopeeOrderRequest struct {
	ExternalOrderSN string            `json:"external_order_sn"`
	BuyerName       string            `json:"buyer_name"`
	BuyerPhone      string            `json:"buyer_phone"`
	RecvAddress     string            `json:"recv_address"`
	RecvCity        string            `json:"recv_city"`
	RecvState       string            `json:"recv_state"`
	RecvZipcode     string            `json:"recv_zipcode"`
	TotalAmount     string            `json:"total_amount"`
	ShippingFee     string            `json:"shipping_fee"`
	Currency        string            `json:"currency"`
	ItemList        []ShopeeOrderItem `json:"item_list"`
}

// ShopeeOrderResponse is the order push result
type ShopeeOrderResponse struct {
	ShopeeBaseResponse
	Response *struct {
		OrderSN string `json:"order_sn"`
	} `json:"response"`
}

// ShopeeOrderDetailResponse is the order status query result
type ShopeeOrderDetailResponse struct {
	ShopeeBaseResponse
	Response *struct {
		OrderList []struct {
			OrderSN     string `json:"order_sn"`
			OrderStatus string `json:"order_status"`
			UpdateTime  int64  `json:"update_time"`
		} `json:"order_list"`
	} `json:"response"`
}

// ShopeeStockItem is one entry in a stock update request
type ShopeeStockItem struct {
	ItemID    int64  `json:"item_id"`
	ItemSKU   string `json:"item_sku"`
	Stock     int64  `json:"stock"`
	SellerSKU string `json:"seller_sku,omitempty"`
}

// ShopeeStockRequest is the stock update payload
type ShopeeStockRequest struct {
	StockList []ShopeeStockItem `json:"stock_list"`
}

// ShopeeBatchResponse is the shared shape of stock and price update results
type ShopeeBatchResponse struct {
	ShopeeBaseResponse
	Response *struct {
		FailureList []struct {
			ItemSKU       string `json:"item_sku"`
			FailedReason  string `json:"failed_reason"`
			OriginalValue string `json:"original_value"`
		} `json:"failure_list"`
		SuccessList []struct {
			ItemSKU string `json:"item_sku"`
		} `json:"success_list"`
	} `json:"response"`
}

// ShopeePriceItem is one entry in a price update request
type ShopeePriceItem struct {
	ItemSKU       string `json:"item_sku"`
	OriginalPrice string `json:"original_price"`
}

// ShopeePriceRequest is the price update payload
type ShopeePriceRequest struct {
	PriceList []ShopeePriceItem `json:"price_list"`
}
