package marketplace

// LazadaBaseResponse carries the envelope every Lazada response has.
// Code "0" means success.
type LazadaBaseResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// IsSuccess returns true when the response code indicates success
func (r *LazadaBaseResponse) IsSuccess() bool {
	return r.Code == "0" || r.Code == ""
}

// Lazada error codes mapped by the adapter
const (
	lazadaErrIllegalAccessToken = "IllegalAccessToken"
	lazadaErrTokenExpired       = "AccessTokenExpired"
	lazadaErrAppCallLimit       = "ApiCallLimit"
	lazadaErrSystemError        = "SYSTEM_ERROR"
	lazadaErrServiceUnavailable = "ServiceUnavailable"
)

// LazadaOrderResponse is the order create result
type LazadaOrderResponse struct {
	LazadaBaseResponse
	Data *struct {
		OrderID string `json:"order_id"`
	} `json:"data"`
}

// LazadaOrderStatusResponse is the order query result
type LazadaOrderStatusResponse struct {
	LazadaBaseResponse
	Data *struct {
		OrderID  string   `json:"order_id"`
		Statuses []string `json:"statuses"`
		// UpdatedAt is formatted "2006-01-02 15:04:05 -0700"
		UpdatedAt string `json:"updated_at"`
	} `json:"data"`
}

// LazadaBatchResponse is the shared shape of stock and price update results
type LazadaBatchResponse struct {
	LazadaBaseResponse
	Detail []struct {
		SellerSKU string `json:"seller_sku"`
		Success   bool   `json:"success"`
		Message   string `json:"message"`
	} `json:"detail"`
}
