package marketplace

// TokopediaHeader is the status envelope every Seller API response carries
type TokopediaHeader struct {
	ProcessTime float64 `json:"process_time"`
	Messages    string  `json:"messages"`
	Reason      string  `json:"reason"`
	ErrorCode   string  `json:"error_code"`
}

// IsSuccess returns true when the header carries no error code
func (h *TokopediaHeader) IsSuccess() bool {
	return h.ErrorCode == ""
}

// Tokopedia error codes mapped by the adapter
const (
	tokopediaErrUnauthorized = "401"
	tokopediaErrForbidden    = "403"
	tokopediaErrTooMany      = "429"
	tokopediaErrInternal     = "500"
)

// TokopediaTokenResponse is the OAuth client-credentials token result
type TokopediaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokopediaOrderResponse is the order push result
type TokopediaOrderResponse struct {
	Header TokopediaHeader `json:"header"`
	Data   *struct {
		OrderID int64 `json:"order_id"`
	} `json:"data"`
}

// TokopediaOrderStatusResponse is the single-order query result
type TokopediaOrderStatusResponse struct {
	Header TokopediaHeader `json:"header"`
	Data   *struct {
		OrderID     int64  `json:"order_id"`
		OrderStatus int    `json:"order_status"`
		UpdateTime  string `json:"update_time"`
	} `json:"data"`
}

// TokopediaBatchResponse is the shared shape of stock and price update
// results
type TokopediaBatchResponse struct {
	Header TokopediaHeader `json:"header"`
	Data   *struct {
		Failed []struct {
			ProductID int64  `json:"product_id"`
			Message   string `json:"message"`
		} `json:"failed_rows_data"`
		Succeed []struct {
			ProductID int64 `json:"product_id"`
		} `json:"succeed_rows"`
	} `json:"data"`
}
