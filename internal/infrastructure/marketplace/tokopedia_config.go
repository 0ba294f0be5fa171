package marketplace

import (
	"encoding/base64"
	"errors"
)

// TokopediaConfig holds one channel's credentials for the Tokopedia Seller
// API. Authentication is OAuth2 client-credentials: the adapter exchanges the
// client pair for a bearer token and refreshes it on expiry.
type TokopediaConfig struct {
	// ClientID is the OAuth client identifier
	ClientID string
	// ClientSecret is the OAuth client secret
	ClientSecret string
	// FsID is the fulfillment service identifier assigned by Tokopedia
	FsID int64
	// ShopID is the seller's shop identifier
	ShopID int64
	// APIBaseURL is the Seller API host
	APIBaseURL string
	// AccountsBaseURL is the OAuth token host
	AccountsBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps the client-side call rate per channel
	RequestsPerSecond float64
}

const (
	// TokopediaProductionAPIURL is the production Seller API host
	TokopediaProductionAPIURL = "https://fs.tokopedia.net"
	// TokopediaAccountsURL is the OAuth token endpoint host
	TokopediaAccountsURL = "https://accounts.tokopedia.com"
)

// Errors for Tokopedia configuration
var (
	ErrTokopediaConfigMissingClientID     = errors.New("tokopedia: client ID is required")
	ErrTokopediaConfigMissingClientSecret = errors.New("tokopedia: client secret is required")
	ErrTokopediaConfigMissingFsID         = errors.New("tokopedia: fs ID is required")
	ErrTokopediaConfigMissingShopID       = errors.New("tokopedia: shop ID is required")
)

// NewTokopediaConfig creates a Tokopedia configuration with production
// defaults
func NewTokopediaConfig(clientID, clientSecret string, fsID, shopID int64) *TokopediaConfig {
	return &TokopediaConfig{
		ClientID:          clientID,
		ClientSecret:      clientSecret,
		FsID:              fsID,
		ShopID:            shopID,
		APIBaseURL:        TokopediaProductionAPIURL,
		AccountsBaseURL:   TokopediaAccountsURL,
		TimeoutSeconds:    30,
		RequestsPerSecond: 10,
	}
}

// Validate validates the Tokopedia configuration
func (c *TokopediaConfig) Validate() error {
	if c.ClientID == "" {
		return ErrTokopediaConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrTokopediaConfigMissingClientSecret
	}
	if c.FsID == 0 {
		return ErrTokopediaConfigMissingFsID
	}
	if c.ShopID == 0 {
		return ErrTokopediaConfigMissingShopID
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = TokopediaProductionAPIURL
	}
	if c.AccountsBaseURL == "" {
		c.AccountsBaseURL = TokopediaAccountsURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	return nil
}

// BasicAuth returns the Authorization header value for the token exchange
func (c *TokopediaConfig) BasicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.ClientID+":"+c.ClientSecret))
}
