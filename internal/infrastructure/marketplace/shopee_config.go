package marketplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// ShopeeConfig holds one channel's credentials for the Shopee Open Platform
// Partner API v2
type ShopeeConfig struct {
	// PartnerID is the partner identifier issued by Shopee
	PartnerID int64
	// PartnerKey is the partner secret used for request signing
	PartnerKey string
	// ShopID is the seller's shop identifier
	ShopID int64
	// AccessToken is the shop-level OAuth access token
	AccessToken string
	// APIBaseURL is the API host (production or sandbox)
	APIBaseURL string
	// IsSandbox indicates the sandbox environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps the client-side call rate per channel
	RequestsPerSecond float64
}

const (
	// ShopeeProductionAPIURL is the production API host
	ShopeeProductionAPIURL = "https://partner.shopeemobile.com"
	// ShopeeSandboxAPIURL is the sandbox API host
	ShopeeSandboxAPIURL = "https://partner.test-stable.shopeemobile.com"
)

// Errors for Shopee configuration
var (
	ErrShopeeConfigMissingPartnerID   = errors.New("shopee: partner ID is required")
	ErrShopeeConfigMissingPartnerKey  = errors.New("shopee: partner key is required")
	ErrShopeeConfigMissingShopID      = errors.New("shopee: shop ID is required")
	ErrShopeeConfigMissingAccessToken = errors.New("shopee: access token is required")
)

// NewShopeeConfig creates a Shopee configuration with production defaults
func NewShopeeConfig(partnerID int64, partnerKey string, shopID int64, accessToken string) *ShopeeConfig {
	return &ShopeeConfig{
		PartnerID:         partnerID,
		PartnerKey:        partnerKey,
		ShopID:            shopID,
		AccessToken:       accessToken,
		APIBaseURL:        ShopeeProductionAPIURL,
		TimeoutSeconds:    30,
		RequestsPerSecond: 10,
	}
}

// Validate validates the Shopee configuration
func (c *ShopeeConfig) Validate() error {
	if c.PartnerID == 0 {
		return ErrShopeeConfigMissingPartnerID
	}
	if c.PartnerKey == "" {
		return ErrShopeeConfigMissingPartnerKey
	}
	if c.ShopID == 0 {
		return ErrShopeeConfigMissingShopID
	}
	if c.AccessToken == "" {
		return ErrShopeeConfigMissingAccessToken
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = ShopeeSandboxAPIURL
		} else {
			c.APIBaseURL = ShopeeProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	return nil
}

// Sign computes the Partner API v2 signature for a shop-level call:
// HMAC-SHA256(partner_id + path + timestamp + access_token + shop_id)
// keyed by the partner key.
func (c *ShopeeConfig) Sign(path string, timestamp int64) string {
	base := fmt.Sprintf("%d%s%d%s%d", c.PartnerID, path, timestamp, c.AccessToken, c.ShopID)
	h := hmac.New(sha256.New, []byte(c.PartnerKey))
	h.Write([]byte(base))
	return hex.EncodeToString(h.Sum(nil))
}

// CommonQuery returns the authentication query parameters every Shopee call
// carries
func (c *ShopeeConfig) CommonQuery(path string, timestamp int64) map[string]string {
	return map[string]string{
		"partner_id":   strconv.FormatInt(c.PartnerID, 10),
		"shop_id":      strconv.FormatInt(c.ShopID, 10),
		"access_token": c.AccessToken,
		"timestamp":    strconv.FormatInt(timestamp, 10),
		"sign":         c.Sign(path, timestamp),
	}
}
