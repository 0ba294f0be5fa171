package marketplace

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// LazadaConfig holds one channel's credentials for the Lazada Open Platform
type LazadaConfig struct {
	// AppKey is the application key from the Lazada open platform
	AppKey string
	// AppSecret is the application secret used for request signing
	AppSecret string
	// AccessToken is the seller's OAuth access token
	AccessToken string
	// APIBaseURL is the regional API gateway
	APIBaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RequestsPerSecond caps the client-side call rate per channel
	RequestsPerSecond float64
}

// LazadaIndonesiaAPIURL is the Indonesian regional gateway
const LazadaIndonesiaAPIURL = "https://api.lazada.co.id/rest"

// Errors for Lazada configuration
var (
	ErrLazadaConfigMissingAppKey      = errors.New("lazada: app key is required")
	ErrLazadaConfigMissingAppSecret   = errors.New("lazada: app secret is required")
	ErrLazadaConfigMissingAccessToken = errors.New("lazada: access token is required")
)

// NewLazadaConfig creates a Lazada configuration with Indonesian defaults
func NewLazadaConfig(appKey, appSecret, accessToken string) *LazadaConfig {
	return &LazadaConfig{
		AppKey:            appKey,
		AppSecret:         appSecret,
		AccessToken:       accessToken,
		APIBaseURL:        LazadaIndonesiaAPIURL,
		TimeoutSeconds:    30,
		RequestsPerSecond: 5,
	}
}

// Validate validates the Lazada configuration
func (c *LazadaConfig) Validate() error {
	if c.AppKey == "" {
		return ErrLazadaConfigMissingAppKey
	}
	if c.AppSecret == "" {
		return ErrLazadaConfigMissingAppSecret
	}
	if c.AccessToken == "" {
		return ErrLazadaConfigMissingAccessToken
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = LazadaIndonesiaAPIURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 5
	}
	return nil
}

// Sign computes the Lazada signature: HMAC-SHA256 over the API path followed
// by the sorted key+value concatenation, uppercase hex encoded.
func (c *LazadaConfig) Sign(apiPath string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	builder.WriteString(apiPath)
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(params[k])
	}

	h := hmac.New(sha256.New, []byte(c.AppSecret))
	h.Write([]byte(builder.String()))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}
