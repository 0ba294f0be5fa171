// Package marketplace contains the Tokopedia, Shopee and Lazada adapters.
// Each adapter translates normalized sync requests into platform-specific
// authentication and API calls and maps platform failures to classified
// errors. Adapters make outbound calls only; they are invoked exclusively
// through the error-handling orchestrator.
package marketplace

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/channelsync/backend/internal/domain/sync"
)

// maxResponseSize caps platform API responses (10MB)
const maxResponseSize = 10 * 1024 * 1024

// channelKey identifies one credential set
type channelKey struct {
	tenantID  uuid.UUID
	channelID string
}

// limiterPool holds one client-side rate limiter per channel so a burst from
// one tenant cannot consume another tenant's platform quota
type limiterPool struct {
	mu       gosync.Mutex
	limiters map[channelKey]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = int(rps)
	}
	return &limiterPool{
		limiters: make(map[channelKey]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (p *limiterPool) limiterFor(key channelKey) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.rps, p.burst)
		p.limiters[key] = l
	}
	return l
}

// readBody drains a platform response up to the size cap
func readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to read response: %w", err)
	}
	return body, nil
}

// classifyHTTPStatus maps transport-level HTTP failures to classified errors.
// Platform-specific business codes are mapped by each adapter on top of this.
func classifyHTTPStatus(platform sync.PlatformCode, resp *http.Response) *sync.ClassifiedError {
	status := resp.StatusCode
	switch {
	case status == http.StatusTooManyRequests:
		return sync.NewRateLimitError(platform, parseRetryAfter(resp),
			fmt.Errorf("%w: HTTP 429", sync.ErrPlatformRateLimited))
	case status == http.StatusUnauthorized:
		// expired tokens are refreshable; the adapter retries after refresh
		return sync.NewAuthError(platform, true,
			fmt.Errorf("%w: HTTP 401", sync.ErrPlatformTokenExpired))
	case status == http.StatusForbidden:
		return sync.NewAuthError(platform, false,
			fmt.Errorf("%w: HTTP 403", sync.ErrPlatformAuthFailed))
	case status >= 500:
		e := sync.NewClassifiedError(sync.FailureServerError, true,
			fmt.Errorf("%w: HTTP %d", sync.ErrPlatformRequestFailed, status))
		e.Platform = platform
		e.Code = strconv.Itoa(status)
		return e
	case status >= 400:
		e := sync.NewClassifiedError(sync.FailureBusinessLogic, false,
			fmt.Errorf("%w: HTTP %d", sync.ErrPlatformRequestFailed, status))
		e.Platform = platform
		e.Code = strconv.Itoa(status)
		return e
	default:
		return nil
	}
}

// parseRetryAfter reads the Retry-After header as delay seconds or HTTP date
func parseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// networkError wraps a transport failure as a recoverable timeout
// classification
func networkError(platform sync.PlatformCode, err error) *sync.ClassifiedError {
	e := sync.NewClassifiedError(sync.FailureNetworkTimeout, true,
		fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err))
	e.Platform = platform
	return e
}
