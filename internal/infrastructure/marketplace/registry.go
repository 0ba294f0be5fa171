package marketplace

import (
	"fmt"

	"github.com/channelsync/backend/internal/domain/sync"
)

// Registry implements the PlatformRegistry port over the closed set of three
// adapters. Adding a marketplace is a source-level change, not a runtime
// plugin.
type Registry struct {
	platforms map[sync.PlatformCode]sync.MarketplacePlatform
	order     []sync.PlatformCode
}

// NewRegistry creates a registry from the given adapters. Nil adapters are
// skipped so a deployment can run with a subset of platforms enabled.
func NewRegistry(adapters ...sync.MarketplacePlatform) *Registry {
	r := &Registry{platforms: make(map[sync.PlatformCode]sync.MarketplacePlatform)}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		code := a.PlatformCode()
		if _, exists := r.platforms[code]; exists {
			continue
		}
		r.platforms[code] = a
		r.order = append(r.order, code)
	}
	return r
}

// GetPlatform returns the adapter for the specified code
func (r *Registry) GetPlatform(code sync.PlatformCode) (sync.MarketplacePlatform, error) {
	if !code.IsValid() {
		return nil, fmt.Errorf("%w: %s", sync.ErrUnsupportedPlatform, code)
	}
	platform, ok := r.platforms[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sync.ErrPlatformNotConfigured, code)
	}
	return platform, nil
}

// ListPlatforms returns all registered adapters in registration order
func (r *Registry) ListPlatforms() []sync.MarketplacePlatform {
	out := make([]sync.MarketplacePlatform, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.platforms[code])
	}
	return out
}

// Ensure Registry implements the PlatformRegistry port
var _ sync.PlatformRegistry = (*Registry)(nil)
