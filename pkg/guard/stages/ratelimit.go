package stages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentcore/guardcore/pkg/config"
	"github.com/agentcore/guardcore/pkg/guard"
)

// RateLimitOrder is the fixed pipeline position for this stage (§4.5).
const RateLimitOrder = 1

const (
	defaultRatePerMinute = 60
	defaultRatePerHour   = 1000
)

// window tracks a sliding count of requests within a fixed duration by
// keeping timestamps and discarding everything older than the window on
// each check — adequate at the per-tenant/per-user cardinality this
// stage runs at.
type window struct {
	mu       sync.Mutex
	duration time.Duration
	hits     []time.Time
}

func newWindow(d time.Duration) *window {
	return &window{duration: d}
}

// prune discards hits older than the window and reports whether the
// remaining count is already at or over limit.
func (w *window) prune(now time.Time, limit int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-w.duration)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
	return len(w.hits) >= limit
}

// record adds a hit at now, unconditionally.
func (w *window) record(now time.Time) {
	w.mu.Lock()
	w.hits = append(w.hits, now)
	w.mu.Unlock()
}

// counters is a (tenantId, userId) keyed map of minute/hour sliding
// windows, built with double-checked locking since lookups vastly
// outnumber first-touch inserts.
type counters struct {
	mu   sync.RWMutex
	byID map[string]*tenantWindows
}

type tenantWindows struct {
	minute *window
	hour   *window
}

func newCounters() *counters {
	return &counters{byID: make(map[string]*tenantWindows)}
}

func (c *counters) get(key string) *tenantWindows {
	c.mu.RLock()
	tw, ok := c.byID[key]
	c.mu.RUnlock()
	if ok {
		return tw
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tw, ok := c.byID[key]; ok {
		return tw
	}
	tw = &tenantWindows{minute: newWindow(time.Minute), hour: newWindow(time.Hour)}
	c.byID[key] = tw
	return tw
}

// RateLimit enforces a sliding-window request cap per (tenantId, userId),
// with tenant-specific overrides of the global defaults (§4.5, §4.7).
type RateLimit struct {
	defaultPerMinute int
	defaultPerHour   int
	overrides        map[string]config.TenantRateLimit
	counters         *counters
	now              func() time.Time
}

// NewRateLimit builds the stage from guard configuration.
func NewRateLimit(cfg config.GuardConfig) *RateLimit {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = defaultRatePerMinute
	}
	perHour := cfg.RatePerHour
	if perHour <= 0 {
		perHour = defaultRatePerHour
	}
	return &RateLimit{
		defaultPerMinute: perMinute,
		defaultPerHour:   perHour,
		overrides:        cfg.TenantRateLimits,
		counters:         newCounters(),
		now:              time.Now,
	}
}

func (s *RateLimit) Name() string  { return "rate-limit" }
func (s *RateLimit) Order() int    { return RateLimitOrder }
func (s *RateLimit) Enabled() bool { return true }

func (s *RateLimit) Check(_ context.Context, cmd guard.Command) guard.Result {
	tenantID := cmd.TenantID()
	userID := cmd.NormalizeUserID()

	perMinute, perHour := s.defaultPerMinute, s.defaultPerHour
	if override, ok := s.overrides[tenantID]; ok {
		if override.RatePerMinute > 0 {
			perMinute = override.RatePerMinute
		}
		if override.RatePerHour > 0 {
			perHour = override.RatePerHour
		}
	}

	tw := s.counters.get(tenantID + "/" + userID)
	now := s.now()

	// Check both windows before recording either hit, so a request
	// rejected on the hourly cap doesn't still consume the minute cap.
	if tw.minute.prune(now, perMinute) {
		return guard.Rejected(fmt.Sprintf("rate limit exceeded: %d requests per minute", perMinute), guard.CategoryRateLimited)
	}
	if tw.hour.prune(now, perHour) {
		return guard.Rejected(fmt.Sprintf("rate limit exceeded: %d requests per hour", perHour), guard.CategoryRateLimited)
	}

	tw.minute.record(now)
	tw.hour.record(now)
	return guard.Allowed()
}
