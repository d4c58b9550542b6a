// Package cost computes the estimated USD cost of an LLM call from its
// token usage. It sits on the metric-emission hot path (§4.4), so lookups
// must stay allocation-light: pricing records are cached in-process and
// looked up by (provider, model), not refetched per call.
package cost

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// per1kThousand is the divisor applied after multiplying a token count by
// its per-1k-token price.
var per1kThousand = decimal.NewFromInt(1000)

// Rate is one time-ranged pricing record for a (provider, model) pair.
// ValidTo is exclusive; a zero ValidTo means the record has no expiry.
type Rate struct {
	Provider           string
	Model              string
	ValidFrom          time.Time
	ValidTo            time.Time
	PricePer1kPrompt   decimal.Decimal
	PricePer1kCached   decimal.Decimal
	PricePer1kOutput   decimal.Decimal
	PricePer1kReasoning decimal.Decimal
}

func (r Rate) coversTime(t time.Time) bool {
	if t.Before(r.ValidFrom) {
		return false
	}
	if !r.ValidTo.IsZero() && !t.Before(r.ValidTo) {
		return false
	}
	return true
}

// PricingSource looks up the pricing records for a (provider, model) pair.
// Implementations may read from a store, a config file, or a static table;
// the Calculator caches whatever they return.
type PricingSource interface {
	RatesFor(provider, model string) ([]Rate, error)
}

// Calculator computes per-call cost estimates. It is safe for concurrent
// use and caches each (provider, model) lookup until Invalidate is called
// (e.g. after an admin pricing-table mutation).
type Calculator struct {
	source PricingSource

	mu    sync.RWMutex
	cache map[string][]Rate
}

// New creates a Calculator backed by source.
func New(source PricingSource) *Calculator {
	return &Calculator{
		source: source,
		cache:  make(map[string][]Rate),
	}
}

// Invalidate drops all cached pricing lookups, forcing the next Calculate
// call for any (provider, model) to re-fetch from the source.
func (c *Calculator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string][]Rate)
}

// Calculate returns the estimated USD cost of a call, or zero if no rate
// covers (provider, model) at t — unknown models never produce an error,
// since a cost miss must never fail the request or metric-emission path.
func (c *Calculator) Calculate(provider, model string, t time.Time, promptTokens, cachedTokens, completionTokens, reasoningTokens int64) decimal.Decimal {
	rates := c.ratesFor(provider, model)
	for _, rate := range rates {
		if !rate.coversTime(t) {
			continue
		}
		total := decimal.Zero
		total = total.Add(bucketCost(rate.PricePer1kPrompt, promptTokens))
		total = total.Add(bucketCost(rate.PricePer1kCached, cachedTokens))
		total = total.Add(bucketCost(rate.PricePer1kOutput, completionTokens))
		total = total.Add(bucketCost(rate.PricePer1kReasoning, reasoningTokens))
		return total
	}
	return decimal.Zero
}

func bucketCost(pricePer1k decimal.Decimal, tokens int64) decimal.Decimal {
	if tokens == 0 || pricePer1k.IsZero() {
		return decimal.Zero
	}
	return pricePer1k.Mul(decimal.NewFromInt(tokens)).Div(per1kThousand)
}

func (c *Calculator) ratesFor(provider, model string) []Rate {
	key := provider + "\x00" + model

	c.mu.RLock()
	rates, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return rates
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if rates, ok := c.cache[key]; ok {
		return rates
	}

	rates, err := c.source.RatesFor(provider, model)
	if err != nil {
		// A lookup failure is treated the same as an unknown model: the
		// caller gets zero, never an error (§4.4).
		rates = nil
	}
	c.cache[key] = rates
	return rates
}
