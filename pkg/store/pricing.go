package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agentcore/guardcore/pkg/cost"
)

type pricingSource struct {
	db *sql.DB
}

// NewPricingSource returns a cost.PricingSource backed by client's
// connection pool.
func NewPricingSource(client *Client) cost.PricingSource {
	return &pricingSource{db: client.db}
}

func (p *pricingSource) RatesFor(provider, model string) ([]cost.Rate, error) {
	rows, err := p.db.QueryContext(context.Background(), `
		SELECT valid_from, valid_to, price_per_1k_prompt, price_per_1k_cached, price_per_1k_output, price_per_1k_reasoning
		FROM pricing_rates
		WHERE provider = $1 AND model = $2
		ORDER BY valid_from DESC
	`, provider, model)
	if err != nil {
		return nil, fmt.Errorf("query pricing rates for %s/%s: %w", provider, model, err)
	}
	defer rows.Close()

	var rates []cost.Rate
	for rows.Next() {
		var r cost.Rate
		var validTo sql.NullTime
		var prompt, cached, output, reasoning string
		if err := rows.Scan(&r.ValidFrom, &validTo, &prompt, &cached, &output, &reasoning); err != nil {
			return nil, fmt.Errorf("scan pricing rate: %w", err)
		}
		if validTo.Valid {
			r.ValidTo = validTo.Time
		}
		r.Provider = provider
		r.Model = model
		r.PricePer1kPrompt, _ = decimal.NewFromString(prompt)
		r.PricePer1kCached, _ = decimal.NewFromString(cached)
		r.PricePer1kOutput, _ = decimal.NewFromString(output)
		r.PricePer1kReasoning, _ = decimal.NewFromString(reasoning)
		rates = append(rates, r)
	}
	return rates, rows.Err()
}
