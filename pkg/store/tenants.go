package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agentcore/guardcore/pkg/tenant"
)

// ErrTenantNotFound is returned by TenantStore.Get when no row matches.
var ErrTenantNotFound = errors.New("tenant not found")

type tenantStore struct {
	db *sql.DB
}

// NewTenantStore returns a tenant.Store backed by client's connection pool.
func NewTenantStore(client *Client) tenant.Store {
	return &tenantStore{db: client.db}
}

func (s *tenantStore) Get(ctx context.Context, tenantID string) (*tenant.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, slug, plan, status, max_requests, max_tokens, max_users
		FROM tenants WHERE id = $1
	`, tenantID)

	var t tenant.Tenant
	var plan, status string
	if err := row.Scan(&t.ID, &t.Slug, &plan, &status, &t.Quota.MaxRequestsPerMonth, &t.Quota.MaxTokensPerMonth, &t.Quota.MaxUsers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant %s: %w", tenantID, err)
	}
	t.Plan = tenant.Plan(plan)
	t.Status = tenant.Status(status)
	t.DisplayName = t.Slug
	return &t, nil
}

func (s *tenantStore) Usage(ctx context.Context, tenantID, period string) (tenant.Usage, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT requests, tokens FROM tenant_usage_counters
		WHERE tenant_id = $1 AND period = $2
	`, tenantID, period)

	usage := tenant.Usage{TenantID: tenantID, Period: period}
	err := row.Scan(&usage.Requests, &usage.Tokens)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return usage, nil // no usage recorded yet this period
	}
	if err != nil {
		return tenant.Usage{}, fmt.Errorf("get usage for %s/%s: %w", tenantID, period, err)
	}
	return usage, nil
}

func (s *tenantStore) IncrementUsage(ctx context.Context, tenantID, period string, requests, tokens int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_usage_counters (tenant_id, period, requests, tokens)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, period) DO UPDATE SET
			requests = tenant_usage_counters.requests + EXCLUDED.requests,
			tokens = tenant_usage_counters.tokens + EXCLUDED.tokens
	`, tenantID, period, requests, tokens)
	if err != nil {
		return fmt.Errorf("increment usage for %s/%s: %w", tenantID, period, err)
	}
	return nil
}
