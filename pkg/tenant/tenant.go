// Package tenant models multi-tenant identity and quota: the Tenant
// record itself, slug validation, and the resolver that determines which
// tenant a request belongs to (§3, §4.7).
package tenant

import (
	"context"
	"math"
	"regexp"
)

// Plan is a tenant's subscription tier.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Status is a tenant's account status.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// DefaultTenantID is the always-present fallback tenant (§3).
const DefaultTenantID = "default"

// UnboundedQuota is used for ENTERPRISE plans with no practical ceiling.
const UnboundedQuota = math.MaxInt64

// slugPattern enforces the tenant slug invariant (§3).
var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)

// ValidSlug reports whether slug satisfies the tenant slug invariant. A
// single-character slug (no interior hyphen run possible) is valid too.
func ValidSlug(slug string) bool {
	if len(slug) == 1 {
		return slug[0] >= 'a' && slug[0] <= 'z' || slug[0] >= '0' && slug[0] <= '9'
	}
	return slugPattern.MatchString(slug)
}

// Quota holds a tenant's monthly usage ceilings.
type Quota struct {
	MaxRequestsPerMonth int64
	MaxTokensPerMonth   int64
	MaxUsers            int
}

// Tenant is the account record a request is scoped to.
type Tenant struct {
	ID          string
	Slug        string
	DisplayName string
	Plan        Plan
	Status      Status
	Quota       Quota
}

// Usage is a tenant's consumption counters for one calendar-month period
// (the "yyyy-mm" key used by the quota enforcer, §4.7).
type Usage struct {
	TenantID string
	Period   string
	Requests int64
	Tokens   int64
}

// Store is the persistence contract for tenants and their usage
// counters. A PostgreSQL-backed implementation lives in pkg/store.
type Store interface {
	Get(ctx context.Context, tenantID string) (*Tenant, error)
	Usage(ctx context.Context, tenantID, period string) (Usage, error)
	IncrementUsage(ctx context.Context, tenantID, period string, requests, tokens int64) error
}
