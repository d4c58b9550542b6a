// Package quota implements the per-tenant usage enforcement described in
// §4.7: a BeforeAgentStart hook that rejects suspended tenants and
// tenants over their monthly request/token ceiling, and emits a one-time
// warning event as usage approaches the limit.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/guardcore/pkg/hook"
	"github.com/agentcore/guardcore/pkg/metricevent"
	"github.com/agentcore/guardcore/pkg/ring"
	"github.com/agentcore/guardcore/pkg/tenant"
)

// Order is the fixed BeforeAgentStart order for the quota enforcer (§4.7).
const Order = 5

// warningThreshold is the fraction of quota usage that triggers a
// one-time warning event (§4.7 step 5).
const warningThreshold = 0.9

// Enforcer is a hook.BeforeAgentStartHook that checks tenant status and
// monthly usage before an agent run is allowed to proceed.
type Enforcer struct {
	store  tenant.Store
	buffer *ring.Buffer

	warnedMu sync.Mutex
	warned   map[string]struct{} // key: tenantId + "/" + period
}

// NewEnforcer creates an Enforcer reading tenant/usage data from store
// and publishing QuotaEvents to buffer.
func NewEnforcer(store tenant.Store, buffer *ring.Buffer) *Enforcer {
	return &Enforcer{
		store:  store,
		buffer: buffer,
		warned: make(map[string]struct{}),
	}
}

func (e *Enforcer) Name() string  { return "quota-enforcer" }
func (e *Enforcer) Order() int    { return Order }
func (e *Enforcer) Enabled() bool { return true }

// BeforeAgentStart implements hook.BeforeAgentStartHook.
func (e *Enforcer) BeforeAgentStart(ctx context.Context, agentCtx *hook.Context) (hook.Result, error) {
	if err := ctx.Err(); err != nil {
		return hook.Result{}, err
	}

	tenantID := agentCtx.MetadataString("tenantId")
	if tenantID == "" {
		tenantID = tenant.DefaultTenantID
	}

	t, err := e.store.Get(ctx, tenantID)
	if err != nil {
		return hook.Result{}, fmt.Errorf("load tenant %s: %w", tenantID, err)
	}

	if t.Status != tenant.StatusActive {
		e.emit(tenantID, metricevent.QuotaActionRejectedSuspended, 0, 0, t.Quota)
		return hook.Reject("tenant suspended"), nil
	}

	period := currentPeriod()
	usage, err := e.store.Usage(ctx, tenantID, period)
	if err != nil {
		return hook.Result{}, fmt.Errorf("load usage for %s/%s: %w", tenantID, period, err)
	}

	if t.Quota.MaxRequestsPerMonth > 0 && usage.Requests >= t.Quota.MaxRequestsPerMonth {
		e.emit(tenantID, metricevent.QuotaActionRejectedRequests, usage.Requests, usage.Tokens, t.Quota)
		return hook.Reject("monthly request quota exceeded"), nil
	}

	if t.Quota.MaxTokensPerMonth > 0 && usage.Tokens >= t.Quota.MaxTokensPerMonth {
		e.emit(tenantID, metricevent.QuotaActionRejectedTokens, usage.Requests, usage.Tokens, t.Quota)
		return hook.Reject("monthly token quota exceeded"), nil
	}

	if t.Quota.MaxRequestsPerMonth > 0 && float64(usage.Requests) >= warningThreshold*float64(t.Quota.MaxRequestsPerMonth) {
		e.warnOnce(tenantID, period, usage, t.Quota)
	}

	return hook.Continue(), nil
}

func (e *Enforcer) warnOnce(tenantID, period string, usage tenant.Usage, q tenant.Quota) {
	key := tenantID + "/" + period
	e.warnedMu.Lock()
	_, already := e.warned[key]
	if !already {
		e.warned[key] = struct{}{}
	}
	e.warnedMu.Unlock()

	if already {
		return
	}
	e.emit(tenantID, metricevent.QuotaActionWarning, usage.Requests, usage.Tokens, q)
}

func (e *Enforcer) emit(tenantID string, action metricevent.QuotaAction, currentRequests, currentTokens int64, q tenant.Quota) {
	var usagePercent float64
	if q.MaxRequestsPerMonth > 0 {
		usagePercent = float64(currentRequests) / float64(q.MaxRequestsPerMonth) * 100
	}
	event := metricevent.QuotaEvent{
		Meta: metricevent.Meta{
			EventID:   uuid.NewString(),
			TenantID:  tenantID,
			Timestamp: time.Now(),
		},
		Action:          action,
		CurrentRequests: currentRequests,
		CurrentTokens:   currentTokens,
		QuotaRequests:   q.MaxRequestsPerMonth,
		QuotaTokens:     q.MaxTokensPerMonth,
		UsagePercent:    usagePercent,
	}
	e.buffer.Publish(event)
}

func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}
