package tenant

import "net/http"

// headerName is the inbound request header carrying an explicit tenant
// override (§4.7 resolution order step 1).
const headerName = "X-Tenant-Id"

// ambientAttrKey is the context/metadata key an upstream middleware may
// set before the request reaches this pipeline (§4.7 resolution order
// step 2).
const ambientAttrKey = "tenantId"

// Resolver determines which tenant a request belongs to.
type Resolver struct {
	defaultTenantID string
}

// NewResolver creates a Resolver falling back to defaultTenantID (usually
// DefaultTenantID) when neither a header nor an ambient attribute names
// a tenant.
func NewResolver(defaultTenantID string) *Resolver {
	if defaultTenantID == "" {
		defaultTenantID = DefaultTenantID
	}
	return &Resolver{defaultTenantID: defaultTenantID}
}

// ResolveFromHTTP implements resolution order step 1 for an inbound HTTP
// request: the X-Tenant-Id header, falling through to ambientAttr (set by
// upstream middleware) and finally the configured default.
func (r *Resolver) ResolveFromHTTP(req *http.Request, ambientAttr string) string {
	if h := req.Header.Get(headerName); h != "" {
		return h
	}
	return r.Resolve(ambientAttr)
}

// Resolve applies steps 2-3 of the resolution order given an ambient
// attribute value already extracted by the caller (e.g. from hook
// metadata or upstream middleware state).
func (r *Resolver) Resolve(ambientAttr string) string {
	if ambientAttr != "" {
		return ambientAttr
	}
	return r.defaultTenantID
}
