package api

import "encoding/json"

// ingestItem is one event within a batch/eval-results ingest body: kind
// names the MetricEvent variant (§3's EventKind), event carries that
// variant's own fields.
type ingestItem struct {
	Kind  string          `json:"kind"`
	Event json.RawMessage `json:"event"`
}

// ingestBatchRequest is the body of POST /admin/metrics/ingest/batch and
// POST /admin/metrics/ingest/eval-results (§6.2: "max 1000 items").
type ingestBatchRequest struct {
	Items []ingestItem `json:"items"`
}
