package api

import (
	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/version"
)

// HealthResponse is the body of GET /admin/platform/health (§6.2).
type HealthResponse struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	WrittenTotal       int64   `json:"writtenTotal"`
	DroppedTotal       int64   `json:"droppedTotal"`
	WriteErrorsTotal   int64   `json:"writeErrorsTotal"`
	WriteLatencyMs     int64   `json:"writeLatencyMs"`
	BufferUsagePercent float64 `json:"bufferUsagePercent"`
	BufferCapacity     int     `json:"bufferCapacity"`
}

func newHealthResponse(status string, snapshot health.Snapshot, bufferCapacity int) HealthResponse {
	return HealthResponse{
		Status:             status,
		Version:            version.Full(),
		WrittenTotal:       snapshot.WrittenTotal,
		DroppedTotal:       snapshot.DroppedTotal,
		WriteErrorsTotal:   snapshot.WriteErrorsTotal,
		WriteLatencyMs:     snapshot.WriteLatencyMs,
		BufferUsagePercent: snapshot.BufferUsagePercent,
		BufferCapacity:     bufferCapacity,
	}
}

// IngestBatchResponse is the body returned by the batch and eval-results
// ingest endpoints (§6.2: "{accepted, dropped} summary").
type IngestBatchResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}
