package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// degradedDropRateThreshold marks the pipeline degraded once the buffer
// has ever dropped events, without failing health checks outright — a
// dropped event is lossy-by-design (§3 Lifecycle), not an outage.
const degradedDropRateThreshold = 1

// healthHandler handles GET /admin/platform/health (§6.2: "a snapshot
// from the health monitor plus buffer usage").
func (s *Server) healthHandler(c *echo.Context) error {
	snapshot := s.monitor.Snapshot()

	status := healthStatusHealthy
	if snapshot.DroppedTotal >= degradedDropRateThreshold || snapshot.WriteErrorsTotal > 0 {
		status = healthStatusDegraded
	}

	return c.JSON(http.StatusOK, newHealthResponse(status, snapshot, s.buffer.Capacity()))
}
