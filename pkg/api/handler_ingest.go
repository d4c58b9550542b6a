package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/agentcore/guardcore/pkg/metricevent"
)

// ingestOneHandler handles POST /admin/metrics/ingest/:type (§6.2): the
// body is the event itself, type names its EventKind. Returns 202 on
// success, 503 when the ring buffer is full.
func (s *Server) ingestOneHandler(c *echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return mapIngestError(fmt.Errorf("read body: %w", err))
	}

	event, err := metricevent.Decode(metricevent.EventKind(c.Param("type")), body)
	if err != nil {
		return mapIngestError(err)
	}

	event = metricevent.ApplyDefaults(event, s.ambientTenantID(c))
	if !s.buffer.Publish(event) {
		s.monitor.RecordDrop(1)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "ring buffer full")
	}
	return c.NoContent(http.StatusAccepted)
}

// ingestBatchHandler handles POST /admin/metrics/ingest/batch (§6.2).
func (s *Server) ingestBatchHandler(c *echo.Context) error {
	return s.ingestItems(c, nil)
}

// ingestEvalResultsHandler handles POST /admin/metrics/ingest/eval-results
// (§6.2 supplemented feature): identical to batch ingest, but every
// AgentExecutionEvent is tagged IntentCategory="eval" before publishing so
// eval-pipeline traffic is distinguishable from live traffic downstream.
func (s *Server) ingestEvalResultsHandler(c *echo.Context) error {
	return s.ingestItems(c, tagEvalIntent)
}

func tagEvalIntent(e metricevent.MetricEvent) metricevent.MetricEvent {
	agentEvent, ok := e.(metricevent.AgentExecutionEvent)
	if !ok {
		return e
	}
	agentEvent.IntentCategory = "eval"
	return agentEvent
}

func (s *Server) ingestItems(c *echo.Context, transform func(metricevent.MetricEvent) metricevent.MetricEvent) error {
	var req ingestBatchRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
	}
	if len(req.Items) > maxBatchItems {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch exceeds max of %d items", maxBatchItems))
	}

	tenantID := s.ambientTenantID(c)
	accepted, dropped := 0, 0
	for _, item := range req.Items {
		event, err := metricevent.Decode(metricevent.EventKind(item.Kind), item.Event)
		if err != nil {
			dropped++
			continue
		}
		event = metricevent.ApplyDefaults(event, tenantID)
		if transform != nil {
			event = transform(event)
		}
		if s.buffer.Publish(event) {
			accepted++
		} else {
			s.monitor.RecordDrop(1)
			dropped++
		}
	}

	return c.JSON(http.StatusOK, IngestBatchResponse{Accepted: accepted, Dropped: dropped})
}

// ambientTenantID resolves which tenant owns an ingested event: the
// X-Tenant-Id header, falling back to the resolver's configured default
// (§4.7 resolution order, steps 1 and 3 — admin ingest has no per-request
// ambient attribute of its own).
func (s *Server) ambientTenantID(c *echo.Context) string {
	return s.resolver.ResolveFromHTTP(c.Request(), "")
}

func mapIngestError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}
