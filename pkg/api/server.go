// Package api exposes the admin HTTP surface (§6.2): ingest endpoints that
// let external producers publish metric events into the same ring buffer
// the internal hook emitters use, and a health endpoint reporting the
// writer pipeline's state.
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/agentcore/guardcore/pkg/health"
	"github.com/agentcore/guardcore/pkg/ring"
	"github.com/agentcore/guardcore/pkg/tenant"
)

// maxIngestBodyBytes bounds a single request body, well above what even a
// 1000-item batch of small events should need.
const maxIngestBodyBytes = 4 * 1024 * 1024

// maxBatchItems is the hard cap on items accepted by the batch and
// eval-results ingest endpoints (§6.2).
const maxBatchItems = 1000

// Server is the admin HTTP API server fronting the ring buffer and health
// monitor (§6.2: "shape only; not the core").
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	buffer   *ring.Buffer
	monitor  *health.Monitor
	resolver *tenant.Resolver
}

// NewServer wires the admin routes around buffer/monitor/resolver.
func NewServer(buffer *ring.Buffer, monitor *health.Monitor, resolver *tenant.Resolver) *Server {
	e := echo.New()
	e.Use(middleware.BodyLimit(maxIngestBodyBytes))

	s := &Server{echo: e, buffer: buffer, monitor: monitor, resolver: resolver}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/admin/platform/health", s.healthHandler)

	admin := s.echo.Group("/admin/metrics")
	admin.POST("/ingest/batch", s.ingestBatchHandler)
	admin.POST("/ingest/eval-results", s.ingestEvalResultsHandler)
	admin.POST("/ingest/:type", s.ingestOneHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts on a pre-created listener, for tests serving on
// a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
