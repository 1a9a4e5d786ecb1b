// Package health serves the liveness endpoints used by container health
// checks. The plain response only says the process is up; verbose=true adds
// the result of every registered component check.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"mcp-local-repo-analyzer/internal/logging"
)

// Status of a component check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Response is the body of /health and /healthz.
type Response struct {
	Status      string                 `json:"status"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Initialized bool                   `json:"initialized"`
	Timestamp   time.Time              `json:"timestamp"`
	Overall     Status                 `json:"overall,omitempty"`
	Checks      map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string                          { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// Manager answers health requests for one server.
type Manager struct {
	service     string
	version     string
	checkers    []Checker
	initialized atomic.Bool
	logger      *logging.AppLogger
}

// NewManager creates a new health check manager
func NewManager(service, version string, logger *logging.AppLogger) *Manager {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Manager{
		service: service,
		version: version,
		logger:  logger,
	}
}

// RegisterChecker adds a health checker to the manager. Not safe to call
// while requests are being served.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// SetInitialized records that every tool has been registered.
func (m *Manager) SetInitialized(v bool) {
	m.initialized.Store(v)
}

// Health builds the response. Status is always "ok" while the process runs;
// Overall summarizes the component checks when verbose is set.
func (m *Manager) Health(ctx context.Context, verbose bool) Response {
	resp := Response{
		Status:      "ok",
		Service:     m.service,
		Version:     m.version,
		Initialized: m.initialized.Load(),
		Timestamp:   time.Now().UTC(),
	}

	if !verbose {
		return resp
	}

	resp.Overall = StatusHealthy
	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result

		switch result.Status {
		case StatusUnhealthy:
			resp.Overall = StatusUnhealthy
		case StatusDegraded:
			if resp.Overall == StatusHealthy {
				resp.Overall = StatusDegraded
			}
		}
	}
	return resp
}

// ServeHTTP answers GET /health and /healthz. Always 200 for liveness.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"
	resp := m.Health(r.Context(), verbose)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		m.logger.Error("Failed to encode health response", "error", err)
	}

	m.logger.Debug("Health check performed", "verbose", verbose, "overall", resp.Overall)
}
