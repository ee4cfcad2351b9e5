package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/campusreg/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
)

// Per-check budget. The overall handler gets a little more than twice this so
// all three checks can run even when one of them times out.
const (
	checkTimeout   = 2 * time.Second
	overallTimeout = 5 * time.Second
)

// HealthCheck is the response body of GET /health.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one component check. Status is one of
// pass, warn, or fail.
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthChecker probes the server's dependencies for GET /health.
type HealthChecker struct {
	pool        *pgxpool.Pool
	riverClient *river.Client[pgx.Tx]
	version     string
	gitCommit   string
}

// NewHealthChecker wires the checker to the shared pool and optional River client.
func NewHealthChecker(pool *pgxpool.Pool, riverClient *river.Client[pgx.Tx], version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		pool:        pool,
		riverClient: riverClient,
		version:     version,
		gitCommit:   gitCommit,
	}
}

// healthGauge maps the overall status onto the exported gauge scale.
var healthGauge = map[string]float64{
	"healthy":  2,
	"degraded": 1,
}

// Health runs all component checks and reports the aggregate. A failed check
// makes the server unhealthy (503); a warning only degrades it (200), since
// the optional components do not block request serving.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			// Graceful shutdown in progress, tell the probe to stop routing here.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "shutting_down"})
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), overallTimeout)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}

		status, code := overall(checks)
		metrics.HealthStatus.Set(healthGauge[status])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// overall folds per-check results into the aggregate status and HTTP code.
func overall(checks map[string]CheckResult) (string, int) {
	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case "fail":
			return "unhealthy", http.StatusServiceUnavailable
		case "warn":
			status = "degraded"
		}
	}
	return status, http.StatusOK
}

// failCheck builds a fail result carrying the raw error and operator guidance.
func failCheck(message string, start time.Time, err error, remediation string) CheckResult {
	return CheckResult{
		Status:    "fail",
		Message:   message,
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]any{
			"error":       err.Error(),
			"remediation": remediation,
		},
	}
}

// classifyDBError turns common pgx failure text into an operator-facing
// message and remediation hint.
func classifyDBError(err error, timedOut bool) (string, string) {
	if timedOut {
		return "Database query timed out after 2 seconds",
			"Check PostgreSQL performance, network latency, or increase the timeout"
	}
	text := err.Error()
	switch {
	case strings.Contains(text, "connection refused"):
		return "Database connection refused",
			"Verify PostgreSQL is running and DATABASE_URL host/port are correct"
	case strings.Contains(text, "no such host"), strings.Contains(text, "dial tcp"):
		return "Cannot reach database host",
			"Check DATABASE_URL hostname and network connectivity"
	case strings.Contains(text, "authentication failed"), strings.Contains(text, "password"):
		return "Database authentication failed",
			"Verify DATABASE_URL username and password are correct"
	case strings.Contains(text, "does not exist"):
		return "Database does not exist",
			"Create the database or check the DATABASE_URL database name"
	default:
		return "Database query failed",
			"Check DATABASE_URL and the PostgreSQL service status"
	}
}

// checkDatabase verifies connectivity with a round-trip query and reports
// pool utilization.
func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{
			Status:  "fail",
			Message: "Database pool not initialized",
			Details: map[string]any{
				"remediation": "Check that DATABASE_URL is set correctly and PostgreSQL is running",
			},
		}
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var one int
	if err := h.pool.QueryRow(dbCtx, "SELECT 1").Scan(&one); err != nil {
		timedOut := ctx.Err() == context.DeadlineExceeded || dbCtx.Err() == context.DeadlineExceeded
		message, remediation := classifyDBError(err, timedOut)
		return failCheck(message, start, err, remediation)
	}

	stats := h.pool.Stat()
	return CheckResult{
		Status:    "pass",
		Message:   "PostgreSQL connection successful",
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]any{
			"max_connections":      stats.MaxConns(),
			"total_connections":    stats.TotalConns(),
			"idle_connections":     stats.IdleConns(),
			"acquired_connections": stats.AcquiredConns(),
		},
	}
}

// checkMigrations reads the latest row of schema_migrations. A dirty flag
// means a migration died mid-flight and the schema state is unknown.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.pool == nil {
		return CheckResult{
			Status:  "fail",
			Message: "Database pool not initialized",
			Details: map[string]any{
				"remediation": "Check that DATABASE_URL is set correctly and PostgreSQL is running",
			},
		}
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		version int64
		dirty   bool
	)
	row := h.pool.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`)
	if err := row.Scan(&version, &dirty); err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return failCheck("Migrations table not found", start, err,
				"Run database migrations first: server migrate up")
		}
		return failCheck("Failed to query migration version", start, err,
			"Verify migrations have been applied and schema_migrations table exists")
	}

	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: time.Since(start).Milliseconds(),
			Details: map[string]any{
				"version":     version,
				"dirty":       true,
				"remediation": "Migration failed mid-transaction. Force the version back and re-run",
				"action":      "Do NOT run new migrations until this is resolved",
			},
		}
	}

	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: time.Since(start).Milliseconds(),
		Details: map[string]any{
			"version": version,
			"dirty":   false,
		},
	}
}

// checkJobQueue verifies the River queue when it is running. The queue only
// exists when confirmation email is configured, so a missing client or an
// unmigrated river_job table is a warning rather than a failure.
func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if h.riverClient == nil {
		return CheckResult{
			Status:  "warn",
			Message: "Job queue not initialized (optional)",
		}
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	const existsQuery = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = 'river_job'
		)
	`
	var migrated bool
	if err := h.pool.QueryRow(jobCtx, existsQuery).Scan(&migrated); err != nil {
		return failCheck("Failed to check job queue table existence", start, err,
			"Database connection issue - check DATABASE_URL and PostgreSQL status")
	}
	if !migrated {
		return CheckResult{
			Status:    "warn",
			Message:   "River job queue table not found",
			LatencyMs: time.Since(start).Milliseconds(),
			Details: map[string]any{
				"remediation": "Run River migrations to create the river_job table",
				"note":        "Job queue is only required when confirmation email is enabled",
			},
		}
	}

	var activeJobs int64
	err := h.pool.QueryRow(jobCtx,
		`SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`,
		[]string{"available", "running"},
	).Scan(&activeJobs)
	if err != nil {
		return failCheck("Failed to query job queue", start, err,
			"Check database connectivity and river_job table permissions")
	}

	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: time.Since(start).Milliseconds(),
		Details:   map[string]any{"active_jobs": activeJobs},
	}
}

// Healthz is the liveness probe. It answers as long as the process serves.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, "ok")
	})
}

// Readyz is the readiness probe.
func Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
