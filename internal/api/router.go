package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/campusreg/server/internal/api/handlers"
	"github.com/campusreg/server/internal/api/middleware"
	"github.com/campusreg/server/internal/config"
	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/campusreg/server/internal/email"
	"github.com/campusreg/server/internal/jobs"
	"github.com/campusreg/server/internal/metrics"
	"github.com/campusreg/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

// Router bundles the HTTP handler with the background-job client so the serve
// command can manage both lifecycles.
type Router struct {
	Handler     http.Handler
	RiverClient *river.Client[pgx.Tx]
}

// NewRouter wires repositories, services, handlers, and the middleware chain
// over an existing connection pool. The River client is only created when
// email is enabled; everything else runs without it.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, version, gitCommit, buildDate string) (*Router, error) {
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, fmt.Errorf("repository init: %w", err)
	}

	emailService, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("email service init: %w", err)
	}

	var riverClient *river.Client[pgx.Tx]
	var notifier registrations.Notifier
	if cfg.Email.Enabled {
		// River logs through slog, separate from the zerolog request logs.
		slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		workers := jobs.NewWorkers(repo.Registrations(), emailService)
		hooks := []rivertype.Hook{metrics.NewRiverMetricsHook()}
		riverClient, err = jobs.NewClient(pool, cfg.Jobs, workers, slogLogger, hooks)
		if err != nil {
			return nil, fmt.Errorf("river client init: %w", err)
		}
		notifier = jobs.NewEmailNotifier(riverClient, cfg.Jobs.RetryEmail)
	}

	studentsService := students.NewService(repo.Students(), logger)
	coursesService := courses.NewService(repo.Courses(), logger)
	registrationsService := registrations.NewService(repo.Registrations(), repo.Students(), repo.Courses(), notifier, logger)

	studentsHandler := handlers.NewStudentsHandler(studentsService, cfg.Environment)
	coursesHandler := handlers.NewCoursesHandler(coursesService, cfg.Environment)
	registrationsHandler := handlers.NewRegistrationsHandler(registrationsService, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(pool, riverClient, version, gitCommit)

	mux := http.NewServeMux()
	mux.Handle("/health", healthChecker.Health())
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/version", VersionHandler(version, gitCommit, buildDate))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/api/v1/openapi.json", OpenAPIHandler())

	mux.Handle("/api/v1/students", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(studentsHandler.List),
		http.MethodPost: http.HandlerFunc(studentsHandler.Create),
	}))
	mux.Handle("/api/v1/students/{id}", http.HandlerFunc(studentsHandler.Get))
	mux.Handle("/api/v1/courses", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(coursesHandler.List),
		http.MethodPost: http.HandlerFunc(coursesHandler.Create),
	}))
	mux.Handle("/api/v1/courses/{id}", http.HandlerFunc(coursesHandler.Get))
	mux.Handle("/api/v1/registrations", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(registrationsHandler.Create),
	}))

	var handler http.Handler = mux
	handler = middleware.DefaultRequestSize()(handler)
	handler = middleware.RateLimit(cfg.RateLimit)(handler)
	if cfg.Tracing.Enabled {
		handler = middleware.Tracing(handler)
	}
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	handler = middleware.SecurityHeaders(cfg.Environment == "production")(handler)

	return &Router{Handler: handler, RiverClient: riverClient}, nil
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
