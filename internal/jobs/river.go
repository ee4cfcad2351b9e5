package jobs

import (
	"log/slog"
	"time"

	"github.com/campusreg/server/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
)

const JobKindRegistrationEmail = "registration_email"

// QueueEmail isolates confirmation sends from whatever lands on the default
// queue, so its worker count can track the mail provider's rate limits.
const QueueEmail = "email"

// RegistrationEmailMaxAttempts caps confirmation email attempts unless
// JOBS_RETRY_EMAIL overrides it.
const RegistrationEmailMaxAttempts = 5

const (
	emailRetryBase      = 1 * time.Minute
	emailRetryCap       = 30 * time.Minute
	defaultEmailWorkers = 5
)

// RetryPolicy implements river's ClientRetryPolicy. Failed jobs wait Base
// after the first attempt, doubling each time up to Cap.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

// NewRetryPolicy returns the confirmation email schedule: 1m, 2m, 4m, 8m,
// capped at 30m between attempts.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: RegistrationEmailMaxAttempts,
		Base:        emailRetryBase,
		Cap:         emailRetryCap,
	}
}

// NextRetry determines when a failed job runs again, counting from the
// attempt that just failed.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	from := time.Now()
	if job.AttemptedAt != nil {
		from = *job.AttemptedAt
	}
	return from.Add(p.backoff(job.Attempt))
}

func (p *RetryPolicy) backoff(attempt int) time.Duration {
	if p == nil || p.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base << (attempt - 1)
	if delay <= 0 || (p.Cap > 0 && delay > p.Cap) {
		// Shift overflow lands here too.
		return p.Cap
	}
	return delay
}

// InsertOptsForKind returns the insert options callers should enqueue a job
// of the given kind with.
func InsertOptsForKind(kind string) river.InsertOpts {
	opts := river.InsertOpts{MaxAttempts: RegistrationEmailMaxAttempts}
	if kind == JobKindRegistrationEmail {
		opts.Queue = QueueEmail
	}
	return opts
}

// NewClientConfig builds a River client configuration. cfg.RetryEmail caps
// confirmation attempts and cfg.EmailWorkers sizes the email queue.
func NewClientConfig(cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) *river.Config {
	policy := NewRetryPolicy()
	if cfg.RetryEmail > 0 {
		policy.MaxAttempts = cfg.RetryEmail
	}

	emailWorkers := cfg.EmailWorkers
	if emailWorkers <= 0 {
		emailWorkers = defaultEmailWorkers
	}

	riverConfig := &river.Config{
		Workers:     workers,
		RetryPolicy: policy,
		MaxAttempts: policy.MaxAttempts,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			QueueEmail:         {MaxWorkers: emailWorkers},
		},
		Hooks: hooks,
	}
	if logger != nil {
		riverConfig.Logger = logger
		riverConfig.ErrorHandler = NewFailureHandler(logger, nil)
	}
	return riverConfig
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, cfg config.JobsConfig, workers *river.Workers, logger *slog.Logger, hooks []rivertype.Hook) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(cfg, workers, logger, hooks))
}
