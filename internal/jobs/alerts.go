package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// AlertFunc receives job failures that exhausted their retry budget.
type AlertFunc func(ctx context.Context, job *rivertype.JobRow, err error)

// FailureHandler is the queue's ErrorHandler. Every failure is logged with
// its attempt count; only final failures are forwarded to Notify, so an
// alert means a confirmation email was dropped for good.
type FailureHandler struct {
	Logger *slog.Logger
	Notify AlertFunc
}

func NewFailureHandler(logger *slog.Logger, notify AlertFunc) *FailureHandler {
	return &FailureHandler{
		Logger: logger,
		Notify: notify,
	}
}

func (h *FailureHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	final := job.Attempt >= job.MaxAttempts
	if h.Logger != nil {
		h.Logger.Error("job failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"queue", job.Queue,
			"attempt", job.Attempt,
			"max_attempts", job.MaxAttempts,
			"final", final,
			"error", err,
		)
	}
	if final && h.Notify != nil {
		h.Notify(ctx, job, err)
	}
	return nil
}

func (h *FailureHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	panicErr := fmt.Errorf("panic: %v", panicVal)
	if h.Logger != nil {
		h.Logger.Error("job panicked",
			"job_id", job.ID,
			"kind", job.Kind,
			"queue", job.Queue,
			"attempt", job.Attempt,
			"error", panicErr,
			"trace", trace,
		)
	}
	if h.Notify != nil {
		h.Notify(ctx, job, panicErr)
	}
	return nil
}
