package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/email"
	"github.com/campusreg/server/internal/metrics"
	"github.com/riverqueue/river"
)

// RegistrationEmailArgs identifies the registration to confirm. The worker
// re-reads the row so the email always reflects the committed state, not
// whatever the enqueuing request had in memory.
type RegistrationEmailArgs struct {
	RegistrationID int64 `json:"registration_id"`
}

func (RegistrationEmailArgs) Kind() string { return JobKindRegistrationEmail }

// ConfirmationSender is the slice of the email service the worker needs.
type ConfirmationSender interface {
	Enabled() bool
	SendRegistrationConfirmation(ctx context.Context, to string, data email.ConfirmationData) error
}

// RegistrationEmailWorker delivers the confirmation email for a registration.
type RegistrationEmailWorker struct {
	river.WorkerDefaults[RegistrationEmailArgs]
	Repo  registrations.Repository
	Email ConfirmationSender
}

func (RegistrationEmailWorker) Kind() string { return JobKindRegistrationEmail }

func (w RegistrationEmailWorker) Work(ctx context.Context, job *river.Job[RegistrationEmailArgs]) error {
	if w.Repo == nil {
		return fmt.Errorf("registrations repository not configured")
	}
	if w.Email == nil {
		return fmt.Errorf("email service not configured")
	}
	if job == nil {
		return fmt.Errorf("registration email job missing")
	}

	if !w.Email.Enabled() {
		// Delivery was switched off between enqueue and work.
		metrics.RegistrationEmailsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	reg, err := w.Repo.GetDetailed(ctx, job.Args.RegistrationID)
	if err != nil {
		if errors.Is(err, registrations.ErrNotFound) {
			// The row is gone and will not reappear on retry.
			metrics.RegistrationEmailsTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		return fmt.Errorf("load registration %d: %w", job.Args.RegistrationID, err)
	}
	if reg.Student == nil || reg.Course == nil {
		return fmt.Errorf("registration %d read back without student or course", reg.ID)
	}

	data := email.ConfirmationData{
		StudentName:  reg.Student.Name,
		CourseTitle:  reg.Course.Title,
		CourseCode:   reg.Course.Code,
		RegisteredAt: reg.RegisteredAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if err := w.Email.SendRegistrationConfirmation(ctx, reg.Student.Email, data); err != nil {
		metrics.RegistrationEmailsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("send confirmation for registration %d: %w", reg.ID, err)
	}

	metrics.RegistrationEmailsTotal.WithLabelValues("sent").Inc()
	return nil
}

// NewWorkers registers the worker set for the job queue.
func NewWorkers(repo registrations.Repository, sender ConfirmationSender) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[RegistrationEmailArgs](workers, RegistrationEmailWorker{Repo: repo, Email: sender})
	return workers
}
