package jobs

import (
	"context"
	"fmt"

	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// EmailNotifier implements registrations.Notifier by enqueuing a confirmation
// job. Delivery happens in a worker, off the request path.
type EmailNotifier struct {
	client     *river.Client[pgx.Tx]
	insertOpts river.InsertOpts
}

// NewEmailNotifier builds the notifier. A positive maxAttempts overrides the
// default attempt budget for the confirmation job.
func NewEmailNotifier(client *river.Client[pgx.Tx], maxAttempts int) *EmailNotifier {
	opts := InsertOptsForKind(JobKindRegistrationEmail)
	if maxAttempts > 0 {
		opts.MaxAttempts = maxAttempts
	}
	return &EmailNotifier{client: client, insertOpts: opts}
}

func (n *EmailNotifier) RegistrationCreated(ctx context.Context, reg *registrations.Registration) error {
	if n == nil || n.client == nil {
		return fmt.Errorf("job queue not initialized")
	}
	if reg == nil {
		return fmt.Errorf("registration missing")
	}

	opts := n.insertOpts
	if _, err := n.client.Insert(ctx, RegistrationEmailArgs{RegistrationID: reg.ID}, &opts); err != nil {
		metrics.RegistrationEmailsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("enqueue registration email: %w", err)
	}

	metrics.RegistrationEmailsTotal.WithLabelValues("enqueued").Inc()
	return nil
}
