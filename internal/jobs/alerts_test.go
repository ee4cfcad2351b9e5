package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river/rivertype"
)

func TestFailureHandler_ForwardsOnlyFinalFailures(t *testing.T) {
	var alerted []int64
	handler := NewFailureHandler(nil, func(_ context.Context, job *rivertype.JobRow, _ error) {
		alerted = append(alerted, job.ID)
	})

	retryable := &rivertype.JobRow{ID: 1, Kind: JobKindRegistrationEmail, Attempt: 1, MaxAttempts: 5}
	handler.HandleError(context.Background(), retryable, errors.New("provider timeout"))
	if len(alerted) != 0 {
		t.Fatalf("retryable failure should not alert, got %v", alerted)
	}

	final := &rivertype.JobRow{ID: 2, Kind: JobKindRegistrationEmail, Attempt: 5, MaxAttempts: 5}
	handler.HandleError(context.Background(), final, errors.New("provider timeout"))
	if len(alerted) != 1 || alerted[0] != 2 {
		t.Fatalf("final failure should alert with job id 2, got %v", alerted)
	}
}

func TestFailureHandler_PanicAlwaysForwards(t *testing.T) {
	var got error
	handler := NewFailureHandler(nil, func(_ context.Context, _ *rivertype.JobRow, err error) {
		got = err
	})

	job := &rivertype.JobRow{ID: 3, Kind: JobKindRegistrationEmail, Attempt: 1, MaxAttempts: 5}
	handler.HandlePanic(context.Background(), job, "nil dereference", "stack")
	if got == nil {
		t.Fatal("panic should always forward to the alert func")
	}
}

func TestFailureHandler_NilNotify(t *testing.T) {
	handler := NewFailureHandler(nil, nil)
	job := &rivertype.JobRow{ID: 4, Kind: JobKindRegistrationEmail, Attempt: 5, MaxAttempts: 5}

	// Must not panic without a logger or notify func.
	handler.HandleError(context.Background(), job, errors.New("boom"))
	handler.HandlePanic(context.Background(), job, "boom", "stack")
}
