package river

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// Sender delivers an intent to the outside world (email, SMS, chat).
type Sender interface {
	Send(ctx context.Context, intent domain.Intent) error
}

// LogSender is the default Sender: it records each intent in the log.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the intent.
func (s LogSender) Send(ctx context.Context, intent domain.Intent) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"intent_type", string(intent.Type),
		"booking_id", intent.BookingID,
		"recipient", intent.RecipientRef,
	)
	return nil
}

// IntentWorker hands queued intents to a Sender. A Sender error fails the
// job and River retries it with backoff.
type IntentWorker struct {
	river.WorkerDefaults[IntentJobArgs]

	sender Sender
}

// NewIntentWorker creates a worker delivering through sender.
func NewIntentWorker(sender Sender) *IntentWorker {
	return &IntentWorker{sender: sender}
}

// Work delivers a single intent.
func (w *IntentWorker) Work(ctx context.Context, job *river.Job[IntentJobArgs]) error {
	slog.DebugContext(ctx, "delivering intent",
		"intent_type", job.Args.Type,
		"booking_id", job.Args.BookingID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	if err := w.sender.Send(ctx, job.Args.Intent()); err != nil {
		slog.WarnContext(ctx, "intent delivery failed",
			"intent_type", job.Args.Type,
			"booking_id", job.Args.BookingID,
			"attempt", job.Attempt,
			"error", err,
		)
		return fmt.Errorf("sending %s: %w", job.Args.Type, err)
	}
	return nil
}
