package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// Compile-time check: Dispatcher implements domain.Dispatcher.
var _ domain.Dispatcher = (*Dispatcher)(nil)

// IntentJobArgs carries one side-effect intent through the queue.
// River serializes this as JSON into its job queue table. It is a complete
// copy of the intent, so the worker never needs to query the booking.
type IntentJobArgs struct {
	Type         string            `json:"type"`
	BookingID    string            `json:"booking_id"`
	RecipientRef string            `json:"recipient_ref"`
	Data         map[string]string `json:"data,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (IntentJobArgs) Kind() string { return "booking.intent" }

// Intent converts the job back into a domain intent.
func (a IntentJobArgs) Intent() domain.Intent {
	return domain.Intent{
		Type:         domain.IntentType(a.Type),
		BookingID:    a.BookingID,
		RecipientRef: a.RecipientRef,
		Data:         a.Data,
	}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Dispatcher implements domain.Dispatcher by enqueuing River jobs.
// Delivery happens later in IntentWorker, with River's retries.
type Dispatcher struct {
	client *Client
}

// NewDispatcher creates a dispatcher backed by the given River client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch enqueues an intent as an async job.
func (d *Dispatcher) Dispatch(ctx context.Context, intent domain.Intent) error {
	_, err := d.client.Insert(ctx, IntentJobArgs{
		Type:         string(intent.Type),
		BookingID:    intent.BookingID,
		RecipientRef: intent.RecipientRef,
		Data:         intent.Data,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing intent job: %w", err)
	}
	return nil
}
