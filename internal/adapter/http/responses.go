package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

// Money values are rendered as fixed two-decimal strings.

// BookingResponse is the API representation of a booking aggregate.
type BookingResponse struct {
	ID                 string               `json:"id" doc:"Unique identifier"`
	ClientID           string               `json:"client_id" doc:"Client reference"`
	Kind               string               `json:"kind" doc:"in_studio or on_location"`
	Status             string               `json:"status" doc:"Lifecycle state"`
	SessionDate        string               `json:"session_date" doc:"Session day (YYYY-MM-DD)"`
	WindowStart        *string              `json:"window_start,omitempty" doc:"Session start (RFC 3339)"`
	WindowEnd          *string              `json:"window_end,omitempty" doc:"Session end (RFC 3339)"`
	RoomID             string               `json:"room_id,omitempty" doc:"Room for in-studio sessions"`
	Location           string               `json:"location,omitempty" doc:"Address for on-location sessions"`
	Subtotal           string               `json:"subtotal"`
	Transportation     string               `json:"transportation"`
	Discount           string               `json:"discount"`
	Total              string               `json:"total"`
	DepositRequired    string               `json:"deposit_required"`
	NetPaid            string               `json:"net_paid"`
	Outstanding        string               `json:"outstanding"`
	PaymentDeadline    *string              `json:"payment_deadline,omitempty"`
	ChangesDeadline    *string              `json:"changes_deadline,omitempty"`
	EstimatedDelivery  *string              `json:"estimated_delivery,omitempty"`
	ActualDelivery     *string              `json:"actual_delivery,omitempty"`
	EditorID           string               `json:"editor_id,omitempty"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CanceledAt         *string              `json:"canceled_at,omitempty"`
	Version            int                  `json:"version" doc:"Optimistic concurrency version"`
	CreatedBy          string               `json:"created_by"`
	CreatedAt          string               `json:"created_at" doc:"Creation timestamp (RFC 3339)"`
	UpdatedAt          string               `json:"updated_at" doc:"Last update timestamp (RFC 3339)"`
	LineItems          []LineItemResponse   `json:"line_items"`
	Assignments        []AssignmentResponse `json:"assignments"`
	Payments           []PaymentResponse    `json:"payments"`
}

// LineItemResponse is a priced snapshot on a booking.
type LineItemResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind" doc:"offering, bundle or adjustment"`
	OfferingID  string `json:"offering_id,omitempty"`
	BundleID    string `json:"bundle_id,omitempty"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

// AssignmentResponse is a room or photographer binding.
type AssignmentResponse struct {
	ID            string `json:"id"`
	ResourceKind  string `json:"resource_kind"`
	ResourceID    string `json:"resource_id"`
	Role          string `json:"role"`
	Date          string `json:"date"`
	CoverageStart string `json:"coverage_start"`
	CoverageEnd   string `json:"coverage_end"`
	Attended      bool   `json:"attended"`
	Status        string `json:"status"`
}

// PaymentResponse is one money movement.
type PaymentResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Amount     string `json:"amount"`
	Method     string `json:"method"`
	Note       string `json:"note,omitempty"`
	RecordedBy string `json:"recorded_by"`
	RecordedAt string `json:"recorded_at"`
}

// IntentResponse echoes a side effect handed to the dispatcher.
type IntentResponse struct {
	Type         string `json:"type"`
	RecipientRef string `json:"recipient_ref,omitempty"`
}

// CommandResponse is returned by every booking mutation.
type CommandResponse struct {
	Booking BookingResponse  `json:"booking"`
	Intents []IntentResponse `json:"intents"`
}

// HistoryEntryResponse is one row of a booking's audit trail.
type HistoryEntryResponse struct {
	From      string `json:"from,omitempty"`
	To        string `json:"to"`
	ActorID   string `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
	Override  bool   `json:"override"`
	ChangedAt string `json:"changed_at"`
}

// OfferingResponse is a catalog offering.
type OfferingResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Status      string `json:"status"`
}

// BundleResponse is a catalog bundle.
type BundleResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	NominalPrice string `json:"nominal_price"`
	Scope        string `json:"scope"`
	Status       string `json:"status"`
}

// BundleComponentResponse is one offering in a bundle's composition.
type BundleComponentResponse struct {
	OfferingID string `json:"offering_id"`
	Quantity   int    `json:"quantity"`
}

func toBookingResponse(b domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		ClientID:           b.ClientID,
		Kind:               string(b.Kind),
		Status:             string(b.Status),
		SessionDate:        b.SessionDate.Format(time.DateOnly),
		RoomID:             b.RoomID,
		Location:           b.Location,
		Subtotal:           money(b.Subtotal),
		Transportation:     money(b.Transportation),
		Discount:           money(b.Discount),
		Total:              money(b.Total),
		DepositRequired:    money(b.DepositRequired),
		NetPaid:            money(b.NetPaid),
		Outstanding:        money(domain.OutstandingBalance(b.Total, b.NetPaid)),
		PaymentDeadline:    timestamp(b.PaymentDeadline),
		ChangesDeadline:    timestamp(b.ChangesDeadline),
		EstimatedDelivery:  timestamp(b.EstimatedDelivery),
		ActualDelivery:     timestamp(b.ActualDelivery),
		EditorID:           b.EditorID,
		CancellationReason: b.CancellationReason,
		CanceledAt:         timestamp(b.CanceledAt),
		Version:            b.Version,
		CreatedBy:          b.CreatedBy,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
		LineItems:          make([]LineItemResponse, len(b.LineItems)),
		Assignments:        make([]AssignmentResponse, len(b.Assignments)),
		Payments:           make([]PaymentResponse, len(b.Payments)),
	}
	if b.Window != nil {
		resp.WindowStart = timestamp(&b.Window.Start)
		resp.WindowEnd = timestamp(&b.Window.End)
	}

	for i, li := range b.LineItems {
		kind, offeringID, bundleID := domain.SourceParts(li.Source)
		resp.LineItems[i] = LineItemResponse{
			ID:          li.ID,
			Kind:        string(kind),
			OfferingID:  offeringID,
			BundleID:    bundleID,
			Code:        li.Code,
			Name:        li.Name,
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitPrice:   money(li.UnitPrice),
			Subtotal:    money(li.Subtotal),
		}
	}
	for i, a := range b.Assignments {
		resp.Assignments[i] = AssignmentResponse{
			ID:            a.ID,
			ResourceKind:  string(a.ResourceKind),
			ResourceID:    a.ResourceID,
			Role:          string(a.Role),
			Date:          a.Date.Format(time.DateOnly),
			CoverageStart: a.Coverage.Start.Format(time.RFC3339),
			CoverageEnd:   a.Coverage.End.Format(time.RFC3339),
			Attended:      a.Attended,
			Status:        string(a.Status),
		}
	}
	for i, p := range b.Payments {
		resp.Payments[i] = PaymentResponse{
			ID:         p.ID,
			Type:       string(p.Type),
			Amount:     money(p.Amount),
			Method:     p.Method,
			Note:       p.Note,
			RecordedBy: p.RecordedBy,
			RecordedAt: p.RecordedAt.Format(time.RFC3339),
		}
	}
	return resp
}

func toCommandResponse(r app.Result) CommandResponse {
	intents := make([]IntentResponse, len(r.Intents))
	for i, in := range r.Intents {
		intents[i] = IntentResponse{Type: string(in.Type), RecipientRef: in.RecipientRef}
	}
	return CommandResponse{Booking: toBookingResponse(r.Booking), Intents: intents}
}

func toOfferingResponse(o domain.Offering) OfferingResponse {
	return OfferingResponse{
		ID:          o.ID,
		Code:        o.Code,
		Name:        o.Name,
		Description: o.Description,
		UnitPrice:   money(o.UnitPrice),
		Status:      string(o.Status),
	}
}

func toBundleResponse(b domain.Bundle) BundleResponse {
	return BundleResponse{
		ID:           b.ID,
		Code:         b.Code,
		Name:         b.Name,
		Description:  b.Description,
		NominalPrice: money(b.NominalPrice),
		Scope:        string(b.Scope),
		Status:       string(b.Status),
	}
}

func toComponentResponses(components []domain.BundleComponent) []BundleComponentResponse {
	resp := make([]BundleComponentResponse, len(components))
	for i, c := range components {
		resp[i] = BundleComponentResponse{OfferingID: c.OfferingID, Quantity: c.Quantity}
	}
	return resp
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
