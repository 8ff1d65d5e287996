package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

// CommandOutput wraps the result of every booking mutation.
type CommandOutput struct {
	Body CommandResponse
}

// BookingOutput wraps a single booking.
type BookingOutput struct {
	Body BookingResponse
}

// --- Create Booking ---

type CreateBookingInput struct {
	ActorHeaders
	Body struct {
		ClientID    string     `json:"client_id" minLength:"1" doc:"Client reference"`
		Kind        string     `json:"kind" enum:"in_studio,on_location" doc:"Session kind"`
		SessionDate string     `json:"session_date" format:"date" doc:"Session day (YYYY-MM-DD)"`
		WindowStart *time.Time `json:"window_start,omitempty" doc:"Planned session start"`
		WindowEnd   *time.Time `json:"window_end,omitempty" doc:"Planned session end"`
		RoomID      string     `json:"room_id,omitempty" doc:"Room for in-studio sessions"`
		Location    string     `json:"location,omitempty" doc:"Address for on-location sessions"`
	}
}

// --- Get / List ---

type BookingPathInput struct {
	ID string `path:"id" doc:"Booking ID"`
}

type ListBookingsInput struct {
	Status   string `query:"status" required:"false" doc:"Filter by lifecycle state"`
	ClientID string `query:"client_id" required:"false" doc:"Filter by client"`
	From     string `query:"from" required:"false" doc:"Earliest session date (YYYY-MM-DD)"`
	To       string `query:"to" required:"false" doc:"Latest session date (YYYY-MM-DD)"`
	Limit    int    `query:"limit" required:"false" default:"50" minimum:"0" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" minimum:"0" doc:"Pagination offset"`
}

type ListBookingsOutput struct {
	Body []BookingResponse
}

type HistoryOutput struct {
	Body []HistoryEntryResponse
}

// --- Lifecycle ---

type TransitionInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Target    string `json:"target" enum:"request,negotiation,pre_scheduled,confirmed,assigned,attended,in_editing,ready_for_delivery,completed,canceled" doc:"Requested status"`
		Reason    string `json:"reason,omitempty" maxLength:"1000" doc:"Required when canceling"`
		Initiator string `json:"initiator,omitempty" enum:"client,company,force_majeure" doc:"Who asked for a cancellation"`
	}
}

type OverrideInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Target string `json:"target" enum:"request,negotiation,pre_scheduled,confirmed,assigned,attended,in_editing,ready_for_delivery,completed,canceled" doc:"Forced status"`
		Reason string `json:"reason" minLength:"1" maxLength:"1000" doc:"Why the override is needed"`
	}
}

// --- Line items and charges ---

type AttachOfferingInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		OfferingID string `json:"offering_id" minLength:"1"`
		Quantity   int    `json:"quantity,omitempty" minimum:"1" maximum:"10000" default:"1"`
	}
}

type AttachBundleInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		BundleID string `json:"bundle_id" minLength:"1"`
		Quantity int    `json:"quantity,omitempty" minimum:"1" maximum:"10000" default:"1" doc:"Multiplies every component quantity"`
	}
}

type AttachAdjustmentInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Code        string `json:"code" minLength:"1"`
		Description string `json:"description,omitempty"`
		Amount      string `json:"amount" pattern:"^-?[0-9]+(\\.[0-9]{1,2})?$" doc:"Signed amount; negative for credits"`
	}
}

type RemoveLineItemInput struct {
	ActorHeaders
	ID         string `path:"id" doc:"Booking ID"`
	LineItemID string `path:"lineItemID" doc:"Line item ID"`
}

type SetChargesInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Transportation string `json:"transportation,omitempty" pattern:"^[0-9]+(\\.[0-9]{1,2})?$" default:"0"`
		Discount       string `json:"discount,omitempty" pattern:"^[0-9]+(\\.[0-9]{1,2})?$" default:"0"`
	}
}

// --- Payments ---

type RecordPaymentInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Type   string `json:"type" enum:"deposit,balance,refund"`
		Amount string `json:"amount" pattern:"^[0-9]+(\\.[0-9]{1,2})?$" doc:"Positive amount"`
		Method string `json:"method" minLength:"1" doc:"Payment method, e.g. card or transfer"`
		Note   string `json:"note,omitempty"`
	}
}

// --- Resources ---

type AssignResourceInput struct {
	ActorHeaders
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Kind       string    `json:"kind" enum:"room,photographer"`
		ResourceID string    `json:"resource_id" minLength:"1"`
		Role       string    `json:"role,omitempty" enum:"lead,assistant,specialist,venue"`
		Start      time.Time `json:"start" doc:"Coverage start"`
		End        time.Time `json:"end" doc:"Coverage end"`
	}
}

type ReleaseResourceInput struct {
	ActorHeaders
	ID           string `path:"id" doc:"Booking ID"`
	AssignmentID string `path:"assignmentID" doc:"Assignment ID"`
}

type AvailabilityInput struct {
	Kind             string `query:"kind" required:"true" enum:"room,photographer"`
	ResourceID       string `query:"resource_id" required:"true"`
	Start            string `query:"start" required:"true" doc:"Interval start (RFC 3339)"`
	End              string `query:"end" required:"true" doc:"Interval end (RFC 3339)"`
	ExcludeBookingID string `query:"exclude_booking_id" required:"false" doc:"Ignore this booking's own assignments"`
}

type AvailabilityOutput struct {
	Body struct {
		Available bool `json:"available"`
	}
}

func command(result app.Result, err error) (*CommandOutput, error) {
	if err != nil {
		return nil, toHumaError(err)
	}
	return &CommandOutput{Body: toCommandResponse(result)}, nil
}

func registerBookings(api huma.API, svc *app.BookingService) {
	tags := []string{"Bookings"}

	huma.Register(api, huma.Operation{
		OperationID:   "create-booking",
		Method:        http.MethodPost,
		Path:          "/api/v1/bookings",
		Summary:       "Create a booking request",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateBookingInput) (*CommandOutput, error) {
		date, err := parseDate("session_date", input.Body.SessionDate)
		if err != nil {
			return nil, err
		}
		cmd := app.CreateBookingCmd{
			ClientID:    input.Body.ClientID,
			Kind:        domain.Kind(input.Body.Kind),
			SessionDate: date,
			RoomID:      input.Body.RoomID,
			Location:    input.Body.Location,
			Actor:       input.actor(),
		}
		if input.Body.WindowStart != nil || input.Body.WindowEnd != nil {
			if input.Body.WindowStart == nil || input.Body.WindowEnd == nil {
				return nil, huma.Error400BadRequest("window_start and window_end must be given together")
			}
			iv, err := parseInterval(*input.Body.WindowStart, *input.Body.WindowEnd)
			if err != nil {
				return nil, err
			}
			cmd.Window = &iv
		}
		return command(svc.CreateBooking(ctx, cmd))
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-booking",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Get a booking by ID",
		Tags:        tags,
	}, func(ctx context.Context, input *BookingPathInput) (*BookingOutput, error) {
		b, err := svc.GetByID(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BookingOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-bookings",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings",
		Summary:     "List bookings",
		Tags:        tags,
	}, func(ctx context.Context, input *ListBookingsInput) (*ListBookingsOutput, error) {
		filter := domain.ListFilter{
			ClientID: input.ClientID,
			Limit:    input.Limit,
			Offset:   input.Offset,
		}
		if input.Status != "" {
			s := domain.Status(input.Status)
			if !s.Valid() {
				return nil, huma.Error400BadRequest("unknown status " + input.Status)
			}
			filter.Status = &s
		}
		if input.From != "" {
			from, err := parseDate("from", input.From)
			if err != nil {
				return nil, err
			}
			filter.From = &from
		}
		if input.To != "" {
			to, err := parseDate("to", input.To)
			if err != nil {
				return nil, err
			}
			filter.To = &to
		}

		bookings, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]BookingResponse, len(bookings))
		for i, b := range bookings {
			resp[i] = toBookingResponse(b)
		}
		return &ListBookingsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-booking-history",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings/{id}/history",
		Summary:     "List a booking's status history",
		Tags:        tags,
	}, func(ctx context.Context, input *BookingPathInput) (*HistoryOutput, error) {
		entries, err := svc.History(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]HistoryEntryResponse, len(entries))
		for i, e := range entries {
			resp[i] = HistoryEntryResponse{
				From:      string(e.From),
				To:        string(e.To),
				ActorID:   e.ActorID,
				Reason:    e.Reason,
				Override:  e.Override,
				ChangedAt: e.ChangedAt.Format(time.RFC3339),
			}
		}
		return &HistoryOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/transitions",
		Summary:     "Move a booking to another status",
		Tags:        tags,
	}, func(ctx context.Context, input *TransitionInput) (*CommandOutput, error) {
		return command(svc.RequestTransition(ctx, app.TransitionCmd{
			BookingID: input.ID,
			Target:    domain.Status(input.Body.Target),
			Actor:     input.actor(),
			Reason:    input.Body.Reason,
			Initiator: domain.Initiator(input.Body.Initiator),
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "override-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/override",
		Summary:     "Force a booking into a status",
		Description: "Administrative escape hatch. Skips guards and actions; requires the admin role.",
		Tags:        tags,
	}, func(ctx context.Context, input *OverrideInput) (*CommandOutput, error) {
		return command(svc.Override(ctx, app.OverrideCmd{
			BookingID: input.ID,
			Target:    domain.Status(input.Body.Target),
			Actor:     input.actor(),
			Reason:    input.Body.Reason,
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-offering",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/line-items/offerings",
		Summary:     "Add a catalog offering to a booking",
		Tags:        tags,
	}, func(ctx context.Context, input *AttachOfferingInput) (*CommandOutput, error) {
		return command(svc.AttachOffering(ctx, input.ID, input.Body.OfferingID, input.Body.Quantity, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-bundle",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/line-items/bundles",
		Summary:     "Expand a bundle into a booking's line items",
		Tags:        tags,
	}, func(ctx context.Context, input *AttachBundleInput) (*CommandOutput, error) {
		return command(svc.AttachBundle(ctx, input.ID, input.Body.BundleID, input.Body.Quantity, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "attach-adjustment",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/line-items/adjustments",
		Summary:     "Add a manual adjustment line",
		Tags:        tags,
	}, func(ctx context.Context, input *AttachAdjustmentInput) (*CommandOutput, error) {
		amount, err := parseMoney("amount", input.Body.Amount)
		if err != nil {
			return nil, err
		}
		return command(svc.AttachAdjustment(ctx, input.ID, input.Body.Code, input.Body.Description, amount, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-line-item",
		Method:      http.MethodDelete,
		Path:        "/api/v1/bookings/{id}/line-items/{lineItemID}",
		Summary:     "Remove a line item",
		Tags:        tags,
	}, func(ctx context.Context, input *RemoveLineItemInput) (*CommandOutput, error) {
		return command(svc.RemoveLineItem(ctx, input.ID, input.LineItemID, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-charges",
		Method:      http.MethodPut,
		Path:        "/api/v1/bookings/{id}/charges",
		Summary:     "Set transportation and discount",
		Tags:        tags,
	}, func(ctx context.Context, input *SetChargesInput) (*CommandOutput, error) {
		transportation, err := parseMoney("transportation", input.Body.Transportation)
		if err != nil {
			return nil, err
		}
		discount, err := parseMoney("discount", input.Body.Discount)
		if err != nil {
			return nil, err
		}
		return command(svc.SetCharges(ctx, input.ID, transportation, discount, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/payments",
		Summary:     "Record a deposit, balance or refund",
		Tags:        tags,
	}, func(ctx context.Context, input *RecordPaymentInput) (*CommandOutput, error) {
		amount, err := parseMoney("amount", input.Body.Amount)
		if err != nil {
			return nil, err
		}
		return command(svc.RecordPayment(ctx, app.RecordPaymentCmd{
			BookingID: input.ID,
			Amount:    amount,
			Type:      domain.PaymentType(input.Body.Type),
			Method:    input.Body.Method,
			Note:      input.Body.Note,
			Actor:     input.actor(),
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-resource",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/assignments",
		Summary:     "Assign a room or photographer",
		Tags:        tags,
	}, func(ctx context.Context, input *AssignResourceInput) (*CommandOutput, error) {
		coverage, err := parseInterval(input.Body.Start, input.Body.End)
		if err != nil {
			return nil, err
		}
		return command(svc.AssignResource(ctx, app.AssignResourceCmd{
			BookingID:  input.ID,
			Kind:       domain.ResourceKind(input.Body.Kind),
			ResourceID: input.Body.ResourceID,
			Coverage:   coverage,
			Role:       domain.Role(input.Body.Role),
			Actor:      input.actor(),
		}))
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-resource",
		Method:      http.MethodDelete,
		Path:        "/api/v1/bookings/{id}/assignments/{assignmentID}",
		Summary:     "Release an assignment",
		Tags:        tags,
	}, func(ctx context.Context, input *ReleaseResourceInput) (*CommandOutput, error) {
		return command(svc.ReleaseResource(ctx, input.ID, input.AssignmentID, input.actor()))
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-availability",
		Method:      http.MethodGet,
		Path:        "/api/v1/availability",
		Summary:     "Check whether a resource is free",
		Tags:        []string{"Resources"},
	}, func(ctx context.Context, input *AvailabilityInput) (*AvailabilityOutput, error) {
		start, err := time.Parse(time.RFC3339, input.Start)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid start: want RFC 3339")
		}
		end, err := time.Parse(time.RFC3339, input.End)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid end: want RFC 3339")
		}
		interval, err := parseInterval(start, end)
		if err != nil {
			return nil, err
		}

		key := domain.ResourceKey{
			Kind:       domain.ResourceKind(input.Kind),
			ResourceID: input.ResourceID,
			Date:       domain.DateOf(interval.Start),
		}
		ok, err := svc.CheckAvailability(ctx, key, interval, input.ExcludeBookingID)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &AvailabilityOutput{}
		out.Body.Available = ok
		return out, nil
	})
}
