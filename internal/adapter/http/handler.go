package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shopspring/decimal"

	"github.com/neomorfeo/studiobook/internal/app"
	"github.com/neomorfeo/studiobook/internal/domain"
)

// ActorHeaders identify the caller. Authentication happens upstream; the
// headers are trusted as given.
type ActorHeaders struct {
	ActorID   string `header:"X-Actor-ID" required:"true" minLength:"1" doc:"Caller identifier"`
	ActorRole string `header:"X-Actor-Role" enum:"coordinator,photographer,editor,admin" default:"coordinator" doc:"Caller role"`
}

func (h ActorHeaders) actor() domain.Actor {
	return domain.Actor{ID: h.ActorID, Role: domain.ActorRole(h.ActorRole)}
}

// ProblemError is an RFC 9457 problem with a stable machine-readable code.
type ProblemError struct {
	huma.ErrorModel
	Code   string            `json:"code,omitempty" doc:"Stable error code"`
	Values map[string]string `json:"values,omitempty" doc:"Inputs that failed the check"`
}

// Register adds all booking and catalog routes to the Huma API.
func Register(api huma.API, svc *app.BookingService, catalog *app.CatalogService) {
	registerBookings(api, svc)
	registerCatalog(api, catalog)
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrOfferingNotFound),
		errors.Is(err, domain.ErrBundleNotFound),
		errors.Is(err, domain.ErrLineItemNotFound),
		errors.Is(err, domain.ErrAssignmentNotFound):
		return problem(http.StatusNotFound, "not_found", err.Error(), nil)
	}

	var guard *domain.GuardViolationError
	if errors.As(err, &guard) {
		return problem(http.StatusUnprocessableEntity, guard.Code(), guard.Message, guard.Values)
	}

	var illegal *domain.IllegalTransitionError
	if errors.As(err, &illegal) {
		return problem(http.StatusUnprocessableEntity, illegal.Code(), illegal.Error(), nil)
	}

	var conflict *domain.ResourceConflictError
	if errors.As(err, &conflict) {
		return problem(http.StatusConflict, conflict.Code(), conflict.Error(), map[string]string{
			"conflict_booking_id": conflict.ConflictBookingID,
		})
	}

	var concurrent *domain.ConcurrencyConflictError
	if errors.As(err, &concurrent) {
		return problem(http.StatusConflict, concurrent.Code(), concurrent.Error(), nil)
	}

	var invalid *domain.InvalidInputError
	if errors.As(err, &invalid) {
		return problem(http.StatusBadRequest, invalid.Code(), invalid.Error(), map[string]string{"field": invalid.Field})
	}

	var dep *domain.DependencyError
	if errors.As(err, &dep) {
		return problem(http.StatusServiceUnavailable, dep.Code(), dep.Error(), nil)
	}

	var invariant *domain.InvariantViolationError
	if errors.As(err, &invariant) {
		return problem(http.StatusInternalServerError, invariant.Code(), "internal server error", nil)
	}

	return huma.Error500InternalServerError("internal server error")
}

func problem(status int, code, detail string, values map[string]string) *ProblemError {
	return &ProblemError{
		ErrorModel: huma.ErrorModel{
			Title:  http.StatusText(status),
			Status: status,
			Detail: detail,
		},
		Code:   code,
		Values: values,
	}
}

// parseMoney reads a decimal amount from a request field.
func parseMoney(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, huma.Error400BadRequest("invalid " + field + ": not a decimal amount")
	}
	return d, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, huma.Error400BadRequest("invalid " + field + ": want YYYY-MM-DD")
	}
	return d, nil
}

func parseInterval(start, end time.Time) (domain.Interval, error) {
	iv := domain.Interval{Start: start.UTC(), End: end.UTC()}
	if !iv.Valid() {
		return domain.Interval{}, huma.Error400BadRequest("invalid window: start must be before end")
	}
	return iv, nil
}
