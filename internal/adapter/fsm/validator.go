package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/studiobook/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// events converts domain.Transitions into looplab/fsm EventDesc format.
// Each destination status doubles as the event name, so every
// non-terminal source that can cancel shares one "canceled" event.
var events = buildEvents()

func buildEvents() []loopfsm.EventDesc {
	grouped := make(map[domain.Status][]string)
	order := make([]domain.Status, 0)

	for _, t := range domain.Transitions {
		if _, exists := grouped[t.Dst]; !exists {
			order = append(order, t.Dst)
		}
		grouped[t.Dst] = append(grouped[t.Dst], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, dst := range order {
		out = append(out, loopfsm.EventDesc{
			Name: string(dst),
			Src:  grouped[dst],
			Dst:  string(dst),
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM per Apply call, initialized with the
// booking's current status, because looplab/fsm tracks state internally.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks that target is reachable from current in one step and
// returns it. Returns a *domain.IllegalTransitionError otherwise.
func (v *Validator) Apply(ctx context.Context, current, target domain.Status) (domain.Status, error) {
	machine := loopfsm.NewFSM(string(current), events, nil)

	if err := machine.Event(ctx, string(target)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.IllegalTransitionError{From: current, To: target}
		}
		return "", err
	}

	return domain.Status(machine.Current()), nil
}
