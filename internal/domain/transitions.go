package domain

// Transition defines a legal state change from Src to Dst.
type Transition struct {
	Src Status
	Dst Status
}

// Transitions defines all legal changes in the booking lifecycle.
// This is domain knowledge consumed by the FSM adapter; guards and actions
// live in the application layer.
var Transitions = []Transition{
	{Src: StatusRequest, Dst: StatusNegotiation},
	{Src: StatusNegotiation, Dst: StatusPreScheduled},
	{Src: StatusPreScheduled, Dst: StatusConfirmed},
	{Src: StatusPreScheduled, Dst: StatusNegotiation},
	{Src: StatusConfirmed, Dst: StatusAssigned},
	{Src: StatusConfirmed, Dst: StatusNegotiation},
	{Src: StatusAssigned, Dst: StatusAttended},
	{Src: StatusAttended, Dst: StatusInEditing},
	{Src: StatusInEditing, Dst: StatusReadyForDelivery},
	{Src: StatusReadyForDelivery, Dst: StatusCompleted},

	{Src: StatusRequest, Dst: StatusCanceled},
	{Src: StatusNegotiation, Dst: StatusCanceled},
	{Src: StatusPreScheduled, Dst: StatusCanceled},
	{Src: StatusConfirmed, Dst: StatusCanceled},
	{Src: StatusAssigned, Dst: StatusCanceled},
	{Src: StatusAttended, Dst: StatusCanceled},
	{Src: StatusInEditing, Dst: StatusCanceled},
	{Src: StatusReadyForDelivery, Dst: StatusCanceled},
}

// IsLegal reports whether the table contains (from, to).
func IsLegal(from, to Status) bool {
	for _, t := range Transitions {
		if t.Src == from && t.Dst == to {
			return true
		}
	}
	return false
}
