package domain

// IntentType names a side effect requested by a committed change.
type IntentType string

const (
	IntentBookingCreated       IntentType = "booking.created"
	IntentBookingNegotiation   IntentType = "booking.negotiation"
	IntentBookingPreScheduled  IntentType = "booking.pre_scheduled"
	IntentBookingConfirmed     IntentType = "booking.confirmed"
	IntentBookingAssigned      IntentType = "booking.assigned"
	IntentBookingAttended      IntentType = "booking.attended"
	IntentBookingInEditing     IntentType = "booking.in_editing"
	IntentBookingReady         IntentType = "booking.ready_for_delivery"
	IntentBookingCompleted     IntentType = "booking.completed"
	IntentBookingCanceled      IntentType = "booking.canceled"
	IntentBookingOverridden    IntentType = "booking.overridden"
	IntentPaymentRecorded      IntentType = "payment.recorded"
	IntentRefundIssued         IntentType = "payment.refund_issued"
	IntentResourceAssigned     IntentType = "resource.assigned"
	IntentResourceReleased     IntentType = "resource.released"
	IntentEditingQueueEnqueued IntentType = "editing.queued"
)

// Intent is an instruction for the notification dispatcher. It is emitted
// by a change and delivered only after that change is committed.
type Intent struct {
	Type         IntentType
	BookingID    string
	RecipientRef string
	Data         map[string]string
}
