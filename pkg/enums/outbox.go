package enums

// OutboxEventType enumerates the domain events written to the outbox.
type OutboxEventType string

const (
	EventBookingCreated   OutboxEventType = "booking.created"
	EventBookingConfirmed OutboxEventType = "booking.confirmed"
	EventBookingCancelled OutboxEventType = "booking.cancelled"
	EventBookingRefunded  OutboxEventType = "booking.refunded"
	EventBookingExpired   OutboxEventType = "booking.expired"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateBooking OutboxAggregateType = "booking"
	AggregateRoom    OutboxAggregateType = "room"
)
