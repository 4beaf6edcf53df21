package paymongo

import (
	"encoding/json"
	"fmt"
)

// Webhook event types the platform reacts to. Anything else is acknowledged
// and dropped.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Event is a decoded webhook delivery.
type Event struct {
	ID       string
	Type     string
	Resource Resource
}

// Resource is the payment resource embedded in an event, typically a
// payment intent carrying our booking reference in its metadata.
type Resource struct {
	ID       string
	Metadata map[string]string
}

// BookingID extracts the booking reference attached when the payment was
// created. Empty when the payment was not initiated by this platform.
func (e Event) BookingID() string {
	return e.Resource.Metadata["bookingId"]
}

type eventEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					Metadata map[string]string `json:"metadata"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseEvent decodes the raw webhook body into a typed event.
func ParseEvent(body []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, fmt.Errorf("paymongo: decoding event: %w", err)
	}
	if envelope.Data.ID == "" || envelope.Data.Attributes.Type == "" {
		return Event{}, fmt.Errorf("paymongo: event missing id or type")
	}

	return Event{
		ID:   envelope.Data.ID,
		Type: envelope.Data.Attributes.Type,
		Resource: Resource{
			ID:       envelope.Data.Attributes.Data.ID,
			Metadata: envelope.Data.Attributes.Data.Attributes.Metadata,
		},
	}, nil
}
