// Package queue defines the booking events exchanged over the message
// broker together with the RabbitMQ publisher and consumer.
package queue

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Event types published by the booking service.
const (
	EventReservationCreated   = "reservation.created"
	EventTicketIssued         = "ticket.issued"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationModified  = "reservation.modified"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	Type          string   `json:"type"`
	ReservationID int64    `json:"reservation_id"`
	Reference     string   `json:"reference,omitempty"`
	UserID        int64    `json:"user_id,omitempty"`
	FlightID      int64    `json:"flight_id,omitempty"`
	TicketIDs     []int64  `json:"ticket_ids,omitempty"`
	Seats         []string `json:"seats,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}

// Encode serializes the event as JSON.
func (e BookingEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses a message body produced by Encode.
func DecodeEvent(body []byte) (BookingEvent, error) {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return BookingEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return BookingEvent{}, fmt.Errorf("event without type")
	}
	return ev, nil
}
