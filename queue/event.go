package queue

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventStayCheckedIn         = "stay.checked_in"
	EventPaymentRecorded       = "payment.recorded"
	EventPaymentReversed       = "payment.reversed"
	EventReservationCheckedOut = "reservation.checked_out"
	EventReservationCancelled  = "reservation.cancelled"
)

// LedgerEvent is published after a ledger transaction commits. Amounts are minor units.
type LedgerEvent struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	ReservationID uint           `json:"reservation_id"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Data          map[string]any `json:"data,omitempty"`
}

func NewLedgerEvent(eventType string, reservationID uint, at time.Time, data map[string]any) LedgerEvent {
	return LedgerEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		ReservationID: reservationID,
		OccurredAt:    at.UTC(),
		Data:          data,
	}
}
