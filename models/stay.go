package models

import (
	"time"
)

type StayStatus string

const (
	StayActive          StayStatus = "active"
	StayPendingCheckout StayStatus = "pending_checkout"
	StayFinished        StayStatus = "finished"
)

// OccupyingStayStatuses are the statuses that hold a room. A room has at most one
// stay in these statuses at any time.
var OccupyingStayStatuses = []StayStatus{StayActive, StayPendingCheckout}

// Stay is the physical occupancy of one room for one reservation.
// CheckOutAt stays nil while the guest is in house; ExpectedCheckOut is the contracted
// departure date copied from the assignment.
type Stay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ReservationID    uint       `gorm:"index;column:reservation_id" json:"reservation_id"`
	RoomID           uint       `gorm:"index;column:room_id" json:"room_id"`
	AssignmentID     uint       `gorm:"index;column:assignment_id" json:"assignment_id"`
	CheckInAt        time.Time  `gorm:"column:check_in_at" json:"check_in_at"`
	ExpectedCheckOut *time.Time `gorm:"column:expected_check_out" json:"expected_check_out,omitempty"`
	CheckOutAt       *time.Time `gorm:"column:check_out_at" json:"check_out_at,omitempty"`
	Status           StayStatus `gorm:"column:status;size:32;index" json:"status"`

	Nights []Night `gorm:"foreignKey:StayID" json:"nights,omitempty"`
}

func (s Stay) Occupying() bool {
	switch s.Status {
	case StayActive, StayPendingCheckout:
		return true
	case StayFinished:
		return false
	}
	return false
}
