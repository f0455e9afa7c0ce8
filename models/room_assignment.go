package models

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentReserved  AssignmentStatus = "reserved"
	AssignmentOccupied  AssignmentStatus = "occupied"
	AssignmentReleased  AssignmentStatus = "released"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

// RoomAssignment is one room booked on a reservation for [CheckInDate, CheckOutDate).
// Dates are calendar dates stored as midnight UTC.
type RoomAssignment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	ReservationID uint             `gorm:"index;column:reservation_id" json:"reservation_id"`
	RoomID        uint             `gorm:"index;column:room_id" json:"room_id"`
	CheckInDate   time.Time        `gorm:"column:check_in_date;index" json:"check_in_date"`
	CheckOutDate  time.Time        `gorm:"column:check_out_date;index" json:"check_out_date"`
	NightlyRate   int64            `gorm:"column:nightly_rate;default:0" json:"nightly_rate"`
	Subtotal      int64            `gorm:"column:subtotal;default:0" json:"subtotal"`
	Nights        int              `gorm:"column:nights;default:0" json:"nights"`
	Status        AssignmentStatus `gorm:"column:status;size:32" json:"status"`

	Room Room `gorm:"foreignKey:RoomID;references:ID" json:"room,omitempty"`
}

// Blocking reports whether the assignment still holds its room.
func (a RoomAssignment) Blocking() bool {
	switch a.Status {
	case AssignmentReserved, AssignmentOccupied:
		return true
	case AssignmentReleased, AssignmentCancelled:
		return false
	}
	return false
}
