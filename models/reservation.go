package models

import (
	"time"

	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationConfirmed  ReservationStatus = "confirmed"
	ReservationCheckedIn  ReservationStatus = "checked_in"
	ReservationCheckedOut ReservationStatus = "checked_out"
	ReservationCancelled  ReservationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Reservation owns its room assignments, and through its stays, its nights.
// The LodgingTotal..PaymentStatus columns are a cache rebuilt by the financial sync;
// nothing else writes them.
type Reservation struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CustomerID    uint              `gorm:"index;column:customer_id" json:"customer_id"`
	ReferenceCode string            `gorm:"column:reference_code;size:64" json:"reference_code,omitempty"`
	Status        ReservationStatus `gorm:"column:status;size:32;index" json:"status"`
	CheckInDate   time.Time         `gorm:"column:check_in_date" json:"check_in_date"`
	CheckOutDate  time.Time         `gorm:"column:check_out_date" json:"check_out_date"`
	CheckedInAt   *time.Time        `gorm:"column:checked_in_at" json:"checkedInAt,omitempty"`

	// TotalAmount is the contracted lodging total in minor units (0 = not agreed).
	TotalAmount int64 `gorm:"column:total_amount;default:0" json:"total_amount"`

	LodgingTotal  int64         `gorm:"column:lodging_total;default:0" json:"lodging_total"`
	PaymentsTotal int64         `gorm:"column:payments_total;default:0" json:"payments_total"`
	BalanceDue    int64         `gorm:"column:balance_due;default:0" json:"balance_due"`
	PaymentStatus PaymentStatus `gorm:"column:payment_status;size:16;default:pending" json:"payment_status"`

	Customer Customer         `gorm:"foreignKey:CustomerID;references:ID" json:"customer,omitempty"`
	Rooms    []RoomAssignment `gorm:"foreignKey:ReservationID" json:"rooms"`
}
