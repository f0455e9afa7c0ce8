package models

import "time"

// Night is one priced, independently payable night of a stay.
// Price is fixed at creation; Paid is recomputed from the ledger and never edited by hand.
type Night struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StayID        uint      `gorm:"column:stay_id;uniqueIndex:idx_nights_stay_date" json:"stay_id"`
	ReservationID uint      `gorm:"column:reservation_id;index" json:"reservation_id"`
	RoomID        uint      `gorm:"column:room_id" json:"room_id"`
	Date          time.Time `gorm:"column:date;uniqueIndex:idx_nights_stay_date" json:"date"`
	Price         int64     `gorm:"column:price" json:"price"`
	Paid          bool      `gorm:"column:paid;default:false" json:"paid"`
}
