package models

import (
	"gorm.io/gorm"
)

const (
	RoomStatusAvailable = "Available"
	RoomStatusReserved  = "Reserved"
	RoomStatusOccupied  = "Occupied"
	// Cleaning marks a room vacated by checkout; housekeeping flips it back to Available.
	RoomStatusCleaning = "Cleaning"
)

type Room struct {
	gorm.Model

	// Make RoomTypeID nullable so when frontend doesn't provide a valid FK, DB won't try to insert 0.
	RoomTypeID *uint  `json:"RoomTypeID,omitempty" gorm:"column:room_type_id"`
	RoomNumber string `json:"roomNumber" gorm:"column:room_number;uniqueIndex;type:varchar(50)"`
	RoomCode   string `json:"roomCode"   gorm:"column:room_code;type:varchar(50)"`

	Type   string `json:"type"`
	Status string `json:"status"`
	Floor  string `json:"floor" gorm:"type:varchar(10)"`
	// BaseRate is the catalog nightly rate in minor units. Only used when a reservation
	// carries no contractual price at all.
	BaseRate     int64  `json:"baseRate" gorm:"column:base_rate;default:0"`
	MaxOccupancy int    `json:"maxOccupancy" gorm:"column:max_occupancy"`
	Description  string `json:"description" gorm:"type:text"`

	RoomType RoomType `gorm:"foreignKey:RoomTypeID" json:"roomType,omitempty"`
}
