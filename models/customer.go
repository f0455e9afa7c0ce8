// models/customer.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is the guest who holds the reservation. Customer CRUD lives outside the ledger;
// the ledger only reads it to validate a booking request.
type Customer struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:255" json:"fullName"`
	Email     string         `gorm:"size:255;index" json:"email"`
	Phone     string         `gorm:"size:50" json:"phone,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
