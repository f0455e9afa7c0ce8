package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type PaymentMethod string

const (
	MethodCash     PaymentMethod = "cash"
	MethodCard     PaymentMethod = "card"
	MethodTransfer PaymentMethod = "transfer"
	MethodQR       PaymentMethod = "qr"
	MethodVoucher  PaymentMethod = "voucher"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodQR, MethodVoucher:
		return true
	}
	return false
}

// Payment is an append-only ledger row. Amount is signed: a reversal is a new negative
// row pointing at the payment it reverses, never an update or delete.
type Payment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	ReservationID uint           `gorm:"index;column:reservation_id" json:"reservation_id"`
	Amount        int64          `gorm:"column:amount" json:"amount"`
	Method        PaymentMethod  `gorm:"column:method;size:32" json:"method"`
	Reference     string         `gorm:"column:reference;size:255;index" json:"reference"`
	Metadata      datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	TargetDate    *time.Time     `gorm:"column:target_date" json:"target_date,omitempty"`
	PaidAt        time.Time      `gorm:"column:paid_at" json:"paid_at"`
	ActorID       uint           `gorm:"column:actor_id;index" json:"actor_id"`
	ReversalOfID  *uint          `gorm:"column:reversal_of_id;uniqueIndex" json:"reversal_of_id,omitempty"`
}

func (p Payment) IsReversal() bool { return p.ReversalOfID != nil || p.Amount < 0 }

// ReversalReference is the reference tag written on the row that reverses payment id.
func ReversalReference(id uint) string {
	return fmt.Sprintf("Reversal of payment #%d", id)
}
