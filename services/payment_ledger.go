package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-ledger/clock"
	"hotel-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentLedger appends signed payment rows and maps the ledger onto nights.
// Rows are never updated or deleted.
type PaymentLedger struct {
	Clock clock.Clock
	log   *zap.Logger
}

func NewPaymentLedger(clk clock.Clock, log *zap.Logger) *PaymentLedger {
	return &PaymentLedger{Clock: clk, log: log.Named("ledger")}
}

// Append writes one immutable row.
func (l *PaymentLedger) Append(ctx context.Context, tx *gorm.DB, p *models.Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = l.Clock.Now(ctx).UTC()
	}
	if err := tx.Create(p).Error; err != nil {
		if p.ReversalOfID != nil && isDuplicateKey(err) {
			return violation("payment_already_reversed", "payment #%d has already been reversed", *p.ReversalOfID)
		}
		return fmt.Errorf("failed to append payment: %w", err)
	}
	l.log.Info("ledger row appended",
		zap.Uint("reservation_id", p.ReservationID),
		zap.Uint("payment_id", p.ID),
		zap.Int64("amount", p.Amount),
		zap.String("method", string(p.Method)),
		zap.Uint("actor_id", p.ActorID),
	)
	return nil
}

// NetTotal sums every row for the reservation, reversals included.
func (l *PaymentLedger) NetTotal(tx *gorm.DB, reservationID uint) (int64, error) {
	var total int64
	if err := tx.Model(&models.Payment{}).
		Where("reservation_id = ?", reservationID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum ledger: %w", err)
	}
	return total, nil
}

func (l *PaymentLedger) Find(tx *gorm.DB, paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := tx.First(&p, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}
	return &p, nil
}

func (l *PaymentLedger) List(tx *gorm.DB, reservationID uint) ([]models.Payment, error) {
	var out []models.Payment
	if err := tx.Where("reservation_id = ?", reservationID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return out, nil
}

// AlreadyReversed looks for a negative row tagged with the payment's reversal reference.
func (l *PaymentLedger) AlreadyReversed(tx *gorm.DB, p *models.Payment) (bool, error) {
	var n int64
	if err := tx.Model(&models.Payment{}).
		Where("reservation_id = ? AND amount < 0", p.ReservationID).
		Where("reversal_of_id = ? OR reference = ?", p.ID, models.ReversalReference(p.ID)).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check reversal of payment %d: %w", p.ID, err)
	}
	return n > 0, nil
}

// BuildPaymentQueue loads the reservation's nights and orders them for allocation.
func (l *PaymentLedger) BuildPaymentQueue(tx *gorm.DB, res *models.Reservation) (*PaymentQueue, error) {
	var nights []models.Night
	if err := tx.Where("reservation_id = ?", res.ID).Find(&nights).Error; err != nil {
		return nil, fmt.Errorf("failed to load nights: %w", err)
	}
	contracted, err := contractedTotal(tx, res)
	if err != nil {
		return nil, err
	}
	return BuildPaymentQueue(contracted, nights)
}

// Allocate applies amount (plus any credit the ledger holds that no night absorbed yet)
// to unpaid nights and persists the flags it changed.
func (l *PaymentLedger) Allocate(ctx context.Context, tx *gorm.DB, res *models.Reservation, amount int64, target *time.Time) (AllocationResult, error) {
	q, err := l.BuildPaymentQueue(tx, res)
	if err != nil {
		return AllocationResult{}, err
	}
	net, err := l.NetTotal(tx, res.ID)
	if err != nil {
		return AllocationResult{}, err
	}

	// net already includes amount when the row was appended first
	credit := net - amount - q.PaidShares()
	if credit < 0 {
		credit = 0
	}

	before := paidFlags(q)
	result, err := q.Allocate(amount+credit, target)
	if err != nil {
		return result, err
	}
	if err := persistFlags(tx, q, before); err != nil {
		return result, err
	}
	return result, nil
}

// RebuildFromLedger recomputes every night's paid flag from the current net ledger sum.
// It is how reversals propagate.
func (l *PaymentLedger) RebuildFromLedger(ctx context.Context, tx *gorm.DB, res *models.Reservation) (AllocationResult, error) {
	q, err := l.BuildPaymentQueue(tx, res)
	if err != nil {
		return AllocationResult{}, err
	}
	net, err := l.NetTotal(tx, res.ID)
	if err != nil {
		return AllocationResult{}, err
	}

	before := paidFlags(q)
	result, err := q.Rebuild(net)
	if err != nil {
		return result, err
	}
	if err := persistFlags(tx, q, before); err != nil {
		return result, err
	}
	return result, nil
}

func paidFlags(q *PaymentQueue) map[uint]bool {
	out := make(map[uint]bool, len(q.Entries))
	for _, e := range q.Entries {
		out[e.NightID] = e.Paid
	}
	return out
}

func persistFlags(tx *gorm.DB, q *PaymentQueue, before map[uint]bool) error {
	var nowPaid, nowUnpaid []uint
	for _, e := range q.Entries {
		if before[e.NightID] == e.Paid {
			continue
		}
		if e.Paid {
			nowPaid = append(nowPaid, e.NightID)
		} else {
			nowUnpaid = append(nowUnpaid, e.NightID)
		}
	}
	if len(nowPaid) > 0 {
		if err := tx.Model(&models.Night{}).Where("id IN ?", nowPaid).Update("paid", true).Error; err != nil {
			return fmt.Errorf("failed to mark nights paid: %w", err)
		}
	}
	if len(nowUnpaid) > 0 {
		if err := tx.Model(&models.Night{}).Where("id IN ?", nowUnpaid).Update("paid", false).Error; err != nil {
			return fmt.Errorf("failed to mark nights unpaid: %w", err)
		}
	}
	return nil
}

// contractedTotal is the reservation's agreed lodging amount; 0 when nothing was agreed.
func contractedTotal(tx *gorm.DB, res *models.Reservation) (int64, error) {
	if res.Status == models.ReservationCancelled {
		return 0, nil
	}
	if res.TotalAmount > 0 {
		return res.TotalAmount, nil
	}
	var sum int64
	if err := tx.Model(&models.RoomAssignment{}).
		Where("reservation_id = ? AND status <> ?", res.ID, models.AssignmentCancelled).
		Select("COALESCE(SUM(subtotal), 0)").
		Scan(&sum).Error; err != nil {
		return 0, fmt.Errorf("failed to sum assignment subtotals: %w", err)
	}
	return sum, nil
}
