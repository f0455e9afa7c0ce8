package services

import (
	"context"
	"fmt"

	"hotel-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aggregates is the reservation's financial picture derived from ledger and nights.
type Aggregates struct {
	LodgingTotal  int64                `json:"total_lodging"`
	PaymentsTotal int64                `json:"payments_total"`
	BalanceDue    int64                `json:"balance_due"`
	Status        models.PaymentStatus `json:"status"`
	PaidNights    int                  `json:"paid_nights"`
	TotalNights   int                  `json:"total_nights"`
	// UnpaidNightsAmount is the sum of shares of nights not yet settled.
	UnpaidNightsAmount int64 `json:"unpaid_nights_amount"`
}

// FinancialSynchronizer recomputes and caches the reservation aggregates.
type FinancialSynchronizer struct {
	Ledger *PaymentLedger
	log    *zap.Logger
}

func NewFinancialSynchronizer(ledger *PaymentLedger, log *zap.Logger) *FinancialSynchronizer {
	return &FinancialSynchronizer{Ledger: ledger, log: log.Named("sync")}
}

// Compute reads the current state without writing anything.
func (f *FinancialSynchronizer) Compute(tx *gorm.DB, res *models.Reservation) (Aggregates, error) {
	q, err := f.Ledger.BuildPaymentQueue(tx, res)
	if err != nil {
		return Aggregates{}, err
	}
	payments, err := f.Ledger.NetTotal(tx, res.ID)
	if err != nil {
		return Aggregates{}, err
	}

	lodging, err := contractedTotal(tx, res)
	if err != nil {
		return Aggregates{}, err
	}
	if lodging <= 0 {
		var sum int64
		if err := tx.Model(&models.Night{}).
			Where("reservation_id = ?", res.ID).
			Select("COALESCE(SUM(price), 0)").
			Scan(&sum).Error; err != nil {
			return Aggregates{}, fmt.Errorf("failed to sum night prices: %w", err)
		}
		lodging = sum
	}

	balance := lodging - payments
	if balance < 0 {
		balance = 0
	}

	agg := Aggregates{
		LodgingTotal:       lodging,
		PaymentsTotal:      payments,
		BalanceDue:         balance,
		Status:             classify(balance, payments),
		PaidNights:         q.PaidCount(),
		TotalNights:        len(q.Entries),
		UnpaidNightsAmount: q.Total() - q.PaidShares(),
	}
	return agg, nil
}

// SyncAggregates recomputes the aggregates and stores them on the reservation row.
// Call it inside the mutating transaction, after nights and flags are final.
func (f *FinancialSynchronizer) SyncAggregates(ctx context.Context, tx *gorm.DB, res *models.Reservation) (Aggregates, error) {
	agg, err := f.Compute(tx, res)
	if err != nil {
		return agg, err
	}

	if err := tx.Model(&models.Reservation{}).Where("id = ?", res.ID).Updates(map[string]any{
		"lodging_total":  agg.LodgingTotal,
		"payments_total": agg.PaymentsTotal,
		"balance_due":    agg.BalanceDue,
		"payment_status": agg.Status,
	}).Error; err != nil {
		return agg, fmt.Errorf("failed to persist aggregates: %w", err)
	}
	res.LodgingTotal = agg.LodgingTotal
	res.PaymentsTotal = agg.PaymentsTotal
	res.BalanceDue = agg.BalanceDue
	res.PaymentStatus = agg.Status

	f.log.Debug("aggregates synced",
		zap.Uint("reservation_id", res.ID),
		zap.Int64("lodging", agg.LodgingTotal),
		zap.Int64("payments", agg.PaymentsTotal),
		zap.Int64("balance", agg.BalanceDue),
		zap.String("status", string(agg.Status)),
	)
	return agg, nil
}

func classify(balance, payments int64) models.PaymentStatus {
	switch {
	case balance <= 0:
		return models.PaymentPaid
	case payments > 0:
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}
