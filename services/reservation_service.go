package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"hotel-ledger/clock"
	"hotel-ledger/models"
	"hotel-ledger/queue"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventPublisher receives ledger events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event queue.LedgerEvent) error
}

// ReservationService runs every ledger operation as one transaction:
// guards, ledger append, night coverage, allocation and aggregate sync.
type ReservationService struct {
	DB           *gorm.DB
	Clock        clock.Clock
	Settings     *SettingsService
	Availability *AvailabilityChecker
	Nights       *NightCoverageGenerator
	Ledger       *PaymentLedger
	Sync         *FinancialSynchronizer
	Events       EventPublisher
	log          *zap.Logger
}

func NewReservationService(db *gorm.DB, clk clock.Clock, settings *SettingsService, events EventPublisher, log *zap.Logger) *ReservationService {
	ledger := NewPaymentLedger(clk, log)
	return &ReservationService{
		DB:           db,
		Clock:        clk,
		Settings:     settings,
		Availability: NewAvailabilityChecker(db, clk, settings, log),
		Nights:       NewNightCoverageGenerator(clk, settings, log),
		Ledger:       ledger,
		Sync:         NewFinancialSynchronizer(ledger, log),
		Events:       events,
		log:          log.Named("reservation"),
	}
}

// --- inputs / results ---

type RoomRequest struct {
	RoomID      uint      `json:"room_id"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	NightlyRate int64     `json:"nightly_rate"`
	Subtotal    int64     `json:"subtotal"`
}

type CreateReservationInput struct {
	CustomerID    uint
	ReferenceCode string
	TotalAmount   int64
	Rooms         []RoomRequest
}

type CheckInResult struct {
	NightsCreated    int        `json:"nights_created"`
	AlreadyCheckedIn bool       `json:"already_checked_in"`
	Summary          Aggregates `json:"summary"`
}

type PaymentInput struct {
	Amount     int64
	Method     models.PaymentMethod
	Reference  string
	Metadata   map[string]any
	TargetDate *time.Time
	ActorID    uint
}

type PaymentResult struct {
	Payment       models.Payment `json:"payment"`
	PaymentsTotal int64          `json:"payments_total"`
	BalanceDue    int64          `json:"balance_due"`
	NightsMarked  int            `json:"nights_marked"`
}

type ReversalResult struct {
	Reversal      models.Payment `json:"reversal"`
	PaymentsTotal int64          `json:"payments_total"`
	BalanceDue    int64          `json:"balance_due"`
}

// --- availability ---

func (s *ReservationService) CheckAvailability(ctx context.Context, roomID uint, checkIn, checkOut time.Time, excludeReservationID *uint) (bool, error) {
	return s.Availability.IsAvailable(ctx, roomID, checkIn, checkOut, excludeReservationID)
}

// --- booking ---

// CreateReservation books rooms after re-checking availability under the room locks.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (*models.Reservation, error) {
	if in.CustomerID == 0 {
		return nil, invalid("customer_id", "missing_customer", "a reservation needs a customer")
	}
	if len(in.Rooms) == 0 {
		return nil, invalid("rooms", "missing_room_assignment", "at least one room is required")
	}
	if in.TotalAmount < 0 {
		return nil, invalid("total_amount", "invalid_amount", "total amount cannot be negative")
	}

	rooms := make([]RoomRequest, len(in.Rooms))
	for i, r := range in.Rooms {
		r.CheckIn, r.CheckOut = clock.DateOf(r.CheckIn), clock.DateOf(r.CheckOut)
		if !r.CheckOut.After(r.CheckIn) {
			return nil, invalid("check_out", "invalid_date_range", "room %d: check-out must be after check-in", r.RoomID)
		}
		if r.NightlyRate < 0 || r.Subtotal < 0 {
			return nil, invalid("nightly_rate", "invalid_amount", "room %d: prices cannot be negative", r.RoomID)
		}
		for _, prev := range rooms[:i] {
			if prev.RoomID == r.RoomID && prev.CheckIn.Before(r.CheckOut) && prev.CheckOut.After(r.CheckIn) {
				return nil, invalid("rooms", "duplicate_room", "room %d is requested twice for overlapping dates", r.RoomID)
			}
		}
		rooms[i] = r
	}

	var res models.Reservation
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var c models.Customer
		if err := tx.Select("id").First(&c, in.CustomerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}

		// lock rooms in id order so concurrent bookings cannot deadlock each other
		ids := make([]uint, 0, len(rooms))
		for _, r := range rooms {
			ids = append(ids, r.RoomID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		if _, err := lockRooms(tx, ids); err != nil {
			return err
		}
		for _, r := range rooms {
			if err := s.Availability.ensureAvailable(ctx, tx, r.RoomID, r.CheckIn, r.CheckOut, nil); err != nil {
				return err
			}
		}

		res = models.Reservation{
			CustomerID:    in.CustomerID,
			ReferenceCode: strings.TrimSpace(in.ReferenceCode),
			Status:        models.ReservationConfirmed,
			PaymentStatus: models.PaymentPending,
		}
		if res.ReferenceCode == "" {
			res.ReferenceCode = "RSV-" + strings.ToUpper(uuid.NewString()[:8])
		}

		var sum int64
		for i, r := range rooms {
			nights := len(datesBetween(r.CheckIn, r.CheckOut))
			subtotal := r.Subtotal
			if subtotal == 0 && r.NightlyRate > 0 {
				subtotal = r.NightlyRate * int64(nights)
			}
			sum += subtotal
			res.Rooms = append(res.Rooms, models.RoomAssignment{
				RoomID:       r.RoomID,
				CheckInDate:  r.CheckIn,
				CheckOutDate: r.CheckOut,
				NightlyRate:  r.NightlyRate,
				Subtotal:     subtotal,
				Nights:       nights,
				Status:       models.AssignmentReserved,
			})
			if i == 0 || r.CheckIn.Before(res.CheckInDate) {
				res.CheckInDate = r.CheckIn
			}
			if r.CheckOut.After(res.CheckOutDate) {
				res.CheckOutDate = r.CheckOut
			}
		}
		res.TotalAmount = in.TotalAmount
		if res.TotalAmount == 0 {
			res.TotalAmount = sum
		}

		if err := tx.Create(&res).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		if err := tx.Model(&models.Room{}).
			Where("id IN ? AND status = ?", ids, models.RoomStatusAvailable).
			Update("status", models.RoomStatusReserved).Error; err != nil {
			return fmt.Errorf("failed to mark rooms reserved: %w", err)
		}
		_, err := s.Sync.SyncAggregates(ctx, tx, &res)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("reservation created",
		zap.Uint("reservation_id", res.ID),
		zap.String("reference", res.ReferenceCode),
		zap.Int("rooms", len(res.Rooms)),
		zap.Int64("total", res.TotalAmount),
	)
	return &res, nil
}

// --- check-in ---

// CheckIn opens a stay per room due today, materializes nights and applies any deposit
// already on the ledger. Repeating it on a checked-in reservation opens rooms that have
// become due since and is otherwise harmless.
func (s *ReservationService) CheckIn(ctx context.Context, reservationID uint) (CheckInResult, error) {
	var out CheckInResult
	now := s.Clock.Now(ctx)
	today := clock.DateOf(now)

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		already, err := guardCheckIn(res)
		if err != nil {
			return err
		}
		out.AlreadyCheckedIn = already

		if err := s.openStays(ctx, tx, res, now, today, already); err != nil {
			return err
		}

		created, err := s.Nights.EnsureNightsForReservation(ctx, tx, res)
		if err != nil {
			return err
		}
		out.NightsCreated = created
		if _, err := s.Ledger.RebuildFromLedger(ctx, tx, res); err != nil {
			return err
		}
		out.Summary, err = s.Sync.SyncAggregates(ctx, tx, res)
		return err
	})
	if err != nil {
		return out, err
	}

	if !out.AlreadyCheckedIn {
		s.log.Info("reservation checked in", zap.Uint("reservation_id", reservationID), zap.Int("nights_created", out.NightsCreated))
		s.publish(ctx, queue.EventStayCheckedIn, reservationID, map[string]any{
			"nights_created": out.NightsCreated,
			"balance_due":    out.Summary.BalanceDue,
		})
	}
	return out, nil
}

// openStays opens a stay for every room whose booked period covers today. Rooms booked
// for later dates are picked up by a repeated check-in on their arrival day; rooms whose
// period already ended get a finished stay from the night coverage pass.
func (s *ReservationService) openStays(ctx context.Context, tx *gorm.DB, res *models.Reservation, now, today time.Time, already bool) error {
	all, err := liveAssignments(tx, res.ID)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		if already {
			return nil
		}
		return invalid("rooms", "missing_room_assignment", "reservation %d has no room assigned", res.ID)
	}

	var (
		assignments []models.RoomAssignment
		nextArrival *models.RoomAssignment
		lastEnded   *models.RoomAssignment
	)
	for i, a := range all {
		from, to := clock.DateOf(a.CheckInDate), clock.DateOf(a.CheckOutDate)
		switch {
		case today.Before(from):
			if nextArrival == nil || from.Before(clock.DateOf(nextArrival.CheckInDate)) {
				nextArrival = &all[i]
			}
		case !to.After(today):
			lastEnded = &all[i]
		case a.Status == models.AssignmentReserved:
			assignments = append(assignments, a)
		}
	}
	if len(assignments) == 0 {
		switch {
		case already:
			return nil
		case nextArrival != nil:
			return violation("early_check_in", "room %d is booked from %s; check-in is not allowed before that date",
				nextArrival.RoomID, clock.DateOf(nextArrival.CheckInDate).Format(dateLayout))
		case lastEnded != nil:
			return violation("stay_period_ended", "room %d was booked until %s", lastEnded.RoomID, clock.DateOf(lastEnded.CheckOutDate).Format(dateLayout))
		default:
			return violation("invalid_reservation_status", "reservation %d has no room to check in", res.ID)
		}
	}

	sort.SliceStable(assignments, func(i, j int) bool { return assignments[i].RoomID < assignments[j].RoomID })
	ids := make([]uint, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.RoomID)
	}
	if _, err := lockRooms(tx, ids); err != nil {
		return err
	}

	var stays []models.Stay
	if err := tx.Where("reservation_id = ?", res.ID).Find(&stays).Error; err != nil {
		return fmt.Errorf("failed to load stays: %w", err)
	}

	for _, a := range assignments {
		// only occupation from today on can collide with someone else
		if err := s.Availability.ensureVacant(ctx, tx, a.RoomID, today, a.CheckOutDate, res.ID); err != nil {
			return err
		}
		checkOut := clock.DateOf(a.CheckOutDate)
		if st := stayForAssignment(stays, a); st != nil {
			if err := tx.Model(&models.Stay{}).Where("id = ?", st.ID).Updates(map[string]any{
				"status":             models.StayActive,
				"check_in_at":        now,
				"check_out_at":       nil,
				"expected_check_out": checkOut,
			}).Error; err != nil {
				return fmt.Errorf("failed to reopen stay %d: %w", st.ID, err)
			}
		} else {
			stay := models.Stay{
				ReservationID:    res.ID,
				RoomID:           a.RoomID,
				AssignmentID:     a.ID,
				CheckInAt:        now,
				ExpectedCheckOut: &checkOut,
				Status:           models.StayActive,
			}
			if err := tx.Create(&stay).Error; err != nil {
				return fmt.Errorf("failed to create stay for room %d: %w", a.RoomID, err)
			}
		}
		if err := tx.Model(&models.RoomAssignment{}).Where("id = ?", a.ID).
			Update("status", models.AssignmentOccupied).Error; err != nil {
			return fmt.Errorf("failed to update assignment %d: %w", a.ID, err)
		}
	}

	if err := tx.Model(&models.Room{}).Where("id IN ?", ids).Update("status", models.RoomStatusOccupied).Error; err != nil {
		return fmt.Errorf("failed to mark rooms occupied: %w", err)
	}
	if already {
		return nil
	}

	checkedIn := now.UTC()
	res.Status = models.ReservationCheckedIn
	res.CheckedInAt = &checkedIn
	if err := tx.Model(&models.Reservation{}).Where("id = ?", res.ID).Updates(map[string]any{
		"status":        res.Status,
		"checked_in_at": checkedIn,
	}).Error; err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	return nil
}

// --- payments ---

// RecordPayment appends a payment and settles whole nights with it. A payment larger
// than the balance due is rejected before anything is written.
func (s *ReservationService) RecordPayment(ctx context.Context, reservationID uint, in PaymentInput) (PaymentResult, error) {
	var out PaymentResult
	if in.Amount <= 0 {
		return out, invalid("amount", "invalid_amount", "amount must be a positive number of minor units")
	}
	if !in.Method.Valid() {
		return out, invalid("method", "invalid_method", "unknown payment method %q", in.Method)
	}
	var target *time.Time
	if in.TargetDate != nil {
		d := clock.DateOf(*in.TargetDate)
		target = &d
	}
	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return out, invalid("metadata", "invalid_metadata", "metadata is not serializable: %v", err)
		}
		meta = datatypes.JSON(raw)
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if err := requireOccupyingStay(tx, res); err != nil {
			return err
		}
		if _, err := s.Nights.EnsureNightsForReservation(ctx, tx, res); err != nil {
			return err
		}

		before, err := s.Sync.Compute(tx, res)
		if err != nil {
			return err
		}
		if in.Amount > before.BalanceDue {
			return violation("payment_exceeds_balance", "payment of %d exceeds the balance due of %d", in.Amount, before.BalanceDue)
		}

		p := models.Payment{
			ReservationID: res.ID,
			Amount:        in.Amount,
			Method:        in.Method,
			Reference:     strings.TrimSpace(in.Reference),
			Metadata:      meta,
			TargetDate:    target,
			ActorID:       in.ActorID,
		}
		if err := s.Ledger.Append(ctx, tx, &p); err != nil {
			return err
		}
		alloc, err := s.Ledger.Allocate(ctx, tx, res, in.Amount, target)
		if err != nil {
			return err
		}
		agg, err := s.Sync.SyncAggregates(ctx, tx, res)
		if err != nil {
			return err
		}

		out = PaymentResult{
			Payment:       p,
			PaymentsTotal: agg.PaymentsTotal,
			BalanceDue:    agg.BalanceDue,
			NightsMarked:  alloc.NightsMarked,
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	paymentsRecorded.WithLabelValues(string(in.Method)).Inc()
	s.publish(ctx, queue.EventPaymentRecorded, reservationID, map[string]any{
		"payment_id":     out.Payment.ID,
		"amount":         out.Payment.Amount,
		"method":         out.Payment.Method,
		"nights_marked":  out.NightsMarked,
		"payments_total": out.PaymentsTotal,
		"balance_due":    out.BalanceDue,
	})
	return out, nil
}

// ReversePayment appends the negative twin of a payment and rebuilds every night's
// paid flag from the new net ledger sum.
func (s *ReservationService) ReversePayment(ctx context.Context, reservationID, paymentID, actorID uint) (ReversalResult, error) {
	var out ReversalResult
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		original, err := s.Ledger.Find(tx, paymentID)
		if err != nil {
			return err
		}
		if original.ReservationID != res.ID {
			return violation("payment_not_on_reservation", "payment #%d does not belong to reservation %d", paymentID, res.ID)
		}
		if original.IsReversal() {
			return violation("cannot_reverse_reversal", "payment #%d is itself a reversal", paymentID)
		}
		reversed, err := s.Ledger.AlreadyReversed(tx, original)
		if err != nil {
			return err
		}
		if reversed {
			return violation("payment_already_reversed", "payment #%d has already been reversed", paymentID)
		}

		id := original.ID
		rev := models.Payment{
			ReservationID: res.ID,
			Amount:        -original.Amount,
			Method:        original.Method,
			Reference:     models.ReversalReference(id),
			ActorID:       actorID,
			ReversalOfID:  &id,
		}
		if err := s.Ledger.Append(ctx, tx, &rev); err != nil {
			return err
		}
		if _, err := s.Ledger.RebuildFromLedger(ctx, tx, res); err != nil {
			return err
		}
		agg, err := s.Sync.SyncAggregates(ctx, tx, res)
		if err != nil {
			return err
		}
		out = ReversalResult{Reversal: rev, PaymentsTotal: agg.PaymentsTotal, BalanceDue: agg.BalanceDue}
		return nil
	})
	if err != nil {
		return ReversalResult{}, err
	}

	paymentsReversed.Inc()
	s.publish(ctx, queue.EventPaymentReversed, reservationID, map[string]any{
		"payment_id":     paymentID,
		"reversal_id":    out.Reversal.ID,
		"amount":         out.Reversal.Amount,
		"payments_total": out.PaymentsTotal,
		"balance_due":    out.BalanceDue,
	})
	return out, nil
}

func (s *ReservationService) ListPayments(ctx context.Context, reservationID uint) ([]models.Payment, error) {
	db := s.DB.WithContext(ctx)
	if _, err := findReservation(db, reservationID); err != nil {
		return nil, err
	}
	return s.Ledger.List(db, reservationID)
}

// GetFinancialSummary derives the aggregates from ledger and nights without writing.
func (s *ReservationService) GetFinancialSummary(ctx context.Context, reservationID uint) (Aggregates, error) {
	db := s.DB.WithContext(ctx)
	res, err := findReservation(db, reservationID)
	if err != nil {
		return Aggregates{}, err
	}
	return s.Sync.Compute(db, res)
}

func (s *ReservationService) GetReservation(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := s.DB.WithContext(ctx).
		Preload("Customer").
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("check_in_date ASC, room_id ASC") }).
		Preload("Rooms.Room").
		First(&res, reservationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to load reservation %d: %w", reservationID, err)
	}
	return &res, nil
}

// --- departure ---

// RequestCheckout flags the stays for departure. The rooms keep blocking until Checkout.
func (s *ReservationService) RequestCheckout(ctx context.Context, reservationID uint) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		var err error
		res, err = lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if err := guardCheckout(res); err != nil {
			return err
		}
		if err := tx.Model(&models.Stay{}).
			Where("reservation_id = ? AND status = ?", res.ID, models.StayActive).
			Update("status", models.StayPendingCheckout).Error; err != nil {
			return fmt.Errorf("failed to flag stays for checkout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Checkout closes the stays and frees the rooms for housekeeping. Nights and payments
// are left as they are; the aggregates are re-synced so they still add up.
func (s *ReservationService) Checkout(ctx context.Context, reservationID uint) (Aggregates, error) {
	var agg Aggregates
	now := s.Clock.Now(ctx)

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if err := guardCheckout(res); err != nil {
			return err
		}
		if _, err := s.Nights.EnsureNightsForReservation(ctx, tx, res); err != nil {
			return err
		}

		var roomIDs []uint
		if err := tx.Model(&models.Stay{}).
			Where("reservation_id = ? AND status IN ?", res.ID, models.OccupyingStayStatuses).
			Pluck("room_id", &roomIDs).Error; err != nil {
			return fmt.Errorf("failed to load stays: %w", err)
		}
		if err := tx.Model(&models.Stay{}).
			Where("reservation_id = ? AND status IN ?", res.ID, models.OccupyingStayStatuses).
			Updates(map[string]any{"status": models.StayFinished, "check_out_at": now.UTC()}).Error; err != nil {
			return fmt.Errorf("failed to close stays: %w", err)
		}
		if err := tx.Model(&models.RoomAssignment{}).
			Where("reservation_id = ? AND status IN ?", res.ID, []models.AssignmentStatus{models.AssignmentReserved, models.AssignmentOccupied}).
			Update("status", models.AssignmentReleased).Error; err != nil {
			return fmt.Errorf("failed to release assignments: %w", err)
		}
		if len(roomIDs) > 0 {
			if err := tx.Model(&models.Room{}).Where("id IN ?", roomIDs).
				Update("status", models.RoomStatusCleaning).Error; err != nil {
				return fmt.Errorf("failed to mark rooms for cleaning: %w", err)
			}
		}

		res.Status = models.ReservationCheckedOut
		if err := tx.Model(&models.Reservation{}).Where("id = ?", res.ID).
			Update("status", res.Status).Error; err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		if _, err := s.Ledger.RebuildFromLedger(ctx, tx, res); err != nil {
			return err
		}
		agg, err = s.Sync.SyncAggregates(ctx, tx, res)
		return err
	})
	if err != nil {
		return agg, err
	}

	s.log.Info("reservation checked out", zap.Uint("reservation_id", reservationID), zap.Int64("balance_due", agg.BalanceDue))
	s.publish(ctx, queue.EventReservationCheckedOut, reservationID, map[string]any{
		"balance_due":    agg.BalanceDue,
		"payments_total": agg.PaymentsTotal,
		"status":         agg.Status,
	})
	return agg, nil
}

// Cancel releases a reservation that never checked in.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint) (Aggregates, error) {
	var agg Aggregates
	err := s.transaction(ctx, func(tx *gorm.DB) error {
		res, err := lockReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if err := guardCancel(res); err != nil {
			return err
		}

		var roomIDs []uint
		if err := tx.Model(&models.RoomAssignment{}).
			Where("reservation_id = ? AND status <> ?", res.ID, models.AssignmentCancelled).
			Pluck("room_id", &roomIDs).Error; err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}
		if err := tx.Model(&models.RoomAssignment{}).
			Where("reservation_id = ?", res.ID).
			Update("status", models.AssignmentCancelled).Error; err != nil {
			return fmt.Errorf("failed to cancel assignments: %w", err)
		}
		res.Status = models.ReservationCancelled
		if err := tx.Model(&models.Reservation{}).Where("id = ?", res.ID).
			Update("status", res.Status).Error; err != nil {
			return fmt.Errorf("failed to update reservation status: %w", err)
		}
		if err := releaseReservedRooms(tx, roomIDs); err != nil {
			return err
		}
		agg, err = s.Sync.SyncAggregates(ctx, tx, res)
		return err
	})
	if err != nil {
		return agg, err
	}

	s.log.Info("reservation cancelled", zap.Uint("reservation_id", reservationID))
	s.publish(ctx, queue.EventReservationCancelled, reservationID, map[string]any{
		"payments_total": agg.PaymentsTotal,
	})
	return agg, nil
}

// --- helpers ---

// transaction maps a lost lock race to a ConflictError so the caller can resubmit.
func (s *ReservationService) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.DB.WithContext(ctx).Transaction(fn)
	if err != nil && isLockContention(err) {
		s.log.Warn("transaction lost a lock race", zap.Error(err))
		return conflict(0, "concurrent_update", "another front-desk action touched this reservation; retry")
	}
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		s.log.Error("ledger consistency check failed", zap.String("code", ce.Code), zap.String("detail", ce.Message))
	}
	return err
}

func (s *ReservationService) publish(ctx context.Context, eventType string, reservationID uint, data map[string]any) {
	if s.Events == nil {
		return
	}
	ev := queue.NewLedgerEvent(eventType, reservationID, s.Clock.Now(ctx), data)
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.log.Warn("ledger event not published",
			zap.String("event", eventType),
			zap.Uint("reservation_id", reservationID),
			zap.Error(err),
		)
	}
}

func findReservation(db *gorm.DB, id uint) (*models.Reservation, error) {
	var res models.Reservation
	if err := db.First(&res, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to load reservation %d: %w", id, err)
	}
	return &res, nil
}

func lockReservation(tx *gorm.DB, id uint) (*models.Reservation, error) {
	return findReservation(forUpdate(tx), id)
}

func lockRooms(tx *gorm.DB, ids []uint) ([]models.Room, error) {
	var rooms []models.Room
	if err := forUpdate(tx).Where("id IN ?", ids).Order("id ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to lock rooms: %w", err)
	}
	found := make(map[uint]bool, len(rooms))
	for _, r := range rooms {
		found[r.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("room %d: %w", id, ErrRoomNotFound)
		}
	}
	return rooms, nil
}

func requireOccupyingStay(tx *gorm.DB, res *models.Reservation) error {
	var n int64
	if err := tx.Model(&models.Stay{}).
		Where("reservation_id = ? AND status IN ?", res.ID, models.OccupyingStayStatuses).
		Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check stays: %w", err)
	}
	if n == 0 {
		return violation("no_active_stay", "reservation %d has no guest in house; check in before taking payments", res.ID)
	}
	return nil
}

// releaseReservedRooms puts Reserved rooms back to Available unless another live
// assignment still holds them.
func releaseReservedRooms(tx *gorm.DB, roomIDs []uint) error {
	for _, id := range roomIDs {
		var n int64
		if err := tx.Model(&models.RoomAssignment{}).
			Where("room_id = ? AND status IN ?", id, []models.AssignmentStatus{models.AssignmentReserved, models.AssignmentOccupied}).
			Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check room %d: %w", id, err)
		}
		if n > 0 {
			continue
		}
		if err := tx.Model(&models.Room{}).Where("id = ? AND status = ?", id, models.RoomStatusReserved).
			Update("status", models.RoomStatusAvailable).Error; err != nil {
			return fmt.Errorf("failed to release room %d: %w", id, err)
		}
	}
	return nil
}
