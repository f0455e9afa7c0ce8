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

// Conflict describes why a room cannot be taken.
type Conflict struct {
	RoomID        uint
	ReservationID uint
	Reason        string
}

const (
	conflictActiveStay     = "active_stay"
	conflictCheckoutCutoff = "checkout_cutoff"
	conflictAssignment     = "room_assignment"
)

// AvailabilityChecker decides whether a room can be booked for [checkIn, checkOut).
// It never writes.
type AvailabilityChecker struct {
	DB       *gorm.DB
	Clock    clock.Clock
	Settings *SettingsService
	log      *zap.Logger
}

func NewAvailabilityChecker(db *gorm.DB, clk clock.Clock, settings *SettingsService, log *zap.Logger) *AvailabilityChecker {
	return &AvailabilityChecker{DB: db, Clock: clk, Settings: settings, log: log.Named("availability")}
}

// IsAvailable runs outside any transaction. Writers must call ensureAvailable inside their
// own transaction after locking the room row.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, roomID uint, checkIn, checkOut time.Time, excludeReservationID *uint) (bool, error) {
	var room models.Room
	if err := a.DB.WithContext(ctx).First(&room, roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrRoomNotFound
		}
		return false, fmt.Errorf("db error checking room %d: %w", roomID, err)
	}

	c, err := a.findConflict(ctx, a.DB.WithContext(ctx), roomID, checkIn, checkOut, excludeReservationID, true)
	if err != nil {
		return false, err
	}
	return c == nil, nil
}

// ensureAvailable is the booking gate: occupying stays and other live assignments both block.
func (a *AvailabilityChecker) ensureAvailable(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time, excludeReservationID *uint) error {
	return a.ensure(ctx, tx, roomID, checkIn, checkOut, excludeReservationID, true)
}

// ensureVacant is the check-in gate: only a stay of another reservation blocks, since the
// guest's own assignment is what is being turned into a stay.
func (a *AvailabilityChecker) ensureVacant(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time, reservationID uint) error {
	return a.ensure(ctx, tx, roomID, checkIn, checkOut, &reservationID, false)
}

func (a *AvailabilityChecker) ensure(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time, excludeReservationID *uint, withAssignments bool) error {
	c, err := a.findConflict(ctx, tx, roomID, checkIn, checkOut, excludeReservationID, withAssignments)
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}
	availabilityConflicts.WithLabelValues(c.Reason).Inc()
	a.log.Info("room unavailable",
		zap.Uint("room_id", roomID),
		zap.Uint("blocking_reservation_id", c.ReservationID),
		zap.String("reason", c.Reason),
	)
	switch c.Reason {
	case conflictCheckoutCutoff:
		return conflict(roomID, "room_unavailable", "room is still occupied until the checkout cutoff (reservation %d)", c.ReservationID)
	case conflictActiveStay:
		return conflict(roomID, "room_unavailable", "room is occupied by reservation %d", c.ReservationID)
	default:
		return conflict(roomID, "room_unavailable", "room is booked by reservation %d for overlapping dates", c.ReservationID)
	}
}

func (a *AvailabilityChecker) findConflict(ctx context.Context, tx *gorm.DB, roomID uint, checkIn, checkOut time.Time, excludeReservationID *uint, withAssignments bool) (*Conflict, error) {
	checkIn, checkOut = clock.DateOf(checkIn), clock.DateOf(checkOut)
	if !checkOut.After(checkIn) {
		return nil, invalid("check_out", "invalid_date_range", "check-out %s must be after check-in %s",
			checkOut.Format(dateLayout), checkIn.Format(dateLayout))
	}

	now := a.Clock.Now(ctx)
	today := clock.DateOf(now)

	// (a) occupying stays
	stayQ := tx.Where("room_id = ? AND status IN ?", roomID, models.OccupyingStayStatuses)
	if excludeReservationID != nil {
		stayQ = stayQ.Where("reservation_id <> ?", *excludeReservationID)
	}
	var stays []models.Stay
	if err := stayQ.Order("id ASC").Find(&stays).Error; err != nil {
		return nil, fmt.Errorf("failed to load stays for room %d: %w", roomID, err)
	}

	for _, st := range stays {
		start, end, open := stayWindow(st, now.Location(), today)
		if start.Before(checkOut) && (open || end.After(checkIn)) {
			return &Conflict{RoomID: roomID, ReservationID: st.ReservationID, Reason: conflictActiveStay}, nil
		}
		// ✅ same-day re-let: a stay ending today blocks a check-in today until the cutoff
		if checkIn.Equal(today) && !open && end.Equal(today) {
			cutoff := a.Settings.Policy(tx).CheckoutCutoff
			if beforeCutoff(now, cutoff) {
				return &Conflict{RoomID: roomID, ReservationID: st.ReservationID, Reason: conflictCheckoutCutoff}, nil
			}
		}
	}

	if !withAssignments {
		return nil, nil
	}

	// (b) other live assignments on the room
	asgQ := tx.Model(&models.RoomAssignment{}).
		Select("room_assignments.*").
		Joins("JOIN reservations ON reservations.id = room_assignments.reservation_id").
		Where("room_assignments.room_id = ?", roomID).
		Where("room_assignments.status IN ?", []models.AssignmentStatus{models.AssignmentReserved, models.AssignmentOccupied}).
		Where("reservations.status <> ? AND reservations.deleted_at IS NULL", models.ReservationCancelled).
		Where("room_assignments.check_in_date < ? AND room_assignments.check_out_date > ?", checkOut, checkIn)
	if excludeReservationID != nil {
		asgQ = asgQ.Where("room_assignments.reservation_id <> ?", *excludeReservationID)
	}
	var clash models.RoomAssignment
	res := asgQ.Order("room_assignments.check_in_date ASC").Limit(1).Find(&clash)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to check assignments for room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected > 0 {
		return &Conflict{RoomID: roomID, ReservationID: clash.ReservationID, Reason: conflictAssignment}, nil
	}

	return nil, nil
}

// stayWindow returns the calendar dates a stay occupies. A guest still in house occupies
// at least through today; a stay with no known departure is open-ended.
func stayWindow(st models.Stay, loc *time.Location, today time.Time) (start, end time.Time, open bool) {
	start = clock.DateOf(st.CheckInAt.In(loc))
	switch {
	case st.CheckOutAt != nil:
		end = clock.DateOf(st.CheckOutAt.In(loc))
	case st.ExpectedCheckOut != nil:
		end = clock.DateOf(*st.ExpectedCheckOut)
	default:
		return start, time.Time{}, true
	}
	if st.Occupying() && end.Before(today) {
		end = today
	}
	return start, end, false
}

func beforeCutoff(now time.Time, cutoff time.Duration) bool {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return now.Sub(midnight) < cutoff
}
