package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hotel-ledger/clock"
	"hotel-ledger/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NightCoverageGenerator makes sure one Night exists for every date a reservation's
// guests contractually occupy a room. Running it again never changes existing nights.
type NightCoverageGenerator struct {
	Clock    clock.Clock
	Settings *SettingsService
	log      *zap.Logger
}

func NewNightCoverageGenerator(clk clock.Clock, settings *SettingsService, log *zap.Logger) *NightCoverageGenerator {
	return &NightCoverageGenerator{Clock: clk, Settings: settings, log: log.Named("nights")}
}

type nightSlot struct {
	assignment int // index into assignments
	day        string
}

// EnsureNightsForReservation creates missing stays and nights and returns how many nights it
// created. It must run inside the caller's transaction.
func (g *NightCoverageGenerator) EnsureNightsForReservation(ctx context.Context, tx *gorm.DB, res *models.Reservation) (int, error) {
	assignments, err := liveAssignments(tx, res.ID)
	if err != nil {
		return 0, err
	}
	if len(assignments) == 0 {
		return 0, nil
	}

	var stays []models.Stay
	if err := tx.Where("reservation_id = ?", res.ID).Order("id ASC").Find(&stays).Error; err != nil {
		return 0, fmt.Errorf("failed to load stays: %w", err)
	}

	now := g.Clock.Now(ctx)
	today := clock.DateOf(now)

	// reservation-wide split, used only when an assignment carries no price of its own
	slots := make([]nightSlot, 0)
	for i, a := range assignments {
		for _, d := range datesBetween(a.CheckInDate, a.CheckOutDate) {
			slots = append(slots, nightSlot{assignment: i, day: d.Format(dateLayout)})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].day != slots[j].day {
			return slots[i].day < slots[j].day
		}
		return assignments[slots[i].assignment].RoomID < assignments[slots[j].assignment].RoomID
	})
	var reservationShares map[nightSlot]int64
	if res.TotalAmount > 0 && len(slots) > 0 {
		shares := SplitMinor(res.TotalAmount, len(slots))
		reservationShares = make(map[nightSlot]int64, len(slots))
		for i, s := range slots {
			reservationShares[s] = shares[i]
		}
	}

	created := 0
	for i := range assignments {
		a := assignments[i]
		stay := stayForAssignment(stays, a)
		if stay == nil {
			st, err := g.synthesizeStay(tx, res, a, today, now.Location())
			if err != nil {
				return created, err
			}
			stays = append(stays, *st)
			stay = &stays[len(stays)-1]
		}

		var existing []models.Night
		if err := tx.Where("stay_id = ?", stay.ID).Order("date ASC, id ASC").Find(&existing).Error; err != nil {
			return created, fmt.Errorf("failed to load nights for stay %d: %w", stay.ID, err)
		}
		have := make(map[string]bool, len(existing))
		var reuse int64
		for _, n := range existing {
			have[clock.DateOf(n.Date).Format(dateLayout)] = true
			if reuse == 0 && n.Price > 0 {
				reuse = n.Price
			}
		}

		dates := datesBetween(a.CheckInDate, a.CheckOutDate)
		var subtotalShares []int64
		if n := assignmentNights(a); a.NightlyRate <= 0 && a.Subtotal > 0 && n > 0 {
			subtotalShares = SplitMinor(a.Subtotal, n)
		}

		missing := make([]models.Night, 0)
		for idx, d := range dates {
			if have[d.Format(dateLayout)] {
				continue
			}
			price, err := g.priceFor(tx, a, idx, d, i, reuse, subtotalShares, reservationShares)
			if err != nil {
				return created, err
			}
			missing = append(missing, models.Night{
				StayID:        stay.ID,
				ReservationID: res.ID,
				RoomID:        a.RoomID,
				Date:          d,
				Price:         price,
			})
		}
		if len(missing) == 0 {
			continue
		}
		if err := tx.Create(&missing).Error; err != nil {
			if isDuplicateKey(err) {
				return created, conflict(a.RoomID, "night_already_exists", "nights for stay %d were created concurrently", stay.ID)
			}
			return created, fmt.Errorf("failed to create nights for stay %d: %w", stay.ID, err)
		}
		created += len(missing)
	}

	if created > 0 {
		nightsCreated.Add(float64(created))
		g.log.Info("nights materialized", zap.Uint("reservation_id", res.ID), zap.Int("created", created))
	}
	return created, nil
}

// priceFor never drops back to the room's catalog rate while the reservation carries a
// contractual price.
func (g *NightCoverageGenerator) priceFor(
	tx *gorm.DB,
	a models.RoomAssignment,
	idx int,
	date time.Time,
	assignmentIdx int,
	reuse int64,
	subtotalShares []int64,
	reservationShares map[nightSlot]int64,
) (int64, error) {
	switch {
	case reuse > 0:
		return reuse, nil
	case a.NightlyRate > 0:
		return a.NightlyRate, nil
	case len(subtotalShares) > 0:
		if idx < len(subtotalShares) {
			return subtotalShares[idx], nil
		}
		return a.Subtotal / int64(len(subtotalShares)), nil
	case reservationShares != nil:
		if p, ok := reservationShares[nightSlot{assignment: assignmentIdx, day: date.Format(dateLayout)}]; ok {
			return p, nil
		}
	}

	var room models.Room
	if err := tx.Select("id", "base_rate").First(&room, a.RoomID).Error; err != nil {
		return 0, fmt.Errorf("failed to load room %d rate: %w", a.RoomID, err)
	}
	if room.BaseRate > 0 {
		return room.BaseRate, nil
	}
	return g.Settings.Policy(tx).DefaultNightlyRate, nil
}

// synthesizeStay records a stay for an assignment nobody checked in through the front
// desk. Its instants are hotel-local midnights so they read back as the booked dates.
func (g *NightCoverageGenerator) synthesizeStay(tx *gorm.DB, res *models.Reservation, a models.RoomAssignment, today time.Time, loc *time.Location) (*models.Stay, error) {
	checkOut := clock.DateOf(a.CheckOutDate)
	st := models.Stay{
		ReservationID:    res.ID,
		RoomID:           a.RoomID,
		AssignmentID:     a.ID,
		CheckInAt:        localMidnight(a.CheckInDate, loc),
		ExpectedCheckOut: &checkOut,
		Status:           models.StayActive,
	}
	if !checkOut.After(today) {
		left := localMidnight(checkOut, loc)
		st.Status = models.StayFinished
		st.CheckOutAt = &left
	}
	if err := tx.Create(&st).Error; err != nil {
		return nil, fmt.Errorf("failed to synthesize stay for room %d: %w", a.RoomID, err)
	}
	g.log.Info("stay synthesized",
		zap.Uint("reservation_id", res.ID),
		zap.Uint("room_id", a.RoomID),
		zap.String("status", string(st.Status)),
	)
	return &st, nil
}

func localMidnight(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func stayForAssignment(stays []models.Stay, a models.RoomAssignment) *models.Stay {
	for i := range stays {
		if stays[i].AssignmentID == a.ID {
			return &stays[i]
		}
	}
	for i := range stays {
		if stays[i].AssignmentID == 0 && stays[i].RoomID == a.RoomID {
			return &stays[i]
		}
	}
	return nil
}

// liveAssignments returns the non-cancelled assignments ordered by (check-in, room, id).
func liveAssignments(tx *gorm.DB, reservationID uint) ([]models.RoomAssignment, error) {
	var out []models.RoomAssignment
	if err := tx.Where("reservation_id = ? AND status <> ?", reservationID, models.AssignmentCancelled).
		Order("check_in_date ASC, room_id ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to load room assignments: %w", err)
	}
	return out, nil
}

// datesBetween lists every calendar date in [from, to).
func datesBetween(from, to time.Time) []time.Time {
	from, to = clock.DateOf(from), clock.DateOf(to)
	out := make([]time.Time, 0)
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func assignmentNights(a models.RoomAssignment) int {
	if a.Nights > 0 {
		return a.Nights
	}
	return len(datesBetween(a.CheckInDate, a.CheckOutDate))
}
