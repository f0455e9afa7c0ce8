package services

import (
	"hotel-ledger/models"
)

// Reservation state guards. Each switch lists every status.

func guardCheckIn(res *models.Reservation) (already bool, err error) {
	switch res.Status {
	case models.ReservationConfirmed:
		return false, nil
	case models.ReservationCheckedIn:
		return true, nil
	case models.ReservationCancelled:
		return false, violation("reservation_cancelled", "reservation %d is cancelled and cannot be checked in", res.ID)
	case models.ReservationCheckedOut:
		return false, violation("reservation_checked_out", "reservation %d has already checked out", res.ID)
	}
	return false, violation("invalid_reservation_status", "reservation %d has unknown status %q", res.ID, res.Status)
}

func guardCheckout(res *models.Reservation) error {
	switch res.Status {
	case models.ReservationCheckedIn:
		return nil
	case models.ReservationCheckedOut:
		return violation("already_checked_out", "reservation %d has already checked out", res.ID)
	case models.ReservationConfirmed, models.ReservationCancelled:
		return violation("not_checked_in", "reservation %d is not checked in", res.ID)
	}
	return violation("invalid_reservation_status", "reservation %d has unknown status %q", res.ID, res.Status)
}

func guardCancel(res *models.Reservation) error {
	switch res.Status {
	case models.ReservationConfirmed:
		return nil
	case models.ReservationCancelled:
		return violation("already_cancelled", "reservation %d is already cancelled", res.ID)
	case models.ReservationCheckedIn, models.ReservationCheckedOut:
		return violation("cancel_not_allowed", "reservation %d has guests in house or departed; check out instead", res.ID)
	}
	return violation("invalid_reservation_status", "reservation %d has unknown status %q", res.ID, res.Status)
}
