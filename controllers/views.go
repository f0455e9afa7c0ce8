package controllers

import (
	"hotel-ledger/models"
	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

func summaryView(agg services.Aggregates) gin.H {
	return gin.H{
		"total_lodging":                agg.LodgingTotal,
		"total_lodging_display":        utils.FormatMinor(agg.LodgingTotal),
		"payments_total":               agg.PaymentsTotal,
		"payments_total_display":       utils.FormatMinor(agg.PaymentsTotal),
		"balance_due":                  agg.BalanceDue,
		"balance_due_display":          utils.FormatMinor(agg.BalanceDue),
		"status":                       agg.Status,
		"paid_nights":                  agg.PaidNights,
		"total_nights":                 agg.TotalNights,
		"unpaid_nights_amount":         agg.UnpaidNightsAmount,
		"unpaid_nights_amount_display": utils.FormatMinor(agg.UnpaidNightsAmount),
	}
}

func paymentView(p models.Payment) gin.H {
	v := gin.H{
		"id":             p.ID,
		"reservation_id": p.ReservationID,
		"amount":         p.Amount,
		"amount_display": utils.FormatMinor(p.Amount),
		"method":         p.Method,
		"reference":      p.Reference,
		"paid_at":        p.PaidAt,
		"actor_id":       p.ActorID,
		"is_reversal":    p.IsReversal(),
	}
	if len(p.Metadata) > 0 {
		v["metadata"] = p.Metadata
	}
	if p.TargetDate != nil {
		v["target_date"] = p.TargetDate.Format(dateLayout)
	}
	if p.ReversalOfID != nil {
		v["reversal_of_id"] = *p.ReversalOfID
	}
	return v
}

func assignmentView(a models.RoomAssignment) gin.H {
	v := gin.H{
		"id":                   a.ID,
		"room_id":              a.RoomID,
		"check_in":             a.CheckInDate.Format(dateLayout),
		"check_out":            a.CheckOutDate.Format(dateLayout),
		"nights":               a.Nights,
		"nightly_rate":         a.NightlyRate,
		"nightly_rate_display": utils.FormatMinor(a.NightlyRate),
		"subtotal":             a.Subtotal,
		"subtotal_display":     utils.FormatMinor(a.Subtotal),
		"status":               a.Status,
	}
	if a.Room.ID != 0 {
		v["room_number"] = a.Room.RoomNumber
	}
	return v
}

func reservationView(r models.Reservation) gin.H {
	rooms := make([]gin.H, 0, len(r.Rooms))
	for _, a := range r.Rooms {
		rooms = append(rooms, assignmentView(a))
	}
	v := gin.H{
		"id":                     r.ID,
		"reference_code":         r.ReferenceCode,
		"customer_id":            r.CustomerID,
		"status":                 r.Status,
		"check_in":               r.CheckInDate.Format(dateLayout),
		"check_out":              r.CheckOutDate.Format(dateLayout),
		"total_amount":           r.TotalAmount,
		"total_amount_display":   utils.FormatMinor(r.TotalAmount),
		"payments_total":         r.PaymentsTotal,
		"payments_total_display": utils.FormatMinor(r.PaymentsTotal),
		"balance_due":            r.BalanceDue,
		"balance_due_display":    utils.FormatMinor(r.BalanceDue),
		"payment_status":         r.PaymentStatus,
		"rooms":                  rooms,
	}
	if r.CheckedInAt != nil {
		v["checked_in_at"] = r.CheckedInAt
	}
	if r.Customer.ID != 0 {
		v["customer"] = gin.H{"id": r.Customer.ID, "full_name": r.Customer.FullName, "email": r.Customer.Email}
	}
	return v
}
