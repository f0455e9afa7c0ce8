package controllers

import (
	"net/http"
	"strings"
	"time"

	"hotel-ledger/models"
	"hotel-ledger/services"
	"hotel-ledger/utils"

	"github.com/gin-gonic/gin"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type RoomItem struct {
	RoomID      uint   `json:"room_id" binding:"required"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	NightlyRate int64  `json:"nightly_rate"`
	Subtotal    int64  `json:"subtotal"`
}

// CreateReservationRequest takes reservation-level dates that rooms inherit unless they
// carry their own.
type CreateReservationRequest struct {
	CustomerID    uint       `json:"customer_id" binding:"required"`
	ReferenceCode string     `json:"reference_code"`
	CheckIn       string     `json:"check_in"`
	CheckOut      string     `json:"check_out"`
	TotalAmount   int64      `json:"total_amount"`
	Rooms         []RoomItem `json:"rooms" binding:"required"`
}

type RecordPaymentRequest struct {
	// Amount is in minor units. AmountDecimal ("1250.50") is accepted instead.
	Amount        int64          `json:"amount"`
	AmountDecimal string         `json:"amount_decimal"`
	Method        string         `json:"method" binding:"required"`
	Reference     string         `json:"reference"`
	Metadata      map[string]any `json:"metadata"`
	TargetDate    string         `json:"target_date"`
}

// ---------------------------
// Controller
// ---------------------------

type ReservationController struct {
	Svc *services.ReservationService
}

func NewReservationController(svc *services.ReservationService) *ReservationController {
	return &ReservationController{Svc: svc}
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, &services.ValidationError{Field: field, Code: "invalid_date", Message: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// POST /api/reservations
func (rc *ReservationController) CreateReservation(c *gin.Context) {
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_payload", err.Error(), nil)
		return
	}

	in := services.CreateReservationInput{
		CustomerID:    req.CustomerID,
		ReferenceCode: req.ReferenceCode,
		TotalAmount:   req.TotalAmount,
	}
	for _, item := range req.Rooms {
		checkIn, checkOut := item.CheckIn, item.CheckOut
		if checkIn == "" {
			checkIn = req.CheckIn
		}
		if checkOut == "" {
			checkOut = req.CheckOut
		}
		from, err := parseDate("check_in", checkIn)
		if err != nil {
			respondError(c, err)
			return
		}
		to, err := parseDate("check_out", checkOut)
		if err != nil {
			respondError(c, err)
			return
		}
		in.Rooms = append(in.Rooms, services.RoomRequest{
			RoomID:      item.RoomID,
			CheckIn:     from,
			CheckOut:    to,
			NightlyRate: item.NightlyRate,
			Subtotal:    item.Subtotal,
		})
	}

	res, err := rc.Svc.CreateReservation(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, reservationView(*res))
}

// GET /api/reservations/:id
func (rc *ReservationController) GetReservation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res, err := rc.Svc.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, reservationView(*res))
}

// POST /api/reservations/:id/checkin
func (rc *ReservationController) CheckIn(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	out, err := rc.Svc.CheckIn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"nights_created":     out.NightsCreated,
		"already_checked_in": out.AlreadyCheckedIn,
		"summary":            summaryView(out.Summary),
	})
}

// POST /api/reservations/:id/payments
func (rc *ReservationController) RecordPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_payload", err.Error(), nil)
		return
	}

	amount := req.Amount
	if amount == 0 && strings.TrimSpace(req.AmountDecimal) != "" {
		v, ok := utils.ParseMajor(strings.TrimSpace(req.AmountDecimal))
		if !ok {
			utils.JSONErrorCode(c, http.StatusBadRequest, "invalid_amount", "amount_decimal is not a valid amount", gin.H{"field": "amount_decimal"})
			return
		}
		amount = v
	}

	in := services.PaymentInput{
		Amount:    amount,
		Method:    models.PaymentMethod(strings.ToLower(strings.TrimSpace(req.Method))),
		Reference: req.Reference,
		Metadata:  req.Metadata,
		ActorID:   actor,
	}
	if strings.TrimSpace(req.TargetDate) != "" {
		d, err := parseDate("target_date", req.TargetDate)
		if err != nil {
			respondError(c, err)
			return
		}
		in.TargetDate = &d
	}

	out, err := rc.Svc.RecordPayment(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"payment":                paymentView(out.Payment),
		"payments_total":         out.PaymentsTotal,
		"payments_total_display": utils.FormatMinor(out.PaymentsTotal),
		"balance_due":            out.BalanceDue,
		"balance_due_display":    utils.FormatMinor(out.BalanceDue),
		"nights_marked":          out.NightsMarked,
	})
}

// GET /api/reservations/:id/payments
func (rc *ReservationController) ListPayments(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payments, err := rc.Svc.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentView(p))
	}
	utils.JSONSuccess(c, http.StatusOK, out)
}

// POST /api/reservations/:id/payments/:paymentId/reverse
func (rc *ReservationController) ReversePayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := parseIDParam(c, "paymentId")
	if !ok {
		return
	}
	actor, ok := actorID(c)
	if !ok {
		return
	}
	out, err := rc.Svc.ReversePayment(c.Request.Context(), id, paymentID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"reversal":               paymentView(out.Reversal),
		"payments_total":         out.PaymentsTotal,
		"payments_total_display": utils.FormatMinor(out.PaymentsTotal),
		"balance_due":            out.BalanceDue,
		"balance_due_display":    utils.FormatMinor(out.BalanceDue),
	})
}

// GET /api/reservations/:id/summary
func (rc *ReservationController) GetSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	agg, err := rc.Svc.GetFinancialSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, summaryView(agg))
}

// POST /api/reservations/:id/checkout/request
func (rc *ReservationController) RequestCheckout(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res, err := rc.Svc.RequestCheckout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"reservation_id": res.ID, "status": res.Status, "stays": models.StayPendingCheckout})
}

// POST /api/reservations/:id/checkout
func (rc *ReservationController) Checkout(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	agg, err := rc.Svc.Checkout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, summaryView(agg))
}

// POST /api/reservations/:id/cancel
func (rc *ReservationController) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	agg, err := rc.Svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, summaryView(agg))
}
