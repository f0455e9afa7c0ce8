package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotel-ledger/clock"
	"hotel-ledger/config"
	"hotel-ledger/controllers"
	"hotel-ledger/models"
	"hotel-ledger/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type apiHarness struct {
	router *gin.Engine
	db     *gorm.DB
	room   models.Room
}

func newHarness(t *testing.T, now time.Time) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(config.LedgerModels...))

	room := models.Room{RoomNumber: "201", Status: models.RoomStatusAvailable, BaseRate: 150000, MaxOccupancy: 2}
	require.NoError(t, db.Create(&room).Error)

	clk := clock.Fixed{T: now}
	settings := services.NewSettingsService(db, services.Policy{CheckoutCutoff: 12 * time.Hour})
	reservations := services.NewReservationService(db, clk, settings, nil, zap.NewNop())

	router := SetupRouter(Deps{
		Reservations: controllers.NewReservationController(reservations),
		Rooms:        controllers.NewRoomController(services.NewRoomService(db), reservations),
		RoomTypes:    controllers.NewRoomTypeController(services.NewRoomTypeService(db)),
		Customers:    controllers.NewCustomerController(services.NewCustomerService(db)),
		Settings:     controllers.NewSettingsController(settings),
		Log:          zap.NewNop(),
	})
	return &apiHarness{router: router, db: db, room: room}
}

func (h *apiHarness) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
	actor := map[string]string{"X-Actor-ID": "7"}

	code, env := h.do(t, http.MethodPost, "/api/customers", map[string]any{"fullName": "Malee Srisuk", "email": "Malee@Example.com"}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	customer := decode[models.Customer](t, env.Data)
	assert.Equal(t, "malee@example.com", customer.Email)

	code, env = h.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"customer_id": customer.ID,
		"check_in":    "2025-03-10",
		"check_out":   "2025-03-12",
		"rooms":       []map[string]any{{"room_id": h.room.ID, "nightly_rate": 150000}},
	}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	res := decode[struct {
		ID          uint                     `json:"id"`
		Status      models.ReservationStatus `json:"status"`
		TotalAmount int64                    `json:"total_amount"`
	}](t, env.Data)
	assert.Equal(t, models.ReservationConfirmed, res.Status)
	assert.Equal(t, int64(300000), res.TotalAmount)

	base := fmt.Sprintf("/api/reservations/%d", res.ID)

	code, env = h.do(t, http.MethodPost, base+"/checkin", nil, nil)
	require.Equal(t, http.StatusOK, code, env.Error.Message)

	// no actor header
	code, env = h.do(t, http.MethodPost, base+"/payments", map[string]any{"amount": 100000, "method": "cash"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "missing_actor", env.Error.Code)

	code, env = h.do(t, http.MethodPost, base+"/payments", map[string]any{"amount_decimal": "1000.00", "method": "cash"}, actor)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)
	paid := decode[struct {
		Payment struct {
			ID     uint  `json:"id"`
			Amount int64 `json:"amount"`
		} `json:"payment"`
		BalanceDue int64 `json:"balance_due"`
	}](t, env.Data)
	assert.Equal(t, int64(100000), paid.Payment.Amount)
	assert.Equal(t, int64(200000), paid.BalanceDue)

	code, env = h.do(t, http.MethodPost, base+"/payments", map[string]any{"amount": 500000, "method": "cash"}, actor)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "payment_exceeds_balance", env.Error.Code)

	code, env = h.do(t, http.MethodGet, base+"/summary", nil, nil)
	require.Equal(t, http.StatusOK, code)
	summary := decode[struct {
		LodgingTotal  int64  `json:"total_lodging"`
		PaymentsTotal int64  `json:"payments_total"`
		BalanceDue    int64  `json:"balance_due"`
		Status        string `json:"status"`
	}](t, env.Data)
	assert.Equal(t, int64(300000), summary.LodgingTotal)
	assert.Equal(t, int64(100000), summary.PaymentsTotal)
	assert.Equal(t, int64(200000), summary.BalanceDue)
	assert.Equal(t, string(models.PaymentPartial), summary.Status)

	code, env = h.do(t, http.MethodPost, fmt.Sprintf("%s/payments/%d/reverse", base, paid.Payment.ID), nil, actor)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)

	code, env = h.do(t, http.MethodPost, fmt.Sprintf("%s/payments/%d/reverse", base, paid.Payment.ID), nil, actor)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "payment_already_reversed", env.Error.Code)

	code, env = h.do(t, http.MethodGet, base+"/payments", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 2)
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))

	code, env := h.do(t, http.MethodGet, "/api/reservations/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "reservation_not_found", env.Error.Code)

	code, env = h.do(t, http.MethodGet, "/api/reservations/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_id", env.Error.Code)

	code, env = h.do(t, http.MethodGet, "/api/customers/42", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "customer_not_found", env.Error.Code)

	code, env = h.do(t, http.MethodPost, "/api/customers", map[string]any{"fullName": "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "missing_name", env.Error.Code)

	code, env = h.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d/availability?check_in=2025-03-10&check_out=2025-03-10", h.room.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_date_range", env.Error.Code)
}

func TestRoomAvailabilityOverHTTP(t *testing.T) {
	h := newHarness(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))

	customer := models.Customer{FullName: "Anan"}
	require.NoError(t, h.db.Create(&customer).Error)

	code, env := h.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"customer_id": customer.ID,
		"rooms":       []map[string]any{{"room_id": h.room.ID, "check_in": "2025-03-15", "check_out": "2025-03-17"}},
	}, nil)
	require.Equal(t, http.StatusCreated, code, env.Error.Message)

	check := func(from, to string) bool {
		code, env := h.do(t, http.MethodGet, fmt.Sprintf("/api/rooms/%d/availability?check_in=%s&check_out=%s", h.room.ID, from, to), nil, nil)
		require.Equal(t, http.StatusOK, code, env.Error.Message)
		return decode[struct {
			Available bool `json:"available"`
		}](t, env.Data).Available
	}
	assert.True(t, check("2025-03-13", "2025-03-15"), "ends on arrival day")
	assert.False(t, check("2025-03-16", "2025-03-18"))
	assert.True(t, check("2025-03-17", "2025-03-19"), "starts on departure day")

	code, env = h.do(t, http.MethodPost, "/api/reservations", map[string]any{
		"customer_id": customer.ID,
		"rooms":       []map[string]any{{"room_id": h.room.ID, "check_in": "2025-03-16", "check_out": "2025-03-18"}},
	}, nil)
	assert.Equal(t, http.StatusConflict, code)
}
