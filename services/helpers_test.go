package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hotel-ledger/models"
	"hotel-ledger/queue"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testClock can be moved while the services hold it.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now(ctx context.Context) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.LedgerEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection: transactions queue up behind each other
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Admin{},
		&models.HotelSetting{},
		&models.RoomType{},
		&models.Customer{},
		&models.Room{},
		&models.Reservation{},
		&models.RoomAssignment{},
		&models.Stay{},
		&models.Night{},
		&models.Payment{},
	))
	return db
}

type fixture struct {
	db       *gorm.DB
	clock    *testClock
	events   *recordingPublisher
	svc      *ReservationService
	customer models.Customer
	admin    models.Admin
	rooms    map[string]models.Room
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	db := newTestDB(t)
	clk := &testClock{now: now}
	events := &recordingPublisher{}
	settings := NewSettingsService(db, Policy{CheckoutCutoff: 12 * time.Hour})

	f := &fixture{
		db:     db,
		clock:  clk,
		events: events,
		svc:    NewReservationService(db, clk, settings, events, zap.NewNop()),
		rooms:  map[string]models.Room{},
	}

	f.customer = models.Customer{FullName: "Somchai Jaidee", Email: "somchai@example.com"}
	require.NoError(t, db.Create(&f.customer).Error)
	f.admin = models.Admin{FullName: "Front Desk", Username: "desk@hotel.local"}
	require.NoError(t, db.Create(&f.admin).Error)

	for _, num := range []string{"101", "102", "103"} {
		r := models.Room{RoomNumber: num, Status: models.RoomStatusAvailable, BaseRate: 150000, MaxOccupancy: 2}
		require.NoError(t, db.Create(&r).Error)
		f.rooms[num] = r
	}
	return f
}

func (f *fixture) roomID(num string) uint { return f.rooms[num].ID }

func (f *fixture) book(t *testing.T, total int64, rooms ...RoomRequest) *models.Reservation {
	t.Helper()
	res, err := f.svc.CreateReservation(context.Background(), CreateReservationInput{
		CustomerID:  f.customer.ID,
		TotalAmount: total,
		Rooms:       rooms,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) pay(t *testing.T, resID uint, amount int64) PaymentResult {
	t.Helper()
	out, err := f.svc.RecordPayment(context.Background(), resID, PaymentInput{
		Amount:  amount,
		Method:  models.MethodCash,
		ActorID: f.admin.ID,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) reload(t *testing.T, resID uint) models.Reservation {
	t.Helper()
	var res models.Reservation
	require.NoError(t, f.db.First(&res, resID).Error)
	return res
}

func (f *fixture) nights(t *testing.T, resID uint) []models.Night {
	t.Helper()
	var out []models.Night
	require.NoError(t, f.db.Where("reservation_id = ?", resID).Order("date ASC, room_id ASC, id ASC").Find(&out).Error)
	return out
}

func (f *fixture) paymentCount(t *testing.T, resID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("reservation_id = ?", resID).Count(&n).Error)
	return n
}

// requireBalanceInvariant checks the cached columns against their definition.
func (f *fixture) requireBalanceInvariant(t *testing.T, resID uint) {
	t.Helper()
	res := f.reload(t, resID)
	want := res.LodgingTotal - res.PaymentsTotal
	if want < 0 {
		want = 0
	}
	require.Equal(t, want, res.BalanceDue, "balance_due must equal max(0, lodging - payments)")
}

func paidFlagsOf(nights []models.Night) []bool {
	out := make([]bool, len(nights))
	for i, n := range nights {
		out[i] = n.Paid
	}
	return out
}
