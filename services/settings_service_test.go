package services

import (
	"testing"
	"time"

	"hotel-ledger/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	d, err := ParseClock("12:00")
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)

	d, err = ParseClock(" 09:45 ")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+45*time.Minute, d)

	for _, bad := range []string{"", "24:00", "12", "12:60", "noon", "1:2:3"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSettingsPolicyOverride(t *testing.T) {
	db := newTestDB(t)
	svc := NewSettingsService(db, Policy{CheckoutCutoff: 12 * time.Hour, DefaultNightlyRate: 99000})

	assert.Equal(t, 12*time.Hour, svc.Policy(nil).CheckoutCutoff)

	_, err := svc.Save(models.HotelSetting{Name: "Riverside", CheckoutCutoff: "25:00"})
	var invalidErr *ValidationError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, "checkout_cutoff", invalidErr.Field)

	saved, err := svc.Save(models.HotelSetting{Name: "Riverside", CheckoutCutoff: "11:00"})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	p := svc.Policy(db)
	assert.Equal(t, 11*time.Hour, p.CheckoutCutoff)
	assert.Equal(t, int64(99000), p.DefaultNightlyRate)

	// saving again updates the same row
	again, err := svc.Save(models.HotelSetting{Name: "Riverside Inn"})
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)
	assert.Equal(t, 12*time.Hour, svc.Policy(db).CheckoutCutoff)

	var n int64
	require.NoError(t, db.Model(&models.HotelSetting{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestDefaultNightlyRateIsLastResort(t *testing.T) {
	f := newFixture(t, at(2026, 8, 1, 14, 0))
	f.svc.Settings.Defaults.DefaultNightlyRate = 45000
	require.NoError(t, f.db.Model(&models.Room{}).Where("id = ?", f.roomID("102")).Update("base_rate", 0).Error)

	res := f.book(t, 0, RoomRequest{RoomID: f.roomID("102"), CheckIn: day(2026, 8, 1), CheckOut: day(2026, 8, 3)})
	_, err := f.svc.CheckIn(t.Context(), res.ID)
	require.NoError(t, err)

	for _, n := range f.nights(t, res.ID) {
		assert.Equal(t, int64(45000), n.Price)
	}
	agg, err := f.svc.GetFinancialSummary(t.Context(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), agg.LodgingTotal)
}
