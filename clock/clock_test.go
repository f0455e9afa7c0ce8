package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOfKeepsLocalCalendarDay(t *testing.T) {
	bkk := time.FixedZone("ICT", 7*3600)
	// 23:30 UTC on the 17th is already the 18th in Bangkok.
	local := time.Date(2026, 10, 17, 23, 30, 0, 0, time.UTC).In(bkk)

	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), DateOf(local))
}

func TestSystemDefaultsToUTC(t *testing.T) {
	now := System{}.Now(context.Background())
	assert.Equal(t, time.UTC, now.Location())
}

func TestFixed(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, at, Fixed{T: at}.Now(context.Background()))
}
