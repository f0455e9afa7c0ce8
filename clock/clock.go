package clock

import (
	"context"
	"time"
)

type Clock interface {
	Now(ctx context.Context) time.Time
}

// System reads wall time in the hotel's time zone.
type System struct {
	Location *time.Location
}

func (s System) Now(ctx context.Context) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc)
}

// Fixed always returns T. Used by tests and back-office replays.
type Fixed struct {
	T time.Time
}

func (f Fixed) Now(ctx context.Context) time.Time { return f.T }

// DateOf strips the time of day, keeping the calendar date as seen in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
