package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hotel-ledger/models"

	"gorm.io/gorm"
)

// Policy is the operational front-desk policy the ledger depends on.
type Policy struct {
	// CheckoutCutoff is the time of day (offset from local midnight) after which a room
	// whose stay ends today can be re-let the same day.
	CheckoutCutoff time.Duration
	// DefaultNightlyRate is the last-resort nightly price, in minor units, when neither the
	// reservation nor the room catalog carries a price.
	DefaultNightlyRate int64
}

// SettingsService merges env defaults with the hotel_settings row.
type SettingsService struct {
	DB       *gorm.DB
	Defaults Policy
}

func NewSettingsService(db *gorm.DB, defaults Policy) *SettingsService {
	return &SettingsService{DB: db, Defaults: defaults}
}

// Policy reads the effective policy through tx so it is consistent with the rest of the
// transaction.
func (s *SettingsService) Policy(tx *gorm.DB) Policy {
	p := s.Defaults
	if tx == nil {
		tx = s.DB
	}
	if tx == nil {
		return p
	}

	var hotel models.HotelSetting
	if err := tx.Order("id ASC").Limit(1).Find(&hotel).Error; err != nil || hotel.ID == 0 {
		return p
	}
	if cutoff, err := ParseClock(hotel.CheckoutCutoff); err == nil {
		p.CheckoutCutoff = cutoff
	}
	return p
}

func (s *SettingsService) Get() (models.HotelSetting, error) {
	var hotel models.HotelSetting
	if err := s.DB.Order("id ASC").First(&hotel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.HotelSetting{}, nil
		}
		return hotel, fmt.Errorf("failed to load hotel settings: %w", err)
	}
	return hotel, nil
}

// Save upserts the single settings row. An empty cutoff clears the override.
func (s *SettingsService) Save(in models.HotelSetting) (models.HotelSetting, error) {
	in.CheckoutCutoff = strings.TrimSpace(in.CheckoutCutoff)
	if in.CheckoutCutoff != "" {
		if _, err := ParseClock(in.CheckoutCutoff); err != nil {
			return in, invalid("checkout_cutoff", "invalid_cutoff", "%v", err)
		}
	}

	current, err := s.Get()
	if err != nil {
		return in, err
	}
	in.ID = current.ID
	in.CreatedAt = current.CreatedAt
	if err := s.DB.Save(&in).Error; err != nil {
		return in, fmt.Errorf("failed to save hotel settings: %w", err)
	}
	return in, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
