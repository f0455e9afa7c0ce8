package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"hotel-ledger/services"
)

// FrontDesk is the operational policy read from the environment.
type FrontDesk struct {
	Location *time.Location
	Policy   services.Policy
}

// LoadFrontDesk reads HOTEL_TIMEZONE, CHECKOUT_CUTOFF and DEFAULT_NIGHTLY_RATE.
func LoadFrontDesk() (FrontDesk, error) {
	fd := FrontDesk{Location: time.UTC, Policy: services.Policy{CheckoutCutoff: 12 * time.Hour}}

	if tz := strings.TrimSpace(os.Getenv("HOTEL_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fd, fmt.Errorf("HOTEL_TIMEZONE: %w", err)
		}
		fd.Location = loc
	}

	if raw := strings.TrimSpace(os.Getenv("CHECKOUT_CUTOFF")); raw != "" {
		cutoff, err := services.ParseClock(raw)
		if err != nil {
			return fd, fmt.Errorf("CHECKOUT_CUTOFF: %w", err)
		}
		fd.Policy.CheckoutCutoff = cutoff
	}

	if raw := strings.TrimSpace(os.Getenv("DEFAULT_NIGHTLY_RATE")); raw != "" {
		rate, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || rate < 0 {
			return fd, fmt.Errorf("DEFAULT_NIGHTLY_RATE must be a non-negative integer of minor units, got %q", raw)
		}
		fd.Policy.DefaultNightlyRate = rate
	}
	return fd, nil
}

func envInt(key string, def int) int {
	v, err := strconv.Atoi(envOrDefault(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
