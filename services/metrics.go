package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const dateLayout = "2006-01-02"

var (
	availabilityConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_ledger_availability_conflicts_total",
		Help: "Booking or check-in attempts rejected because the room was taken.",
	}, []string{"reason"})

	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_ledger_payments_recorded_total",
		Help: "Payments appended to the ledger, by method.",
	}, []string{"method"})

	paymentsReversed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotel_ledger_payments_reversed_total",
		Help: "Reversal rows appended to the ledger.",
	})

	nightsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotel_ledger_nights_created_total",
		Help: "Night rows materialized by the coverage generator.",
	})

	consistencyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotel_ledger_consistency_errors_total",
		Help: "Ledger self-checks that failed. Any non-zero value is a bug.",
	}, []string{"code"})
)
