// Package metrics exposes prometheus counters for booking activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsCreated counts confirmed reservations, labelled by
	// how the spot was obtained (booked, promoted, override).
	ReservationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_reservations_created_total",
		Help: "Confirmed reservations created.",
	}, []string{"via"})

	ReservationsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_reservations_cancelled_total",
		Help: "Reservations cancelled.",
	})

	WaitlistAdds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_waitlist_adds_total",
		Help: "Students placed on a class waitlist.",
	})

	WaitlistPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_waitlist_promotions_total",
		Help: "Waitlist entries promoted into reservations.",
	})

	// CreditMutations counts ledger writes, labelled consume or restore.
	CreditMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studio_credit_mutations_total",
		Help: "Package credit consume/restore operations.",
	}, []string{"kind"})

	AttendanceUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studio_attendance_updates_total",
		Help: "Attendance status changes recorded by instructors.",
	})
)
