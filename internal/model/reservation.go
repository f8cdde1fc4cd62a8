package model

import "time"

// Reservation status values.  CONFIRMED is the initial state of a
// booked spot.  CHECKED_IN and COMPLETED count as attended for credit
// bookkeeping.  NO_SHOW and CANCELLED do not.
const (
	ReservationConfirmed = "CONFIRMED"
	ReservationCheckedIn = "CHECKED_IN"
	ReservationCompleted = "COMPLETED"
	ReservationNoShow    = "NO_SHOW"
	ReservationCancelled = "CANCELLED"
)

// Reservation records a student's claim on one class.  At most one
// non-cancelled reservation may exist per (user, class) pair.  A
// reservation may be linked to a credit package, in which case credits
// were consumed when it was created and are adjusted by attendance
// transitions and cancellations.
//
// Fields:
//  ID                 – primary key identifier.
//  Reference          – opaque UUID handed to clients for correlation.
//  ClassID            – class being reserved.
//  UserID             – student who made the reservation.
//  PackageID          – credit package backing the booking (nullable).
//  FrameSize          – requested frame size (SMALL, MEDIUM, LARGE).
//  Status             – state of the reservation.
//  CancellationReason – free-text reason supplied on cancellation.
//  ProgressNotes      – instructor notes recorded with attendance.
//  ReservedAt         – when the booking was made.
//  CheckedInAt        – when the student was checked in (nullable).
//  CancelledAt        – when the reservation was cancelled (nullable).
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Reservation struct {
	ID                 uint64     // reservations.id
	Reference          string     // reservations.reference
	ClassID            uint64     // reservations.class_id
	UserID             uint64     // reservations.user_id
	PackageID          *uint64    // reservations.package_id (nullable)
	FrameSize          string     // reservations.frame_size
	Status             string     // reservations.status
	CancellationReason *string    // reservations.cancellation_reason (nullable)
	ProgressNotes      *string    // reservations.progress_notes (nullable)
	ReservedAt         time.Time  // reservations.reserved_at
	CheckedInAt        *time.Time // reservations.checked_in_at (nullable)
	CancelledAt        *time.Time // reservations.cancelled_at (nullable)
	CreatedAt          time.Time  // reservations.created_at
	UpdatedAt          time.Time  // reservations.updated_at
}
