// Package booking implements the reservation, waitlist, capacity and
// credit logic of the studio.  Every mutation of reservations, class
// status, waitlist priorities and package credits runs through the
// Service in this package, inside one transaction with the class row
// locked.  Handlers translate the sentinel errors below into HTTP
// responses.
package booking

import (
	"errors"
	"fmt"
)

// Not-found sentinels.  The SQL store maps sql.ErrNoRows to these so
// handlers can respond 404 without importing database/sql.
var (
	ErrClassNotFound       = errors.New("class not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPackageNotFound     = errors.New("package not found")
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, e.g. an instructor setting attendance for
// another instructor's class.  Handlers translate this into 403.
var ErrForbidden = errors.New("forbidden")

// Conflict-style violations, detected before any mutation.
var (
	ErrDuplicateReservation = errors.New("an active reservation for this class already exists")
	ErrAlreadyWaitlisted    = errors.New("already on the waitlist for this class")
	ErrClassNotBookable     = errors.New("class is not open for booking")
	ErrReservationCancelled = errors.New("reservation has been cancelled")
	ErrAlreadyCancelled     = errors.New("reservation is already cancelled")
)

// Validation failures.
var (
	ErrInvalidFrameSize = errors.New("invalid frame size")
	ErrInvalidStatus    = errors.New("invalid target status")
)

// Package usability failures.  All are rejected before anything is
// written.
var (
	ErrPackageInactive  = errors.New("package is not active")
	ErrPackageExpired   = errors.New("package has expired")
	ErrPackageExhausted = errors.New("package has no remaining credits")
	ErrPackageNotOwned  = errors.New("package belongs to a different user")
)

// OverrideRequiredError is returned when an admin books into an
// exhausted frame without forceOverride.  Nothing has been created;
// the payload carries the current occupancy so the client can render
// a confirmation prompt.  Handlers translate it into 409.
type OverrideRequiredError struct {
	Distribution Distribution
	Capacities   Capacities
}

func (e *OverrideRequiredError) Error() string {
	return fmt.Sprintf("frame capacity exhausted (%d/%d booked overall); override required",
		e.Distribution.Total(), e.Capacities.Small+e.Capacities.Medium+e.Capacities.Large)
}
