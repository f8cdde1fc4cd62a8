package booking

import (
	"context"
	"fmt"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// attended reports whether a reservation status counts as attended for
// credit bookkeeping.
func attended(status string) bool {
	return status == model.ReservationCheckedIn || status == model.ReservationCompleted
}

// attendanceDelta computes the credit delta of a status transition:
// +1 when moving into the attended set, -1 when moving out of it.
func attendanceDelta(from, to string) int {
	switch {
	case !attended(from) && attended(to):
		return +1
	case attended(from) && !attended(to):
		return -1
	}
	return 0
}

// legalAttendanceTarget is the allow-list of statuses an instructor
// may set.  Cancellations go through Cancel, never through here.
func legalAttendanceTarget(status string) bool {
	switch status {
	case model.ReservationConfirmed, model.ReservationCheckedIn,
		model.ReservationCompleted, model.ReservationNoShow:
		return true
	}
	return false
}

// AttendanceRequest describes an instructor marking attendance.
type AttendanceRequest struct {
	ReservationID uint64
	InstructorID  uint64
	Status        string
	ProgressNotes *string
}

// AttendanceResult reports the updated reservation and the credit
// movement it caused.  Package is set when the reservation is linked
// to one.
type AttendanceResult struct {
	Reservation *model.Reservation
	CreditDelta int
	Package     *model.Package
}

// SetAttendance transitions a reservation's attendance status, scoped
// to classes owned by the calling instructor.  The reservation update
// and the package credit adjustment run in one transaction: toggling a
// check-in must never leave the reservation and the credit ledger in
// different states if the process dies mid-operation.
func (s *Service) SetAttendance(ctx context.Context, req AttendanceRequest) (*AttendanceResult, error) {
	if !legalAttendanceTarget(req.Status) {
		return nil, ErrInvalidStatus
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ReservationForUpdate(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if res.Status == model.ReservationCancelled {
		return nil, ErrReservationCancelled
	}
	class, err := tx.ClassForUpdate(ctx, res.ClassID)
	if err != nil {
		return nil, err
	}
	if class.InstructorID != req.InstructorID {
		return nil, ErrForbidden
	}

	delta := attendanceDelta(res.Status, req.Status)
	previous := res.Status

	res.Status = req.Status
	now := s.now()
	switch req.Status {
	case model.ReservationCheckedIn:
		if res.CheckedInAt == nil {
			res.CheckedInAt = &now
		}
	case model.ReservationConfirmed:
		res.CheckedInAt = nil
	}
	if req.ProgressNotes != nil {
		res.ProgressNotes = req.ProgressNotes
	}
	if err := tx.UpdateReservation(ctx, res); err != nil {
		return nil, err
	}

	result := &AttendanceResult{Reservation: res, CreditDelta: delta}

	if res.PackageID != nil {
		pkg, err := tx.PackageForUpdate(ctx, *res.PackageID)
		if err != nil {
			return nil, err
		}
		if delta != 0 {
			if err := s.applyCreditDelta(ctx, tx, pkg, delta, &req.InstructorID,
				fmt.Sprintf("attendance %s -> %s on reservation %s", previous, req.Status, res.Reference)); err != nil {
				return nil, err
			}
		}
		result.Package = pkg
	}

	if err := s.audit(ctx, tx, &req.InstructorID, "attendance.set", "reservation", res.ID,
		fmt.Sprintf("%s -> %s delta=%d", previous, req.Status, delta)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}
