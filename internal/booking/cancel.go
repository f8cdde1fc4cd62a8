package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// CancelRequest describes a PATCH-style cancellation.
type CancelRequest struct {
	ReservationID      uint64
	ActorID            uint64
	AsAdmin            bool
	CancellationReason *string
	// RestoreCredits asks for the booking credit back.  Within the
	// cancellation cutoff the credit is forfeited unless
	// PolicyOverride is set.
	RestoreCredits bool
	PolicyOverride bool
}

// CancelResult reports a cancellation and its side effects.
type CancelResult struct {
	Reservation     *model.Reservation
	CreditsRestored bool
	// Promoted is the reservation auto-created for the waitlist head,
	// nil when the waitlist was empty.
	Promoted    *model.Reservation
	ClassStatus string
}

// Cancel transitions a reservation to CANCELLED, optionally restores
// the booking credit and promotes the waitlist head into the freed
// spot.  Students may only cancel their own reservations.
func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ReservationForUpdate(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if !req.AsAdmin && res.UserID != req.ActorID {
		return nil, ErrForbidden
	}
	if res.Status == model.ReservationCancelled {
		return nil, ErrAlreadyCancelled
	}
	class, err := tx.ClassForUpdate(ctx, res.ClassID)
	if err != nil {
		return nil, err
	}

	freedSpot := res.Status == model.ReservationConfirmed || res.Status == model.ReservationCheckedIn

	now := s.now()
	res.Status = model.ReservationCancelled
	res.CancelledAt = &now
	if req.CancellationReason != nil {
		res.CancellationReason = req.CancellationReason
	}
	if err := tx.UpdateReservation(ctx, res); err != nil {
		return nil, err
	}

	result := &CancelResult{Reservation: res}

	if req.RestoreCredits && res.PackageID != nil {
		late := s.policy.CancellationCutoff > 0 && class.StartsAt.Sub(now) < s.policy.CancellationCutoff
		if !late || req.PolicyOverride {
			pkg, err := tx.PackageForUpdate(ctx, *res.PackageID)
			if err != nil {
				return nil, err
			}
			if err := s.applyCreditDelta(ctx, tx, pkg, -1, &req.ActorID,
				fmt.Sprintf("restored by cancellation of reservation %s", res.Reference)); err != nil {
				return nil, err
			}
			result.CreditsRestored = true
		}
	}

	if freedSpot {
		promoted, err := s.promoteHead(ctx, tx, class, &req.ActorID)
		if err != nil {
			return nil, err
		}
		result.Promoted = promoted
	}
	status, err := s.refreshClassStatus(ctx, tx, class)
	if err != nil {
		return nil, err
	}
	result.ClassStatus = status

	if err := s.audit(ctx, tx, &req.ActorID, "reservation.cancel", "reservation", res.ID,
		fmt.Sprintf("class=%d user=%d restored=%t", res.ClassID, res.UserID, result.CreditsRestored)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete hard-deletes a reservation (admin only, enforced by the
// route).  A credit consumed at booking time is refunded unless the
// reservation was already cancelled, and the waitlist head is promoted
// into the freed spot.
func (s *Service) Delete(ctx context.Context, reservationID, actorID uint64) (*CancelResult, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ReservationForUpdate(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	class, err := tx.ClassForUpdate(ctx, res.ClassID)
	if err != nil {
		return nil, err
	}

	freedSpot := res.Status == model.ReservationConfirmed || res.Status == model.ReservationCheckedIn

	if err := tx.DeleteReservation(ctx, res.ID); err != nil {
		return nil, err
	}

	result := &CancelResult{Reservation: res}

	if res.PackageID != nil && res.Status != model.ReservationCancelled {
		pkg, err := tx.PackageForUpdate(ctx, *res.PackageID)
		if err != nil {
			return nil, err
		}
		if err := s.applyCreditDelta(ctx, tx, pkg, -1, &actorID,
			fmt.Sprintf("refunded by deletion of reservation %s", res.Reference)); err != nil {
			return nil, err
		}
		result.CreditsRestored = true
	}

	if freedSpot {
		promoted, err := s.promoteHead(ctx, tx, class, &actorID)
		if err != nil {
			return nil, err
		}
		result.Promoted = promoted
	}
	status, err := s.refreshClassStatus(ctx, tx, class)
	if err != nil {
		return nil, err
	}
	result.ClassStatus = status

	if err := s.audit(ctx, tx, &actorID, "reservation.delete", "reservation", res.ID,
		fmt.Sprintf("class=%d user=%d", res.ClassID, res.UserID)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// promoteHead pops the waitlist head of the class, creates a CONFIRMED
// reservation for that student and compacts the remaining priorities
// so they stay dense from 1.  A head entry whose student meanwhile
// acquired an active reservation is dropped and the next entry is
// considered, so promotion never produces a second reservation for the
// same (student, class).  Promoted reservations carry no package;
// credits are settled when the student attends.  Returns nil when the
// waitlist is empty.
func (s *Service) promoteHead(ctx context.Context, tx Tx, class *model.Class, actor *uint64) (*model.Reservation, error) {
	var head *model.WaitlistEntry
	for {
		var err error
		head, err = tx.WaitlistHead(ctx, class.ID)
		if err != nil {
			return nil, err
		}
		if head == nil {
			return nil, nil
		}
		booked, err := tx.HasActiveReservation(ctx, class.ID, head.UserID)
		if err != nil {
			return nil, err
		}
		if !booked {
			break
		}
		if err := tx.RemoveWaitlistEntry(ctx, head.ID); err != nil {
			return nil, err
		}
		if err := tx.CloseWaitlistGap(ctx, class.ID, head.Priority); err != nil {
			return nil, err
		}
		if err := s.audit(ctx, tx, actor, "waitlist.drop", "class", class.ID,
			fmt.Sprintf("user=%d already booked", head.UserID)); err != nil {
			return nil, err
		}
	}
	promoted := &model.Reservation{
		Reference:  uuid.NewString(),
		ClassID:    class.ID,
		UserID:     head.UserID,
		FrameSize:  head.FrameSize,
		Status:     model.ReservationConfirmed,
		ReservedAt: s.now(),
	}
	if err := tx.InsertReservation(ctx, promoted); err != nil {
		return nil, err
	}
	if err := tx.RemoveWaitlistEntry(ctx, head.ID); err != nil {
		return nil, err
	}
	if err := tx.CloseWaitlistGap(ctx, class.ID, head.Priority); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, actor, "waitlist.promote", "class", class.ID,
		fmt.Sprintf("user=%d frame=%s", head.UserID, head.FrameSize)); err != nil {
		return nil, err
	}
	return promoted, nil
}
