package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// Policy carries the configurable business rules of the booking flow.
type Policy struct {
	// AllowPendingPaymentPackages admits PENDING_PAYMENT packages as
	// booking credit sources.  The studio deliberately lets trusted
	// students book before paying; turning this off makes payment a
	// precondition.
	AllowPendingPaymentPackages bool
	// CancellationCutoff is the window before class start inside which
	// a cancellation forfeits its credit unless policyOverride is set.
	// Zero disables the cutoff.
	CancellationCutoff time.Duration
}

// Service owns every mutation of reservations, waitlists, class status
// and package credits.  Each operation runs in one transaction with
// the class row locked, which serializes the capacity-check-then-insert
// sequence per class.
type Service struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// NewService builds a Service on top of the given store.
func NewService(store Store, policy Policy) *Service {
	return &Service{store: store, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// Outcomes of a Book call.
const (
	OutcomeBooked     = "BOOKED"
	OutcomeWaitlisted = "WAITLISTED"
)

// BookRequest describes one booking attempt.
type BookRequest struct {
	ClassID   uint64
	UserID    uint64  // student the spot is for
	FrameSize string
	PackageID *uint64
	// AsAdmin marks an admin caller: capacity becomes advisory and a
	// full frame yields an OverrideRequiredError instead of a waitlist
	// entry.  Force skips that confirmation and books past capacity.
	AsAdmin bool
	Force   bool
	ActorID uint64 // who performed the action; differs from UserID for admin bookings
}

// BookResult reports what Book did.  Reservation is set on the BOOKED
// outcome, WaitlistPosition on WAITLISTED.
type BookResult struct {
	Outcome          string
	Reservation      *model.Reservation
	WaitlistPosition int
	ClassStatus      string
	Distribution     Distribution
	Capacities       Capacities
	CreditsRemaining *uint32 // set when a package was charged
}

// Book runs the reservation state machine: duplicate check, package
// usability check, per-frame capacity check, then either creates a
// CONFIRMED reservation, enqueues a waitlist entry (students) or asks
// the admin to confirm the override.  Class FULL flip and credit
// consumption happen in the same transaction as the insert.
func (s *Service) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	if !ValidFrameSize(req.FrameSize) {
		return nil, ErrInvalidFrameSize
	}
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	class, err := tx.ClassForUpdate(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if class.Status == model.ClassCancelled || class.Status == model.ClassCompleted {
		return nil, ErrClassNotBookable
	}

	exists, err := tx.HasActiveReservation(ctx, req.ClassID, req.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateReservation
	}
	// A waitlisted student already holds a claim on the class; a second
	// booking attempt must not stack another entry (or a reservation
	// that a later promotion would duplicate).
	waitlisted, err := tx.HasWaitlistEntry(ctx, req.ClassID, req.UserID)
	if err != nil {
		return nil, err
	}
	if waitlisted {
		return nil, ErrAlreadyWaitlisted
	}

	var pkg *model.Package
	if req.PackageID != nil {
		pkg, err = s.usablePackage(ctx, tx, *req.PackageID, req.UserID)
		if err != nil {
			return nil, err
		}
	}

	caps := CapacitiesOf(class)
	existing, err := tx.ActiveFrameSizes(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	hasCapacity, dist := Evaluate(existing, caps, req.FrameSize)

	if !hasCapacity && !req.Force {
		if req.AsAdmin {
			// Nothing is created; the admin must confirm the override.
			return nil, &OverrideRequiredError{Distribution: dist, Capacities: caps}
		}
		return s.enqueueWaitlist(ctx, tx, class, req, dist, caps)
	}

	res := &model.Reservation{
		Reference:  uuid.NewString(),
		ClassID:    req.ClassID,
		UserID:     req.UserID,
		PackageID:  req.PackageID,
		FrameSize:  req.FrameSize,
		Status:     model.ReservationConfirmed,
		ReservedAt: s.now(),
	}
	if err := tx.InsertReservation(ctx, res); err != nil {
		return nil, err
	}
	switch req.FrameSize {
	case FrameSmall:
		dist.Small++
	case FrameMedium:
		dist.Medium++
	case FrameLarge:
		dist.Large++
	}

	classStatus, err := s.refreshClassStatus(ctx, tx, class)
	if err != nil {
		return nil, err
	}

	result := &BookResult{
		Outcome:      OutcomeBooked,
		Reservation:  res,
		ClassStatus:  classStatus,
		Distribution: dist,
		Capacities:   caps,
	}

	if pkg != nil {
		if err := s.applyCreditDelta(ctx, tx, pkg, +1, &req.ActorID,
			fmt.Sprintf("consumed by reservation %s", res.Reference)); err != nil {
			return nil, err
		}
		remaining := pkg.Remaining()
		result.CreditsRemaining = &remaining
	}

	if err := s.audit(ctx, tx, &req.ActorID, "reservation.create", "reservation", res.ID,
		fmt.Sprintf("class=%d user=%d frame=%s", req.ClassID, req.UserID, req.FrameSize)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// enqueueWaitlist appends the student at the tail of the class
// waitlist.  The new priority is always current length + 1, which
// keeps the sequence dense without renumbering.
func (s *Service) enqueueWaitlist(ctx context.Context, tx Tx, class *model.Class, req BookRequest, dist Distribution, caps Capacities) (*BookResult, error) {
	size, err := tx.WaitlistSize(ctx, class.ID)
	if err != nil {
		return nil, err
	}
	entry := &model.WaitlistEntry{
		ClassID:   class.ID,
		UserID:    req.UserID,
		FrameSize: req.FrameSize,
		Priority:  uint32(size + 1),
	}
	if err := tx.InsertWaitlistEntry(ctx, entry); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, tx, &req.ActorID, "waitlist.join", "class", class.ID,
		fmt.Sprintf("user=%d frame=%s priority=%d", req.UserID, req.FrameSize, entry.Priority)); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &BookResult{
		Outcome:          OutcomeWaitlisted,
		WaitlistPosition: int(entry.Priority),
		ClassStatus:      class.Status,
		Distribution:     dist,
		Capacities:       caps,
	}, nil
}

// usablePackage loads a package under lock and verifies it can back a
// booking for the given user.
func (s *Service) usablePackage(ctx context.Context, tx Tx, packageID, userID uint64) (*model.Package, error) {
	pkg, err := tx.PackageForUpdate(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.UserID != userID {
		return nil, ErrPackageNotOwned
	}
	switch pkg.Status {
	case model.PackageActive:
	case model.PackagePendingPayment:
		if !s.policy.AllowPendingPaymentPackages {
			return nil, ErrPackageInactive
		}
	default:
		return nil, ErrPackageInactive
	}
	if !pkg.ExpiresAt.IsZero() && pkg.ExpiresAt.Before(s.now()) {
		return nil, ErrPackageExpired
	}
	if pkg.Remaining() == 0 {
		return nil, ErrPackageExhausted
	}
	return pkg, nil
}

// refreshClassStatus recomputes the FULL/SCHEDULED flag from the
// current active booking count and persists it when it changed.  It
// returns the effective status.
func (s *Service) refreshClassStatus(ctx context.Context, tx Tx, class *model.Class) (string, error) {
	if class.Status != model.ClassScheduled && class.Status != model.ClassFull {
		return class.Status, nil
	}
	count, err := tx.CountActive(ctx, class.ID)
	if err != nil {
		return "", err
	}
	want := model.ClassScheduled
	if count >= int(class.Capacity) {
		want = model.ClassFull
	}
	if want != class.Status {
		if err := tx.SetClassStatus(ctx, class.ID, want); err != nil {
			return "", err
		}
		class.Status = want
	}
	return class.Status, nil
}

// audit appends one audit trail row.
func (s *Service) audit(ctx context.Context, tx Tx, actor *uint64, action, entity string, entityID uint64, detail string) error {
	return tx.InsertAudit(ctx, &model.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	})
}
