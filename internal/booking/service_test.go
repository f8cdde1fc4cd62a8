package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// threeFrameClass seeds a class with one spot per frame size, starting
// well outside any cancellation cutoff.
func threeFrameClass(m *memStore) *model.Class {
	return m.addClass(model.Class{
		InstructorID:   1,
		Title:          "Morning session",
		StartsAt:       testTime.Add(48 * time.Hour),
		EndsAt:         testTime.Add(49 * time.Hour),
		Capacity:       3,
		SmallCapacity:  1,
		MediumCapacity: 1,
		LargeCapacity:  1,
	})
}

func TestBookCreatesConfirmedReservation(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	svc := newTestService(store, Policy{})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeBooked, result.Outcome)
	require.NotNil(t, result.Reservation)
	assert.NotZero(t, result.Reservation.ID)
	assert.NotEmpty(t, result.Reservation.Reference)
	assert.Equal(t, model.ReservationConfirmed, result.Reservation.Status)
	assert.Equal(t, testTime, result.Reservation.ReservedAt)
	assert.Equal(t, Distribution{Small: 1}, result.Distribution)
	assert.Equal(t, model.ClassScheduled, result.ClassStatus)
	assert.Nil(t, result.CreditsRemaining)
	assert.Contains(t, store.auditActions(), "reservation.create")
}

func TestBookConsumesPackageCredit(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	pkg := store.addPackage(model.Package{
		UserID: 10, Name: "4-class pack", TotalCredits: 4, UsedCredits: 1,
		ExpiresAt: testTime.Add(30 * 24 * time.Hour),
	})
	svc := newTestService(store, Policy{})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameMedium, PackageID: &pkg.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, result.CreditsRemaining)
	assert.Equal(t, uint32(2), *result.CreditsRemaining)
	assert.Equal(t, uint32(2), store.packages[pkg.ID].UsedCredits)
	assert.Equal(t, model.PackageActive, store.packages[pkg.ID].Status)
	assert.Contains(t, store.auditActions(), "credit.consume")
}

func TestBookLastCreditFlipsPackageUsedUp(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	pkg := store.addPackage(model.Package{
		UserID: 10, TotalCredits: 2, UsedCredits: 1,
		ExpiresAt: testTime.Add(30 * 24 * time.Hour),
	})
	svc := newTestService(store, Policy{})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall, PackageID: &pkg.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, result.CreditsRemaining)
	assert.Equal(t, uint32(0), *result.CreditsRemaining)
	assert.Equal(t, model.PackageUsedUp, store.packages[pkg.ID].Status)
}

func TestBookRejectsInvalidFrameSize(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	svc := newTestService(store, Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: "tiny",
	})
	assert.ErrorIs(t, err, ErrInvalidFrameSize)
}

func TestBookRejectsUnknownClass(t *testing.T) {
	svc := newTestService(newMemStore(), Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: 99, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	assert.ErrorIs(t, err, ErrClassNotFound)
}

func TestBookRejectsCancelledClass(t *testing.T) {
	store := newMemStore()
	class := store.addClass(model.Class{
		Capacity: 3, SmallCapacity: 3, Status: model.ClassCancelled,
		StartsAt: testTime.Add(time.Hour), EndsAt: testTime.Add(2 * time.Hour),
	})
	svc := newTestService(store, Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	assert.ErrorIs(t, err, ErrClassNotBookable)
}

func TestBookRejectsDuplicateReservation(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	svc := newTestService(store, Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	require.NoError(t, err)

	// A second attempt for the same class, even with another frame
	// size, is a conflict while the first reservation is active.
	_, err = svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameMedium,
	})
	assert.ErrorIs(t, err, ErrDuplicateReservation)
}

func TestBookAfterCancellationIsAllowed(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
		Status: model.ReservationCancelled,
	})
	svc := newTestService(store, Policy{})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBooked, result.Outcome)
}

func TestBookStudentJoinsWaitlistWhenFrameFull(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	first, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 11, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaitlisted, first.Outcome)
	assert.Equal(t, 1, first.WaitlistPosition)
	assert.Nil(t, first.Reservation)

	second, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 12, ActorID: 12, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.WaitlistPosition)
	assert.Contains(t, store.auditActions(), "waitlist.join")
}

func TestBookWhileWaitlistedConflicts(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	first, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 11, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitlisted, first.Outcome)

	// Retrying the full frame must not enqueue a second entry.
	_, err = svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 11, FrameSize: FrameSmall,
	})
	assert.ErrorIs(t, err, ErrAlreadyWaitlisted)
	assert.Len(t, store.waitlist, 1)

	// Booking a free frame while waitlisted would hand the student a
	// claim a later promotion duplicates, so it conflicts too.
	_, err = svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 11, FrameSize: FrameMedium,
	})
	assert.ErrorIs(t, err, ErrAlreadyWaitlisted)
	assert.Len(t, store.reservations, 1)
}

func TestBookAdminNeedsOverrideWhenFrameFull(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 1, AsAdmin: true, FrameSize: FrameSmall,
	})

	var overrideErr *OverrideRequiredError
	require.True(t, errors.As(err, &overrideErr))
	assert.Equal(t, Distribution{Small: 1}, overrideErr.Distribution)
	assert.Equal(t, Capacities{Small: 1, Medium: 1, Large: 1}, overrideErr.Capacities)
	// Nothing must have been created.
	assert.Empty(t, store.waitlist)
	assert.Len(t, store.reservations, 1)
}

func TestBookAdminForceBooksPastCapacity(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 1, AsAdmin: true, Force: true, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBooked, result.Outcome)
	assert.Equal(t, Distribution{Small: 2}, result.Distribution)
}

func TestBookFlipsClassFullAtCapacity(t *testing.T) {
	store := newMemStore()
	class := store.addClass(model.Class{
		Capacity: 2, SmallCapacity: 1, MediumCapacity: 1,
		StartsAt: testTime.Add(48 * time.Hour), EndsAt: testTime.Add(49 * time.Hour),
	})
	svc := newTestService(store, Policy{})

	first, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ClassScheduled, first.ClassStatus)

	second, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 11, ActorID: 11, FrameSize: FrameMedium,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ClassFull, second.ClassStatus)
	assert.Equal(t, model.ClassFull, store.classes[class.ID].Status)
}

func TestBookPackageOwnership(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	pkg := store.addPackage(model.Package{
		UserID: 77, TotalCredits: 4, ExpiresAt: testTime.Add(24 * time.Hour),
	})
	svc := newTestService(store, Policy{})

	_, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall, PackageID: &pkg.ID,
	})
	assert.ErrorIs(t, err, ErrPackageNotOwned)
}

func TestBookPackageUsability(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, Policy{})

	tests := []struct {
		name string
		pkg  model.Package
		want error
	}{
		{
			name: "expired",
			pkg:  model.Package{UserID: 10, TotalCredits: 4, ExpiresAt: testTime.Add(-time.Minute)},
			want: ErrPackageExpired,
		},
		{
			name: "exhausted",
			pkg: model.Package{UserID: 10, TotalCredits: 2, UsedCredits: 2,
				ExpiresAt: testTime.Add(24 * time.Hour)},
			want: ErrPackageExhausted,
		},
		{
			name: "marked expired",
			pkg: model.Package{UserID: 10, TotalCredits: 4, Status: model.PackageExpired,
				ExpiresAt: testTime.Add(24 * time.Hour)},
			want: ErrPackageInactive,
		},
		{
			name: "pending payment by default",
			pkg: model.Package{UserID: 10, TotalCredits: 4, Status: model.PackagePendingPayment,
				ExpiresAt: testTime.Add(24 * time.Hour)},
			want: ErrPackageInactive,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			class := threeFrameClass(store)
			pkg := store.addPackage(tc.pkg)
			_, err := svc.Book(context.Background(), BookRequest{
				ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall, PackageID: &pkg.ID,
			})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBookPendingPaymentAllowedByPolicy(t *testing.T) {
	store := newMemStore()
	class := threeFrameClass(store)
	pkg := store.addPackage(model.Package{
		UserID: 10, TotalCredits: 1, Status: model.PackagePendingPayment,
		ExpiresAt: testTime.Add(24 * time.Hour),
	})
	svc := newTestService(store, Policy{AllowPendingPaymentPackages: true})

	result, err := svc.Book(context.Background(), BookRequest{
		ClassID: class.ID, UserID: 10, ActorID: 10, FrameSize: FrameSmall, PackageID: &pkg.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeBooked, result.Outcome)
	// Consuming the only credit flips even a pending package to USED_UP.
	assert.Equal(t, model.PackageUsedUp, store.packages[pkg.ID].Status)
}
