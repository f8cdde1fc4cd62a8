package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

func TestAttendanceDelta(t *testing.T) {
	tests := []struct {
		from, to string
		delta    int
	}{
		{model.ReservationConfirmed, model.ReservationCheckedIn, +1},
		{model.ReservationConfirmed, model.ReservationCompleted, +1},
		{model.ReservationCheckedIn, model.ReservationCompleted, 0},
		{model.ReservationCheckedIn, model.ReservationConfirmed, -1},
		{model.ReservationCheckedIn, model.ReservationNoShow, -1},
		{model.ReservationCompleted, model.ReservationNoShow, -1},
		{model.ReservationConfirmed, model.ReservationNoShow, 0},
		{model.ReservationNoShow, model.ReservationConfirmed, 0},
		{model.ReservationConfirmed, model.ReservationConfirmed, 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.delta, attendanceDelta(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

// attendanceFixture seeds a class owned by instructor 1, a package for
// student 10 and a reservation linking the two.
func attendanceFixture(store *memStore, resStatus string) (*model.Package, *model.Reservation) {
	class := store.addClass(model.Class{
		InstructorID: 1, Capacity: 3, SmallCapacity: 3,
		StartsAt: testTime.Add(time.Hour), EndsAt: testTime.Add(2 * time.Hour),
	})
	pkg := store.addPackage(model.Package{
		UserID: 10, TotalCredits: 4, UsedCredits: 1,
		ExpiresAt: testTime.Add(30 * 24 * time.Hour),
	})
	res := store.addReservation(model.Reservation{
		Reference: "r-1", ClassID: class.ID, UserID: 10,
		PackageID: &pkg.ID, FrameSize: FrameSmall, Status: resStatus,
	})
	return pkg, res
}

func TestSetAttendanceCheckIn(t *testing.T) {
	store := newMemStore()
	pkg, res := attendanceFixture(store, model.ReservationConfirmed)
	svc := newTestService(store, Policy{})

	notes := "good progress"
	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1,
		Status: model.ReservationCheckedIn, ProgressNotes: &notes,
	})
	require.NoError(t, err)

	assert.Equal(t, +1, result.CreditDelta)
	assert.Equal(t, model.ReservationCheckedIn, result.Reservation.Status)
	require.NotNil(t, result.Reservation.CheckedInAt)
	assert.Equal(t, testTime, *result.Reservation.CheckedInAt)
	require.NotNil(t, result.Reservation.ProgressNotes)
	assert.Equal(t, notes, *result.Reservation.ProgressNotes)

	require.NotNil(t, result.Package)
	assert.Equal(t, uint32(2), result.Package.UsedCredits)
	assert.Equal(t, uint32(2), store.packages[pkg.ID].UsedCredits)
	assert.Contains(t, store.auditActions(), "attendance.set")
}

func TestSetAttendanceUndoCheckIn(t *testing.T) {
	store := newMemStore()
	pkg, res := attendanceFixture(store, model.ReservationCheckedIn)
	checkedIn := testTime.Add(-10 * time.Minute)
	store.reservations[res.ID].CheckedInAt = &checkedIn
	svc := newTestService(store, Policy{})

	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationConfirmed,
	})
	require.NoError(t, err)

	assert.Equal(t, -1, result.CreditDelta)
	assert.Nil(t, result.Reservation.CheckedInAt)
	assert.Equal(t, uint32(0), store.packages[pkg.ID].UsedCredits)
	assert.Contains(t, store.auditActions(), "credit.restore")
}

func TestSetAttendanceNoShowAfterCheckIn(t *testing.T) {
	store := newMemStore()
	pkg, res := attendanceFixture(store, model.ReservationCheckedIn)
	svc := newTestService(store, Policy{})

	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationNoShow,
	})
	require.NoError(t, err)

	assert.Equal(t, -1, result.CreditDelta)
	assert.Equal(t, uint32(0), store.packages[pkg.ID].UsedCredits)
}

func TestSetAttendanceNoShowWithoutCheckIn(t *testing.T) {
	store := newMemStore()
	pkg, res := attendanceFixture(store, model.ReservationConfirmed)
	svc := newTestService(store, Policy{})

	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationNoShow,
	})
	require.NoError(t, err)

	// CONFIRMED never entered the attended set, so no credit moves.
	assert.Equal(t, 0, result.CreditDelta)
	assert.Equal(t, uint32(1), store.packages[pkg.ID].UsedCredits)
}

func TestSetAttendanceClampsAtCeiling(t *testing.T) {
	store := newMemStore()
	class := store.addClass(model.Class{
		InstructorID: 1, Capacity: 3, SmallCapacity: 3,
		StartsAt: testTime.Add(time.Hour), EndsAt: testTime.Add(2 * time.Hour),
	})
	pkg := store.addPackage(model.Package{
		UserID: 10, TotalCredits: 2, UsedCredits: 2, Status: model.PackageUsedUp,
		ExpiresAt: testTime.Add(30 * 24 * time.Hour),
	})
	res := store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, PackageID: &pkg.ID, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationCheckedIn,
	})
	require.NoError(t, err)

	// used_credits never exceeds the purchased total.
	assert.Equal(t, +1, result.CreditDelta)
	assert.Equal(t, uint32(2), store.packages[pkg.ID].UsedCredits)
	assert.Equal(t, model.PackageUsedUp, store.packages[pkg.ID].Status)
}

func TestSetAttendanceRestoreReactivatesUsedUp(t *testing.T) {
	store := newMemStore()
	class := store.addClass(model.Class{
		InstructorID: 1, Capacity: 3, SmallCapacity: 3,
		StartsAt: testTime.Add(time.Hour), EndsAt: testTime.Add(2 * time.Hour),
	})
	pkg := store.addPackage(model.Package{
		UserID: 10, TotalCredits: 2, UsedCredits: 2, Status: model.PackageUsedUp,
		ExpiresAt: testTime.Add(30 * 24 * time.Hour),
	})
	res := store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, PackageID: &pkg.ID, FrameSize: FrameSmall,
		Status: model.ReservationCheckedIn,
	})
	svc := newTestService(store, Policy{})

	_, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationConfirmed,
	})
	require.NoError(t, err)

	assert.Equal(t, uint32(1), store.packages[pkg.ID].UsedCredits)
	assert.Equal(t, model.PackageActive, store.packages[pkg.ID].Status)
}

func TestSetAttendanceRejectsForeignClass(t *testing.T) {
	store := newMemStore()
	_, res := attendanceFixture(store, model.ReservationConfirmed)
	svc := newTestService(store, Policy{})

	_, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 2, Status: model.ReservationCheckedIn,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetAttendanceRejectsCancelledReservation(t *testing.T) {
	store := newMemStore()
	_, res := attendanceFixture(store, model.ReservationCancelled)
	svc := newTestService(store, Policy{})

	_, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationCheckedIn,
	})
	assert.ErrorIs(t, err, ErrReservationCancelled)
}

func TestSetAttendanceRejectsIllegalTarget(t *testing.T) {
	store := newMemStore()
	_, res := attendanceFixture(store, model.ReservationConfirmed)
	svc := newTestService(store, Policy{})

	for _, status := range []string{model.ReservationCancelled, "LATE", ""} {
		_, err := svc.SetAttendance(context.Background(), AttendanceRequest{
			ReservationID: res.ID, InstructorID: 1, Status: status,
		})
		assert.ErrorIs(t, err, ErrInvalidStatus, "status %q", status)
	}
}

func TestSetAttendanceWithoutPackage(t *testing.T) {
	store := newMemStore()
	class := store.addClass(model.Class{
		InstructorID: 1, Capacity: 3, SmallCapacity: 3,
		StartsAt: testTime.Add(time.Hour), EndsAt: testTime.Add(2 * time.Hour),
	})
	res := store.addReservation(model.Reservation{
		ClassID: class.ID, UserID: 10, FrameSize: FrameSmall,
	})
	svc := newTestService(store, Policy{})

	result, err := svc.SetAttendance(context.Background(), AttendanceRequest{
		ReservationID: res.ID, InstructorID: 1, Status: model.ReservationCheckedIn,
	})
	require.NoError(t, err)

	assert.Equal(t, +1, result.CreditDelta)
	assert.Nil(t, result.Package)
}
