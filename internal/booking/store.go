package booking

import (
	"context"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// Store opens transactions for the booking service.  The production
// implementation lives in internal/repository and wraps *sql.DB; tests
// use an in-memory store.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the unit of work the booking service operates on.  Every
// service operation begins one Tx, performs all reads and writes
// through it and commits at the end, so a crash mid-operation never
// leaves reservations and the credit ledger in different states.
//
// ClassForUpdate and PackageForUpdate must lock the row for the
// duration of the transaction (SELECT ... FOR UPDATE in the SQL
// store); that lock is what serializes concurrent bookings for the
// same class.
type Tx interface {
	Commit() error
	Rollback() error

	// Classes.
	ClassForUpdate(ctx context.Context, classID uint64) (*model.Class, error)
	SetClassStatus(ctx context.Context, classID uint64, status string) error

	// Reservations.  ActiveFrameSizes lists the frame sizes of all
	// CONFIRMED and CHECKED_IN reservations of a class; CountActive is
	// the corresponding count.
	ActiveFrameSizes(ctx context.Context, classID uint64) ([]string, error)
	CountActive(ctx context.Context, classID uint64) (int, error)
	HasActiveReservation(ctx context.Context, classID, userID uint64) (bool, error)
	InsertReservation(ctx context.Context, res *model.Reservation) error
	ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateReservation(ctx context.Context, res *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error

	// Packages.
	PackageForUpdate(ctx context.Context, id uint64) (*model.Package, error)
	UpdatePackageUsage(ctx context.Context, id uint64, usedCredits uint32, status string) error

	// Waitlist.  WaitlistHead returns nil when the queue is empty.
	// CloseWaitlistGap decrements the priority of every entry of the
	// class whose priority exceeds removedPriority, keeping the 1..n
	// sequence dense.
	HasWaitlistEntry(ctx context.Context, classID, userID uint64) (bool, error)
	WaitlistSize(ctx context.Context, classID uint64) (int, error)
	InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error
	WaitlistHead(ctx context.Context, classID uint64) (*model.WaitlistEntry, error)
	RemoveWaitlistEntry(ctx context.Context, id uint64) error
	CloseWaitlistGap(ctx context.Context, classID uint64, removedPriority uint32) error

	// Audit trail.
	InsertAudit(ctx context.Context, entry *model.AuditLog) error
}
