package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finicafferata/eme-studio-api/internal/booking"
	"github.com/finicafferata/eme-studio-api/internal/model"
)

// BookingStore is the SQL implementation of booking.Store.  Each
// booking.Tx maps to one database transaction; ClassForUpdate and
// PackageForUpdate issue SELECT ... FOR UPDATE so concurrent bookings
// for the same class serialize on the class row.
type BookingStore struct {
	db *sql.DB
}

func NewBookingStore(db *sql.DB) *BookingStore { return &BookingStore{db: db} }

// Begin opens a transaction for the booking service.
func (s *BookingStore) Begin(ctx context.Context) (booking.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &bookingTx{tx: tx}, nil
}

type bookingTx struct {
	tx   *sql.Tx
	done bool
}

func (t *bookingTx) Commit() error {
	t.done = true
	return t.tx.Commit()
}

// Rollback is a no-op after Commit so it can sit in a defer.
func (t *bookingTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

func (t *bookingTx) ClassForUpdate(ctx context.Context, classID uint64) (*model.Class, error) {
	const q = `SELECT ` + classColumns + ` FROM classes WHERE id = ? FOR UPDATE`
	c, err := scanClass(t.tx.QueryRowContext(ctx, q, classID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrClassNotFound
		}
		return nil, err
	}
	return c, nil
}

func (t *bookingTx) SetClassStatus(ctx context.Context, classID uint64, status string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE classes SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, classID)
	return err
}

// activeStatuses filters reservations that occupy a spot.
const activeStatuses = `('CONFIRMED','CHECKED_IN')`

func (t *bookingTx) ActiveFrameSizes(ctx context.Context, classID uint64) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT frame_size FROM reservations WHERE class_id = ? AND status IN `+activeStatuses,
		classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sizes []string
	for rows.Next() {
		var fs string
		if err := rows.Scan(&fs); err != nil {
			return nil, err
		}
		sizes = append(sizes, fs)
	}
	return sizes, rows.Err()
}

func (t *bookingTx) CountActive(ctx context.Context, classID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE class_id = ? AND status IN `+activeStatuses,
		classID).Scan(&n)
	return n, err
}

func (t *bookingTx) HasActiveReservation(ctx context.Context, classID, userID uint64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE class_id = ? AND user_id = ? AND status <> 'CANCELLED' LIMIT 1`,
		classID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *bookingTx) InsertReservation(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
(reference, class_id, user_id, package_id, frame_size, status, reserved_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
	var packageID interface{}
	if res.PackageID != nil {
		packageID = *res.PackageID
	}
	r, err := t.tx.ExecContext(ctx, q,
		res.Reference, res.ClassID, res.UserID, packageID, res.FrameSize, res.Status, res.ReservedAt.UTC())
	if err != nil {
		return err
	}
	id, err := r.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

func (t *bookingTx) ReservationForUpdate(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, reference, class_id, user_id, package_id, frame_size, status,
       cancellation_reason, progress_notes, reserved_at, checked_in_at, cancelled_at, created_at, updated_at
FROM reservations WHERE id = ? FOR UPDATE`
	var (
		res       model.Reservation
		packageID sql.NullInt64
		reason    sql.NullString
		notes     sql.NullString
		checkedIn sql.NullTime
		cancelled sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.Reference, &res.ClassID, &res.UserID, &packageID, &res.FrameSize, &res.Status,
		&reason, &notes, &res.ReservedAt, &checkedIn, &cancelled, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrReservationNotFound
		}
		return nil, err
	}
	if packageID.Valid {
		pid := uint64(packageID.Int64)
		res.PackageID = &pid
	}
	if reason.Valid {
		s := reason.String
		res.CancellationReason = &s
	}
	if notes.Valid {
		s := notes.String
		res.ProgressNotes = &s
	}
	if checkedIn.Valid {
		tt := checkedIn.Time
		res.CheckedInAt = &tt
	}
	if cancelled.Valid {
		tt := cancelled.Time
		res.CancelledAt = &tt
	}
	return &res, nil
}

func (t *bookingTx) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations
SET status = ?, cancellation_reason = ?, progress_notes = ?, checked_in_at = ?, cancelled_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?`
	var reason, notes, checkedIn, cancelled interface{}
	if res.CancellationReason != nil {
		reason = *res.CancellationReason
	}
	if res.ProgressNotes != nil {
		notes = *res.ProgressNotes
	}
	if res.CheckedInAt != nil {
		checkedIn = res.CheckedInAt.UTC()
	}
	if res.CancelledAt != nil {
		cancelled = res.CancelledAt.UTC()
	}
	_, err := t.tx.ExecContext(ctx, q, res.Status, reason, notes, checkedIn, cancelled, res.ID)
	return err
}

func (t *bookingTx) DeleteReservation(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	return err
}

func (t *bookingTx) PackageForUpdate(ctx context.Context, id uint64) (*model.Package, error) {
	const q = `SELECT ` + packageColumns + ` FROM packages WHERE id = ? FOR UPDATE`
	p, err := scanPackage(t.tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrPackageNotFound
		}
		return nil, err
	}
	return p, nil
}

func (t *bookingTx) UpdatePackageUsage(ctx context.Context, id uint64, usedCredits uint32, status string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE packages SET used_credits = ?, status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		usedCredits, status, id)
	return err
}

func (t *bookingTx) HasWaitlistEntry(ctx context.Context, classID, userID uint64) (bool, error) {
	var one int
	err := t.tx.QueryRowContext(ctx,
		`SELECT 1 FROM waitlist_entries WHERE class_id = ? AND user_id = ? LIMIT 1`,
		classID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *bookingTx) WaitlistSize(ctx context.Context, classID uint64) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE class_id = ?`, classID).Scan(&n)
	return n, err
}

func (t *bookingTx) InsertWaitlistEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	r, err := t.tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (class_id, user_id, frame_size, priority) VALUES (?, ?, ?, ?)`,
		entry.ClassID, entry.UserID, entry.FrameSize, entry.Priority)
	if err != nil {
		return err
	}
	id, err := r.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = uint64(id)
	return nil
}

func (t *bookingTx) WaitlistHead(ctx context.Context, classID uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT id, class_id, user_id, frame_size, priority, created_at
FROM waitlist_entries WHERE class_id = ? ORDER BY priority ASC LIMIT 1 FOR UPDATE`
	var e model.WaitlistEntry
	err := t.tx.QueryRowContext(ctx, q, classID).Scan(
		&e.ID, &e.ClassID, &e.UserID, &e.FrameSize, &e.Priority, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (t *bookingTx) RemoveWaitlistEntry(ctx context.Context, id uint64) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE id = ?`, id)
	return err
}

func (t *bookingTx) CloseWaitlistGap(ctx context.Context, classID uint64, removedPriority uint32) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET priority = priority - 1 WHERE class_id = ? AND priority > ?`,
		classID, removedPriority)
	return err
}

func (t *bookingTx) InsertAudit(ctx context.Context, entry *model.AuditLog) error {
	var actor interface{}
	if entry.ActorID != nil {
		actor = *entry.ActorID
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, detail) VALUES (?, ?, ?, ?, ?)`,
		actor, entry.Action, entry.Entity, entry.EntityID, entry.Detail)
	return err
}
