package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ReservationRepo provides the read side of reservations: listings and
// detail views joined with class information.  All writes go through
// the booking store so they happen under the class row lock.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// ReservationDetail is a reservation joined with its class for display
// to students and instructors.
type ReservationDetail struct {
	ID                 uint64     `json:"id"`
	Reference          string     `json:"reference"`
	ClassID            uint64     `json:"class_id"`
	ClassTitle         string     `json:"class_title"`
	ClassStartsAt      time.Time  `json:"class_starts_at"`
	ClassEndsAt        time.Time  `json:"class_ends_at"`
	ClassStatus        string     `json:"class_status"`
	UserID             uint64     `json:"user_id"`
	UserName           string     `json:"user_name"`
	PackageID          *uint64    `json:"package_id,omitempty"`
	FrameSize          string     `json:"frame_size"`
	Status             string     `json:"status"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	ProgressNotes      *string    `json:"progress_notes,omitempty"`
	ReservedAt         time.Time  `json:"reserved_at"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
}

const detailQuery = `SELECT r.id, r.reference, r.class_id, c.title, c.starts_at, c.ends_at, c.status,
       r.user_id, u.name, r.package_id, r.frame_size, r.status,
       r.cancellation_reason, r.progress_notes, r.reserved_at, r.checked_in_at, r.cancelled_at
FROM reservations r
JOIN classes c ON c.id = r.class_id
JOIN users u ON u.id = r.user_id`

func scanDetail(row interface {
	Scan(dest ...interface{}) error
}) (*ReservationDetail, error) {
	var (
		d         ReservationDetail
		packageID sql.NullInt64
		reason    sql.NullString
		notes     sql.NullString
		checkedIn sql.NullTime
		cancelled sql.NullTime
	)
	err := row.Scan(
		&d.ID, &d.Reference, &d.ClassID, &d.ClassTitle, &d.ClassStartsAt, &d.ClassEndsAt, &d.ClassStatus,
		&d.UserID, &d.UserName, &packageID, &d.FrameSize, &d.Status,
		&reason, &notes, &d.ReservedAt, &checkedIn, &cancelled,
	)
	if err != nil {
		return nil, err
	}
	if packageID.Valid {
		pid := uint64(packageID.Int64)
		d.PackageID = &pid
	}
	if reason.Valid {
		s := reason.String
		d.CancellationReason = &s
	}
	if notes.Valid {
		s := notes.String
		d.ProgressNotes = &s
	}
	if checkedIn.Valid {
		t := checkedIn.Time
		d.CheckedInAt = &t
	}
	if cancelled.Valid {
		t := cancelled.Time
		d.CancelledAt = &t
	}
	return &d, nil
}

// GetByID returns a single reservation detail regardless of owner.
// Callers enforce authorization.  Returns ErrReservationNotFound when
// no row matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE r.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByIDForUser returns a reservation detail restricted to the owning
// student.  Ownership is enforced in the query, so a foreign
// reservation reads as ErrReservationNotFound.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*ReservationDetail, error) {
	d, err := scanDetail(r.db.QueryRowContext(ctx, detailQuery+` WHERE r.id = ? AND r.user_id = ?`, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListByUser returns all reservations of the given student, newest
// first.  When none exist an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]ReservationDetail, error) {
	return r.list(ctx, detailQuery+` WHERE r.user_id = ? ORDER BY r.reserved_at DESC`, userID)
}

// ListByClassForInstructor returns the roster of a class when accessed
// by its instructor.  It returns ErrClassNotFound when the class does
// not exist and ErrForbidden when it belongs to another instructor.
func (r *ReservationRepo) ListByClassForInstructor(ctx context.Context, classID, instructorID uint64) ([]ReservationDetail, error) {
	var actual uint64
	err := r.db.QueryRowContext(ctx, `SELECT instructor_id FROM classes WHERE id = ?`, classID).Scan(&actual)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	if actual != instructorID {
		return nil, ErrForbidden
	}
	return r.list(ctx, detailQuery+` WHERE r.class_id = ? ORDER BY r.reserved_at ASC`, classID)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...interface{}) ([]ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]ReservationDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ActiveFrameSizes returns the frame sizes of confirmed and
// checked-in reservations for a class, one element per reservation.
func (r *ReservationRepo) ActiveFrameSizes(ctx context.Context, classID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT frame_size FROM reservations WHERE class_id = ? AND status IN `+activeStatuses, classID)
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
