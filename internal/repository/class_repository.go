// Package repository contains data access logic for the studio
// schedule.  This file defines repository methods for classes.  All
// timestamps are stored in UTC; the mysql driver is opened with
// parseTime=true so DATETIME columns scan into time.Time directly.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// ErrNoChange indicates the UPDATE attempted to set fields equal to current values.
var ErrNoChange = errors.New("no change")

const classColumns = `id, instructor_id, title, starts_at, ends_at, capacity,
small_capacity, medium_capacity, large_capacity, status, created_at, updated_at`

// ClassRepo manages persistence for classes.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo constructs a ClassRepo with the given DB handle.
func NewClassRepo(db *sql.DB) *ClassRepo {
	return &ClassRepo{db: db}
}

// DB exposes the underlying sql.DB.  It allows callers to begin
// transactions spanning multiple repositories.
func (r *ClassRepo) DB() *sql.DB {
	return r.db
}

func scanClass(row interface {
	Scan(dest ...interface{}) error
}) (*model.Class, error) {
	var c model.Class
	err := row.Scan(
		&c.ID, &c.InstructorID, &c.Title, &c.StartsAt, &c.EndsAt, &c.Capacity,
		&c.SmallCapacity, &c.MediumCapacity, &c.LargeCapacity, &c.Status,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new class and populates the generated ID and the
// DB-default fields (status, timestamps) on the given struct.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) error {
	const q = `INSERT INTO classes
(instructor_id, title, starts_at, ends_at, capacity, small_capacity, medium_capacity, large_capacity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.InstructorID, c.Title, c.StartsAt.UTC(), c.EndsAt.UTC(), c.Capacity,
		c.SmallCapacity, c.MediumCapacity, c.LargeCapacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	sel := `SELECT ` + classColumns + ` FROM classes WHERE id = ?`
	got, err := scanClass(r.db.QueryRowContext(ctx, sel, c.ID))
	if err != nil {
		return err
	}
	*c = *got
	return nil
}

// GetByID retrieves a class by its ID.  It returns ErrClassNotFound
// when there is no matching row.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (*model.Class, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListUpcoming returns classes whose start time is in the future,
// ordered by start time ascending.  Cancelled classes are excluded.
func (r *ClassRepo) ListUpcoming(ctx context.Context) ([]model.Class, error) {
	const q = `SELECT ` + classColumns + ` FROM classes
WHERE starts_at > UTC_TIMESTAMP() AND status <> 'CANCELLED'
ORDER BY starts_at ASC`
	return r.list(ctx, q)
}

// ListByInstructor returns all classes owned by the given instructor,
// newest first.
func (r *ClassRepo) ListByInstructor(ctx context.Context, instructorID uint64) ([]model.Class, error) {
	const q = `SELECT ` + classColumns + ` FROM classes
WHERE instructor_id = ? ORDER BY starts_at DESC`
	return r.list(ctx, q, instructorID)
}

func (r *ClassRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Class, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Class, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites the mutable fields of a class.  It returns
// ErrClassNotFound when the row does not exist and ErrNoChange when
// the values are identical to the current row.
func (r *ClassRepo) Update(ctx context.Context, c *model.Class) error {
	const q = `UPDATE classes
SET title = ?, starts_at = ?, ends_at = ?, capacity = ?,
    small_capacity = ?, medium_capacity = ?, large_capacity = ?, status = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
  AND (title <> ? OR starts_at <> ? OR ends_at <> ? OR capacity <> ?
    OR small_capacity <> ? OR medium_capacity <> ? OR large_capacity <> ? OR status <> ?)`
	res, err := r.db.ExecContext(ctx, q,
		c.Title, c.StartsAt.UTC(), c.EndsAt.UTC(), c.Capacity,
		c.SmallCapacity, c.MediumCapacity, c.LargeCapacity, c.Status,
		c.ID,
		c.Title, c.StartsAt.UTC(), c.EndsAt.UTC(), c.Capacity,
		c.SmallCapacity, c.MediumCapacity, c.LargeCapacity, c.Status,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM classes WHERE id = ? LIMIT 1`, c.ID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrClassNotFound
		}
		return err
	}
	return ErrNoChange
}

// Delete removes a class and its waitlist.  The deletion runs in a
// transaction.  It returns ErrClassNotFound when the class does not
// exist and ErrConflict when reservations still reference it.
func (r *ClassRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM classes WHERE id = ? LIMIT 1`, id).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrClassNotFound
		}
		return err
	}
	var resCount int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE class_id = ?`, id).Scan(&resCount); err != nil {
		return err
	}
	if resCount > 0 {
		err = ErrConflict
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE class_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM classes WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}
