package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

const packageColumns = `id, user_id, name, total_credits, used_credits, status, expires_at, created_at, updated_at`

// PackageRepo manages credit packages outside the booking
// transaction: grants, listings and the expiration sweep.  Credit
// counters are never mutated here; that is the booking service's job.
type PackageRepo struct {
	db *sql.DB
}

func NewPackageRepo(db *sql.DB) *PackageRepo { return &PackageRepo{db: db} }

func scanPackage(row interface {
	Scan(dest ...interface{}) error
}) (*model.Package, error) {
	var p model.Package
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.TotalCredits, &p.UsedCredits,
		&p.Status, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a package with the given status and populates the
// generated ID and DB defaults on the struct.
func (r *PackageRepo) Create(ctx context.Context, p *model.Package) error {
	const q = `INSERT INTO packages (user_id, name, total_credits, used_credits, status, expires_at)
VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		p.UserID, p.Name, p.TotalCredits, p.UsedCredits, p.Status, p.ExpiresAt.UTC())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	got, err := scanPackage(r.db.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = ?`, p.ID))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// GetByID returns one package or ErrPackageNotFound.
func (r *PackageRepo) GetByID(ctx context.Context, id uint64) (*model.Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByUser returns all packages of a user, newest first.
func (r *PackageRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Package, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+packageColumns+` FROM packages WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// FindUsableForUser returns the oldest package of the user that still
// has credits and is in a bookable status.  includePending widens the
// search to PENDING_PAYMENT packages.  Returns nil when none qualify.
func (r *PackageRepo) FindUsableForUser(ctx context.Context, userID uint64, includePending bool) (*model.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages
WHERE user_id = ? AND used_credits < total_credits AND expires_at > UTC_TIMESTAMP()`
	if includePending {
		q += ` AND status IN ('ACTIVE','PENDING_PAYMENT')`
	} else {
		q += ` AND status = 'ACTIVE'`
	}
	q += ` ORDER BY expires_at ASC LIMIT 1`
	p, err := scanPackage(r.db.QueryRowContext(ctx, q, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ExpireDue flips every ACTIVE or PENDING_PAYMENT package whose expiry
// has passed to EXPIRED and returns the number of affected rows.  The
// sweep is deliberately a bulk statement triggered by the admin
// endpoint; expiration is not applied atomically on reads.
func (r *PackageRepo) ExpireDue(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE packages SET status = 'EXPIRED', updated_at = CURRENT_TIMESTAMP
WHERE status IN ('ACTIVE','PENDING_PAYMENT') AND expires_at <= UTC_TIMESTAMP()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ActivatePending flips a PENDING_PAYMENT package to ACTIVE once a
// completed payment settles it.  Reports whether a row changed.
func (r *PackageRepo) ActivatePending(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE packages SET status = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = ?`,
		model.PackageActive, id, model.PackagePendingPayment)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
