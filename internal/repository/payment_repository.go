package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// PaymentRepo manages monetary records.  Amounts are stored in a
// DECIMAL column and scanned through shopspring/decimal so no float
// rounding ever touches money.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `id, user_id, package_id, amount, method, status, notes, created_at`

func scanPayment(row interface {
	Scan(dest ...interface{}) error
}) (*model.Payment, error) {
	var (
		p         model.Payment
		packageID sql.NullInt64
		amount    string
		notes     sql.NullString
	)
	err := row.Scan(&p.ID, &p.UserID, &packageID, &amount, &p.Method, &p.Status, &notes, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if packageID.Valid {
		pid := uint64(packageID.Int64)
		p.PackageID = &pid
	}
	if notes.Valid {
		s := notes.String
		p.Notes = &s
	}
	p.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment row and populates the generated ID and
// timestamps.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (user_id, package_id, amount, method, status, notes) VALUES (?, ?, ?, ?, ?, ?)`
	var packageID interface{}
	if p.PackageID != nil {
		packageID = *p.PackageID
	}
	var notes interface{}
	if p.Notes != nil {
		notes = *p.Notes
	}
	res, err := r.db.ExecContext(ctx, q, p.UserID, packageID, p.Amount.String(), p.Method, p.Status, notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	got, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, p.ID))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// GetByID returns one payment or ErrPaymentNotFound.
func (r *PaymentRepo) GetByID(ctx context.Context, id uint64) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByUser returns all payments of a user, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
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
