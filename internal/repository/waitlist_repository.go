package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/finicafferata/eme-studio-api/internal/model"
)

// WaitlistRepo serves read queries over waitlist entries.  Mutation
// happens inside booking transactions, never here.
type WaitlistRepo struct {
	db *sql.DB
}

func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// ListByClass returns the queue for a class in priority order.
func (r *WaitlistRepo) ListByClass(ctx context.Context, classID uint64) ([]model.WaitlistEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, class_id, user_id, frame_size, priority, created_at
FROM waitlist_entries WHERE class_id = ? ORDER BY priority ASC`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.ClassID, &e.UserID, &e.FrameSize, &e.Priority, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PositionFor returns the 1-based queue position of a user for a
// class, or 0 when the user is not waitlisted.
func (r *WaitlistRepo) PositionFor(ctx context.Context, classID, userID uint64) (uint32, error) {
	var pos uint32
	err := r.db.QueryRowContext(ctx,
		`SELECT priority FROM waitlist_entries WHERE class_id = ? AND user_id = ?`,
		classID, userID).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return pos, nil
}
