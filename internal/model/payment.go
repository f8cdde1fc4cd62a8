package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses.
const (
	PaymentCompleted = "COMPLETED"
	PaymentPending   = "PENDING"
	PaymentRefunded  = "REFUNDED"
)

// Payment is a monetary record linked to a user and optionally to a
// package.  Payments are bookkeeping only: credit consumption is
// deliberately independent of payment state, so a partially paid
// package can still have its credits spent.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – payer.
//  PackageID – package the payment settles (nullable).
//  Amount    – monetary amount; must be positive.
//  Method    – payment method (CASH, TRANSFER, CARD, ...).
//  Status    – COMPLETED, PENDING or REFUNDED.
//  Notes     – optional free-text annotation.
//  CreatedAt – creation timestamp.
type Payment struct {
	ID        uint64          // payments.id
	UserID    uint64          // payments.user_id
	PackageID *uint64         // payments.package_id (nullable)
	Amount    decimal.Decimal // payments.amount
	Method    string          // payments.method
	Status    string          // payments.status
	Notes     *string         // payments.notes (nullable)
	CreatedAt time.Time       // payments.created_at
}
