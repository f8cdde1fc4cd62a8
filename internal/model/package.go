package model

import "time"

// Package status values.  PENDING_PAYMENT packages are created by the
// guest booking flow before any money changes hands; whether they can
// back bookings is a configurable policy, not a hard rule.
const (
	PackageActive         = "ACTIVE"
	PackageUsedUp         = "USED_UP"
	PackageExpired        = "EXPIRED"
	PackagePendingPayment = "PENDING_PAYMENT"
)

// Package is a purchased bundle of class credits.  UsedCredits is only
// ever mutated through the booking service's credit ledger, which
// clamps it to [0, TotalCredits] and flips the status to USED_UP when
// the ceiling is reached.  Expiration is applied by a bulk sweep, not
// atomically on read.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the package.
//  Name         – product name of the bundle (e.g. "4-class pack").
//  TotalCredits – number of credits purchased.
//  UsedCredits  – credits consumed so far.
//  Status       – ACTIVE, USED_UP, EXPIRED or PENDING_PAYMENT.
//  ExpiresAt    – when unused credits lapse.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Package struct {
	ID           uint64    // packages.id
	UserID       uint64    // packages.user_id
	Name         string    // packages.name
	TotalCredits uint32    // packages.total_credits
	UsedCredits  uint32    // packages.used_credits
	Status       string    // packages.status
	ExpiresAt    time.Time // packages.expires_at
	CreatedAt    time.Time // packages.created_at
	UpdatedAt    time.Time // packages.updated_at
}

// Remaining returns the credits left on the package.
func (p *Package) Remaining() uint32 {
	if p.UsedCredits >= p.TotalCredits {
		return 0
	}
	return p.TotalCredits - p.UsedCredits
}
