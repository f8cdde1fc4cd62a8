package model

import "time"

// Roles recognised by the authorization middleware.
const (
	RoleAdmin      = "ADMIN"
	RoleInstructor = "INSTRUCTOR"
	RoleStudent    = "STUDENT"
)

// User account statuses.  Guests booking through the public endpoint
// get a PENDING_ACTIVATION account until they complete registration.
const (
	UserActive            = "ACTIVE"
	UserPendingActivation = "PENDING_ACTIVATION"
	UserInactive          = "INACTIVE"
)

// User represents an application account as stored in the `users`
// table.  Handlers define separate response types with JSON tags;
// this struct is used by the repository layer.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique email address (stored lowercase).
//  Name         – display name.
//  PasswordHash – bcrypt hashed password; empty for guest accounts.
//  Role         – ADMIN, INSTRUCTOR or STUDENT.
//  Status       – ACTIVE, PENDING_ACTIVATION or INACTIVE.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Status       string    // users.status
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only
// the SHA-256 hash of the token value is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
