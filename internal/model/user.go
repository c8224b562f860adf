package model

import "time"

// User represents a resident account as stored in the `users` table.
// Residents are both bay owners and claimers; there are no roles.
// Name is the display name shown next to bays and claims.
//
// Fields:
//
//   - ID: primary key identifier of the user.
//   - Email: unique, lower-cased email address.
//   - Name: display name.
//   - PasswordHash: bcrypt hashed password.
//   - CreatedAt: timestamp of creation.
//   - UpdatedAt: timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA‑256 hash.
//
// Fields:
//
//   - ID: primary key identifier.
//   - UserID: owner of the token.
//   - TokenHash: SHA‑256 hex digest of the token value.
//   - ExpiresAt: expiration timestamp of the token.
//   - RevokedAt: when the token was revoked (nil while active).
//   - CreatedAt: timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
