package domain

import (
	"time"

	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

// Verification is one outstanding proof-of-possession record tied to a user
// and a purpose. The schema enforces at most one record per (user, purpose);
// a record is single-use and deleted the moment it is consumed.
type Verification struct {
	ID        string
	UserID    string
	Purpose   jwtx.Purpose // email_verification or password_reset, never login
	TokenHash string       // deterministic fingerprint (base64url SHA-256) of the issued token
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record's own expiry has passed. The stored
// expiry is authoritative even when the embedded token expiry differs.
func (v Verification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}
