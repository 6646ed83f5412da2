package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose declares which single operation a token authorizes. A token minted
// for one purpose must be rejected everywhere else.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeLogin             Purpose = "login"
)

// Default token TTL constants for the three purposes. These provide sensible
// security defaults but can be overridden per-service.
const (
	// DefaultEmailVerificationTTL bounds how long a signup confirmation link stays usable.
	DefaultEmailVerificationTTL = 1 * time.Hour

	// DefaultPasswordResetTTL is deliberately short since the link grants a credential change.
	DefaultPasswordResetTTL = 15 * time.Minute

	// DefaultLoginTTL is the lifetime of a browser session token.
	DefaultLoginTTL = 7 * 24 * time.Hour
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeLogin:
		return true
	}
	return false
}

// Claims are the signed token payload: subject user id, the purpose tag, and
// the registered time claims. We keep changes additive to preserve
// compatibility for tokens already in flight.
type Claims struct {
	jwt.RegisteredClaims

	Purpose Purpose `json:"purpose,omitempty"`
}

// NewClaims builds minimally-correct claims for a purpose-scoped token.
func NewClaims(subject string, purpose Purpose, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
	}
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before it is valid (nbf). Ledger-backed flows check expiry against the
// stored record instead; this is for self-contained tokens like sessions.
func (c *Claims) ValidateExpiry(now time.Time) error {
	now = now.UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}
