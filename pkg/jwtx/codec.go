package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrWrongPurpose = errors.New("jwtx: purpose mismatch")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
)

// Codec signs and verifies purpose-scoped HS256 tokens with a single
// process-wide secret. The secret is injected at construction and never
// mutated afterwards.
type Codec struct {
	secret []byte
	issuer string
}

// NewCodec builds a Codec. The secret must be non-empty; there is no safe
// default to fall back to.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: signing secret must not be empty")
	}
	return &Codec{secret: secret, issuer: issuer}, nil
}

// Sign mints a token for subject bound to purpose, expiring after ttl.
func (c *Codec) Sign(subject string, purpose Purpose, ttl time.Duration, now time.Time) (string, error) {
	if !purpose.Valid() {
		return "", ErrWrongPurpose
	}

	claims := NewClaims(subject, purpose, ttl, c.issuer, now)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify checks the signature and structure of raw and enforces the purpose
// tag. It deliberately does NOT reject expired tokens: ledger-backed flows
// treat the stored record's expiry as authoritative, and self-contained
// tokens call Claims.ValidateExpiry themselves.
func (c *Codec) Verify(raw string, expected Purpose) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return Claims{}, ErrInvalidSig
		}
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}
	if claims.Purpose != expected {
		return Claims{}, ErrWrongPurpose
	}
	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}
