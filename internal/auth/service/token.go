package service

import (
	"context"
	"errors"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/domain"
	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/cryptox"
	"github.com/taskhive/taskhive-auth/pkg/idx"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

// TokenService issues and validates purpose-scoped tokens. Issuance is a
// pure function of its inputs plus the signing secret; the caller persists
// the returned ledger record. Validation reads the ledger so that a record
// deleted out-of-band kills the token even if its embedded expiry has not
// elapsed.
type TokenService struct {
	Codec *jwtx.Codec
	Store store.Store

	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration
	LoginTTL             time.Duration
}

func (s *TokenService) ttl(purpose jwtx.Purpose) time.Duration {
	switch purpose {
	case jwtx.PurposeEmailVerification:
		if s.EmailVerificationTTL > 0 {
			return s.EmailVerificationTTL
		}
		return jwtx.DefaultEmailVerificationTTL
	case jwtx.PurposePasswordReset:
		if s.PasswordResetTTL > 0 {
			return s.PasswordResetTTL
		}
		return jwtx.DefaultPasswordResetTTL
	default:
		if s.LoginTTL > 0 {
			return s.LoginTTL
		}
		return jwtx.DefaultLoginTTL
	}
}

// IssueLedgered mints a token for a ledger-backed purpose and returns the
// matching verification record for the caller to persist. Login tokens never
// go through here.
func (s *TokenService) IssueLedgered(
	subjectID string,
	purpose jwtx.Purpose,
	now time.Time,
) (string, domain.Verification, error) {
	if purpose != jwtx.PurposeEmailVerification && purpose != jwtx.PurposePasswordReset {
		return "", domain.Verification{}, jwtx.ErrWrongPurpose
	}

	ttl := s.ttl(purpose)
	raw, err := s.Codec.Sign(subjectID, purpose, ttl, now)
	if err != nil {
		return "", domain.Verification{}, err
	}

	rec := domain.Verification{
		ID:        idx.New().String(),
		UserID:    subjectID,
		Purpose:   purpose,
		TokenHash: cryptox.FingerprintToken(raw),
		ExpiresAt: now.Add(ttl),
	}
	return raw, rec, nil
}

// IssueSession mints a self-contained login token. Sessions are not stored
// in the verification ledger.
func (s *TokenService) IssueSession(subjectID string, now time.Time) (string, error) {
	return s.Codec.Sign(subjectID, jwtx.PurposeLogin, s.ttl(jwtx.PurposeLogin), now)
}

// Validate checks a ledger-backed token: signature, purpose tag, and an
// exact fingerprint match against the stored record. The record's own
// expires_at is authoritative, not the token's embedded exp.
func (s *TokenService) Validate(
	ctx context.Context,
	raw string,
	purpose jwtx.Purpose,
) (domain.Verification, error) {
	claims, err := s.Codec.Verify(raw, purpose)
	if err != nil {
		return domain.Verification{}, ErrUnauthorized
	}

	fingerprint := cryptox.FingerprintToken(raw)
	rec, err := s.Store.Verifications().
		GetVerificationByTokenHash(ctx, claims.Subject, purpose, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Verification{}, ErrUnauthorized
		}
		return domain.Verification{}, err
	}

	if rec.Expired(time.Now()) {
		return domain.Verification{}, ErrTokenExpired
	}

	return rec, nil
}
