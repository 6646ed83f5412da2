package store

import (
	"context"
	"errors"

	"github.com/taskhive/taskhive-auth/internal/auth/domain"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Users() Users
	Verifications() Verifications

	ApplyMigrations() error

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Users() Users
	Verifications() Verifications

	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is the registration/login lookup. Emails compare
	// case-sensitive, exactly as stored.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists if the email is already taken.
	CreateUser(ctx context.Context, u domain.User) error

	// MarkEmailVerified flips email_verified to true and bumps updated_at.
	// The flag never transitions back.
	MarkEmailVerified(ctx context.Context, userID string) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateLastLogin stamps last_login_at.
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Verifications interface {
	// CreateVerification writes a new ledger record. The schema's UNIQUE
	// (user_id, purpose) index makes a concurrent duplicate issuance fail
	// with ErrAlreadyExists instead of racing.
	CreateVerification(ctx context.Context, v domain.Verification) error

	// GetVerification returns the record for a (user, purpose) pair,
	// whether live or expired.
	GetVerification(ctx context.Context, userID string, purpose jwtx.Purpose) (domain.Verification, error)

	// GetVerificationByTokenHash returns the record only if the stored
	// fingerprint matches exactly. Consumption paths use this so a token
	// must match the record, not just the subject.
	GetVerificationByTokenHash(ctx context.Context, userID string, purpose jwtx.Purpose, tokenHash string) (domain.Verification, error)

	// DeleteVerification removes the record for a (user, purpose) pair.
	DeleteVerification(ctx context.Context, userID string, purpose jwtx.Purpose) error

	// DeleteExpiredVerifications removes every record past its expiry.
	// Housekeeping calls this on an interval.
	DeleteExpiredVerifications(ctx context.Context) error
}
