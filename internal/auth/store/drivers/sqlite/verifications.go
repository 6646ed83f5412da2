package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/domain"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

type verificationsRepo struct {
	db dbtx
}

const verificationColumns = `id, user_id, purpose, token_hash, expires_at, created_at`

func (r *verificationsRepo) CreateVerification(ctx context.Context, v domain.Verification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_records (id, user_id, purpose, token_hash, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.UserID, string(v.Purpose), v.TokenHash, v.ExpiresAt.UTC())
	return mapConstraint(err)
}

func (r *verificationsRepo) GetVerification(
	ctx context.Context,
	userID string,
	purpose jwtx.Purpose,
) (domain.Verification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verification_records
		 WHERE user_id = ? AND purpose = ?`,
		userID, string(purpose))
	return scanVerification(row)
}

func (r *verificationsRepo) GetVerificationByTokenHash(
	ctx context.Context,
	userID string,
	purpose jwtx.Purpose,
	tokenHash string,
) (domain.Verification, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM verification_records
		 WHERE user_id = ? AND purpose = ? AND token_hash = ?`,
		userID, string(purpose), tokenHash)
	return scanVerification(row)
}

func (r *verificationsRepo) DeleteVerification(
	ctx context.Context,
	userID string,
	purpose jwtx.Purpose,
) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_records WHERE user_id = ? AND purpose = ?`,
		userID, string(purpose))
	return err
}

func (r *verificationsRepo) DeleteExpiredVerifications(ctx context.Context) error {
	// Bind the cutoff from Go so it is written in the same format the
	// driver stores expires_at in.
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_records WHERE expires_at < ?`, time.Now().UTC())
	return err
}

func scanVerification(row *sql.Row) (domain.Verification, error) {
	var (
		v       domain.Verification
		purpose string
	)
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&purpose,
		&v.TokenHash,
		&v.ExpiresAt,
		&v.CreatedAt,
	)
	if err != nil {
		return domain.Verification{}, mapNotFound(err)
	}
	v.Purpose = jwtx.Purpose(purpose)
	return v, nil
}
