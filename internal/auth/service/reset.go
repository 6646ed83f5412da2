package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/cryptox"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
	"github.com/taskhive/taskhive-auth/pkg/slogx"
)

// RequestPasswordReset mails a short-lived reset link. Unlike login, this
// endpoint does disclose whether the account exists; it is rate limited at
// the transport instead.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	now := time.Now()

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	// Reset links only go to addresses we have proven reachable.
	if !user.EmailVerified {
		return ErrEmailNotVerified
	}

	rec, err := s.Store.Verifications().GetVerification(ctx, user.ID, jwtx.PurposePasswordReset)
	switch {
	case err == nil && !rec.Expired(now):
		return ErrResetPending
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	token, err := s.issueVerification(ctx, user.ID, jwtx.PurposePasswordReset)
	if err != nil {
		return err
	}
	if err := s.Sender.SendPasswordReset(ctx, user.Email, user.Name, token); err != nil {
		log.Error("password reset email delivery failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}

	log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// CompletePasswordReset consumes a reset token and installs the new
// password. A confirmation mismatch does not spend the token; the record is
// only deleted once the new hash is persisted.
func (s *AuthService) CompletePasswordReset(
	ctx context.Context,
	rawToken, newPassword, confirmPassword string,
) error {
	log := slogx.FromContext(ctx)

	rec, err := s.Tokens.Validate(ctx, rawToken, jwtx.PurposePasswordReset)
	if err != nil {
		return err
	}

	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, rec.UserID, hash); err != nil {
			return err
		}
		return tx.Verifications().DeleteVerification(ctx, rec.UserID, jwtx.PurposePasswordReset)
	})
	if err != nil {
		return err
	}

	log.Info("password reset completed", slog.String("user_id", rec.UserID))
	return nil
}
