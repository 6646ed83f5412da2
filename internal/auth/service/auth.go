package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/abuse"
	"github.com/taskhive/taskhive-auth/internal/auth/domain"
	"github.com/taskhive/taskhive-auth/internal/auth/mail"
	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/cryptox"
	"github.com/taskhive/taskhive-auth/pkg/idx"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
	"github.com/taskhive/taskhive-auth/pkg/slogx"
)

// AuthService orchestrates registration, login and email verification.
type AuthService struct {
	Store  store.Store
	Tokens *TokenService
	Sender *mail.Sender
	Filter abuse.Filter
}

// LoginResult is what a login attempt produced. When VerificationSent is
// set the caller gets the same "check your email" acknowledgment as
// registration instead of a session.
type LoginResult struct {
	Token            string
	User             domain.User
	VerificationSent bool
}

// Register creates an unverified account and mails the activation link.
// The acknowledgment never includes the user id or the token.
func (s *AuthService) Register(ctx context.Context, email, name, password string) error {
	log := slogx.FromContext(ctx)

	// 1. Risk check. Anything short of an affirmative allow is a denial.
	decision, err := s.Filter.Check(ctx, email)
	if err != nil {
		log.Warn("abuse filter unavailable, failing closed", slog.Any("error", err))
		return &FilterDeniedError{Reason: "filter_unavailable"}
	}
	if !decision.Allow {
		log.Info("registration denied by abuse filter", slog.String("reason", decision.Reason))
		return &FilterDeniedError{Reason: decision.Reason}
	}

	// 2. Duplicate check. The unique index on email backstops a concurrent
	// registration racing past this read.
	_, err = s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	// 3. Hash the password and create the user unverified.
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return err
	}

	user := domain.User{
		ID:            idx.New().String(),
		Email:         email,
		Name:          name,
		PasswordHash:  hash,
		EmailVerified: false,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return ErrEmailTaken
		}
		return err
	}

	// 4. Issue the verification token and its ledger record.
	token, err := s.issueVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
	if err != nil {
		return err
	}

	// 5. Deliver. The user record already exists at this point; a failed
	// send is surfaced, not rolled back.
	if err := s.Sender.SendVerification(ctx, user.Email, user.Name, token); err != nil {
		log.Error("verification email delivery failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	return nil
}

// Login authenticates a user. An unverified account is re-sent its
// activation link (if the previous one lapsed) before the password is even
// compared; a live pending verification just re-blocks.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContext(ctx)
	now := time.Now()

	// 1. Lookup. Unknown email and wrong password share one error so the
	// response never reveals which half was wrong.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	// 2. Unverified accounts never reach password comparison.
	if !user.EmailVerified {
		rec, err := s.Store.Verifications().
			GetVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
		switch {
		case err == nil && !rec.Expired(now):
			// A live link is already in their inbox.
			return LoginResult{}, ErrEmailNotVerified
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return LoginResult{}, err
		}

		token, err := s.issueVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
		if err != nil {
			return LoginResult{}, err
		}
		if err := s.Sender.SendVerification(ctx, user.Email, user.Name, token); err != nil {
			log.Error("verification email delivery failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
			return LoginResult{}, ErrDeliveryFailed
		}

		log.Info("verification email reissued on login", slog.String("user_id", user.ID))
		return LoginResult{VerificationSent: true}, nil
	}

	// 3. Compare the password.
	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	// 4. Mint the session and stamp the login.
	token, err := s.Tokens.IssueSession(user.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.Store.Users().UpdateLastLogin(ctx, user.ID); err != nil {
		return LoginResult{}, err
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	return LoginResult{Token: token, User: user}, nil
}

// VerifyEmail consumes an activation token. Success is terminal: the flag
// flips once and the ledger record is gone.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) error {
	log := slogx.FromContext(ctx)

	// 1-3. Signature, purpose, exact record match, record expiry.
	rec, err := s.Tokens.Validate(ctx, rawToken, jwtx.PurposeEmailVerification)
	if err != nil {
		return err
	}

	// 4. Idempotent guard, not a retry target.
	user, err := s.Store.Users().GetUserByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	// 5. Flip the flag and consume the record atomically.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().MarkEmailVerified(ctx, user.ID); err != nil {
			return err
		}
		return tx.Verifications().DeleteVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
	})
	if err != nil {
		return err
	}

	log.Info("email verified", slog.String("user_id", user.ID))
	return nil
}

// ResendVerification reissues the activation link without a password, with
// the same policy as the login path: live links block, lapsed ones are
// replaced.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)
	now := time.Now()

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	rec, err := s.Store.Verifications().GetVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
	switch {
	case err == nil && !rec.Expired(now):
		return ErrVerificationPending
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return err
	}

	token, err := s.issueVerification(ctx, user.ID, jwtx.PurposeEmailVerification)
	if err != nil {
		return err
	}
	if err := s.Sender.SendVerification(ctx, user.Email, user.Name, token); err != nil {
		log.Error("verification email delivery failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return ErrDeliveryFailed
	}

	return nil
}

// issueVerification replaces any stale ledger record and creates the fresh
// one in a single transaction, returning the raw token for delivery. A
// concurrent issuance loses at the unique (user_id, purpose) index.
func (s *AuthService) issueVerification(
	ctx context.Context,
	userID string,
	purpose jwtx.Purpose,
) (string, error) {
	token, rec, err := s.Tokens.IssueLedgered(userID, purpose, time.Now())
	if err != nil {
		return "", err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Verifications().DeleteVerification(ctx, userID, purpose); err != nil {
			return err
		}
		return tx.Verifications().CreateVerification(ctx, rec)
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			if purpose == jwtx.PurposePasswordReset {
				return "", ErrResetPending
			}
			return "", ErrVerificationPending
		}
		return "", err
	}

	return token, nil
}
