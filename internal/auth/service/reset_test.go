package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

func TestRequestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("mails a reset link to a verified account", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.registerVerified(t, "alice@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@taskhive.test"))

		rec, err := f.store.Verifications().GetVerification(ctx, u.ID, jwtx.PurposePasswordReset)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(jwtx.DefaultPasswordResetTTL), rec.ExpiresAt, time.Minute)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newAuthFixture(t)

		err := f.svc.RequestPasswordReset(ctx, "ghost@taskhive.test")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("unverified account cannot reset", func(t *testing.T) {
		f := newAuthFixture(t)
		f.register(t, "new@taskhive.test")

		err := f.svc.RequestPasswordReset(ctx, "new@taskhive.test")
		require.ErrorIs(t, err, ErrEmailNotVerified)
	})

	t.Run("live reset link blocks another request", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerVerified(t, "bob@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "bob@taskhive.test"))
		err := f.svc.RequestPasswordReset(ctx, "bob@taskhive.test")
		require.ErrorIs(t, err, ErrResetPending)
	})

	t.Run("lapsed reset link is replaced", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.registerVerified(t, "carol@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "carol@taskhive.test"))
		require.NoError(t, f.store.Verifications().DeleteVerification(ctx, u.ID, jwtx.PurposePasswordReset))

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "carol@taskhive.test"))
	})
}

func TestCompletePasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("installs the new password and spends the token", func(t *testing.T) {
		f := newAuthFixture(t)
		u := f.registerVerified(t, "dana@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "dana@taskhive.test"))
		token := f.mailer.lastToken(t)

		require.NoError(t, f.svc.CompletePasswordReset(ctx, token, "a brand new password", "a brand new password"))

		_, err := f.svc.Login(ctx, "dana@taskhive.test", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		res, err := f.svc.Login(ctx, "dana@taskhive.test", "a brand new password")
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)

		_, err = f.store.Verifications().GetVerification(ctx, u.ID, jwtx.PurposePasswordReset)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("confirmation mismatch does not burn the token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerVerified(t, "erin@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "erin@taskhive.test"))
		token := f.mailer.lastToken(t)

		err := f.svc.CompletePasswordReset(ctx, token, "one new password", "a different password")
		require.ErrorIs(t, err, ErrPasswordMismatch)

		// Same link still works afterwards.
		require.NoError(t, f.svc.CompletePasswordReset(ctx, token, "one new password", "one new password"))
	})

	t.Run("token is single use", func(t *testing.T) {
		f := newAuthFixture(t)
		f.registerVerified(t, "fred@taskhive.test")

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "fred@taskhive.test"))
		token := f.mailer.lastToken(t)

		require.NoError(t, f.svc.CompletePasswordReset(ctx, token, "first new password", "first new password"))
		err := f.svc.CompletePasswordReset(ctx, token, "second new password", "second new password")
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("verification token cannot reset a password", func(t *testing.T) {
		f := newAuthFixture(t)
		f.register(t, "gina@taskhive.test")
		token := f.mailer.lastToken(t)

		err := f.svc.CompletePasswordReset(ctx, token, "sneaky password", "sneaky password")
		require.ErrorIs(t, err, ErrUnauthorized)
	})
}
