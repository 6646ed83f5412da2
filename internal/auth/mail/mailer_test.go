package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	to      string
	subject string
	body    string
}

func (c *captureMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	c.to, c.subject, c.body = to, subject, htmlBody
	return nil
}

func TestSendVerificationBuildsLink(t *testing.T) {
	t.Parallel()

	cap := &captureMailer{}
	s := &Sender{Mailer: cap, BaseURL: "https://app.taskhive.test/"}

	err := s.SendVerification(context.Background(), "a@x.com", "Ada", "tok.abc")
	require.NoError(t, err)

	require.Equal(t, "a@x.com", cap.to)
	require.Contains(t, cap.subject, "Verify")
	require.Contains(t, cap.body, "https://app.taskhive.test/verify-email/tok.abc")
	require.Contains(t, cap.body, "Ada")
	require.Contains(t, cap.body, "1 hour")
}

func TestSendPasswordResetBuildsLink(t *testing.T) {
	t.Parallel()

	cap := &captureMailer{}
	s := &Sender{Mailer: cap, BaseURL: "https://app.taskhive.test"}

	err := s.SendPasswordReset(context.Background(), "a@x.com", "Ada", "tok.xyz")
	require.NoError(t, err)

	require.Contains(t, cap.body, "https://app.taskhive.test/reset-password/tok.xyz")
	require.Contains(t, cap.body, "15 minutes")
}

func TestLinkEscapesToken(t *testing.T) {
	t.Parallel()

	s := &Sender{BaseURL: "https://app.taskhive.test"}
	require.Equal(t,
		"https://app.taskhive.test/verify-email/a%2Fb",
		s.link("verify-email", "a/b"),
	)
}

func TestNewSMTPMailerRequiresHostAndFrom(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPMailer(SMTPConfig{Host: "", From: "x@y.z"})
	require.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.y.z", From: ""})
	require.Error(t, err)
	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.y.z", From: "x@y.z", Port: 587})
	require.NoError(t, err)
}
