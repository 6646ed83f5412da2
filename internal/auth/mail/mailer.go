// Package mail delivers verification and password-reset links to users.
// Delivery is a boolean-success external call: a failure is surfaced to the
// caller, never retried here.
package mail

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
)

// Mailer sends a single HTML message. Implementations: SMTP for real
// delivery, Log for development.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Message templates. Kept small on purpose; the front end owns the pages the
// links land on.
var (
	verifyTmpl = template.Must(template.New("verify").Parse(`<p>Hi {{.Name}},</p>
<p>Welcome to TaskHive. Please confirm your email address to activate your account:</p>
<p><a href="{{.Link}}">Verify my email</a></p>
<p>This link expires in {{.TTL}}. If you didn't sign up, you can ignore this message.</p>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password:</p>
<p><a href="{{.Link}}">Reset my password</a></p>
<p>This link expires in {{.TTL}}. If you didn't request a reset, you can ignore this message.</p>`))
)

type linkData struct {
	Name string
	Link string
	TTL  string
}

// Sender renders the outbound messages and hands them to a Mailer. BaseURL
// is the public address of the front end; the token rides in the path the
// SPA routes on.
type Sender struct {
	Mailer  Mailer
	BaseURL string
}

// SendVerification mails the account-activation link.
func (s *Sender) SendVerification(ctx context.Context, to, name, token string) error {
	body, err := render(verifyTmpl, linkData{
		Name: name,
		Link: s.link("verify-email", token),
		TTL:  "1 hour",
	})
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, to, "Verify your TaskHive account", body)
}

// SendPasswordReset mails the reset link.
func (s *Sender) SendPasswordReset(ctx context.Context, to, name, token string) error {
	body, err := render(resetTmpl, linkData{
		Name: name,
		Link: s.link("reset-password", token),
		TTL:  "15 minutes",
	})
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, to, "Reset your TaskHive password", body)
}

func (s *Sender) link(page, token string) string {
	base := strings.TrimRight(s.BaseURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, page, url.PathEscape(token))
}

func render(tmpl *template.Template, data linkData) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
