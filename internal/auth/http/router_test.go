package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskhive/taskhive-auth/internal/auth/abuse"
	"github.com/taskhive/taskhive-auth/internal/auth/mail"
	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/internal/auth/store/drivers/sqlite"
	"github.com/taskhive/taskhive-auth/pkg/cryptox"
	"github.com/taskhive/taskhive-auth/pkg/jwtx"
)

type recordingMailer struct {
	bodies []string
}

func (m *recordingMailer) Send(_ context.Context, _, _, htmlBody string) error {
	m.bodies = append(m.bodies, htmlBody)
	return nil
}

var bodyTokenRe = regexp.MustCompile(`href="[^"]*/([^/"]+)"`)

func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.bodies)

	match := bodyTokenRe.FindStringSubmatch(m.bodies[len(m.bodies)-1])
	require.Len(t, match, 2)
	return match[1]
}

type apiFixture struct {
	router *Router
	mailer *recordingMailer
	store  *sqlite.Store

	nextIP int
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper.key"))

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte("test-signing-secret"), "taskhive-auth")
	require.NoError(t, err)

	mailer := &recordingMailer{}
	router := NewRouter(codec, "test", s, slog.Default())
	router.AuthService = &service.AuthService{
		Store:  s,
		Tokens: &service.TokenService{Codec: codec, Store: s},
		Sender: &mail.Sender{Mailer: mailer, BaseURL: "https://app.taskhive.test"},
		Filter: abuse.AllowAll{},
	}
	router.ApplyRoutes()

	return &apiFixture{router: router, mailer: mailer, store: s}
}

// do issues a request from a fresh client IP so the per-IP rate limits do
// not bleed between calls.
func (f *apiFixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	f.nextIP++
	req.RemoteAddr = fmt.Sprintf("10.1.%d.%d:4000", f.nextIP/256, f.nextIP%256)
	for k, vs := range header {
		req.Header[k] = vs
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) registerUser(t *testing.T, email string) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"name":     "Test User",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func (f *apiFixture) verifyLastEmail(t *testing.T) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/verify-email", map[string]string{
		"token": f.mailer.lastToken(t),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email":    "new@taskhive.test",
			"name":     "New User",
			"password": "correct horse battery",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		ack := decodeBody[AckResponse](t, rec)
		require.NotContains(t, ack.Message, "new@taskhive.test")
		require.Len(t, f.mailer.bodies, 1)
	})

	t.Run("password length is the caller's choice", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email":    "a@x.com",
			"name":     "A",
			"password": "pw123",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		f.verifyLastEmail(t)

		rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "a@x.com",
			"password": "pw123",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("input validation", func(t *testing.T) {
		f := newAPIFixture(t)

		cases := []map[string]string{
			{"email": "not-an-email", "name": "X", "password": "correct horse battery"},
			{"email": "a@x.com", "name": "", "password": "correct horse battery"},
			{"email": "a@x.com", "name": "X", "password": ""},
		}
		for _, body := range cases {
			rec := f.do(t, http.MethodPost, "/auth/register", body, nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, "invalid_request", decodeBody[ErrorResponse](t, rec).Error)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "dup@taskhive.test")

		rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email":    "dup@taskhive.test",
			"name":     "Other",
			"password": "another long password",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "email_taken", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("filter denial maps to 403", func(t *testing.T) {
		f := newAPIFixture(t)
		f.router.AuthService.Filter = staticDenyFilter{}

		rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
			"email":    "spam@taskhive.test",
			"name":     "Spam",
			"password": "correct horse battery",
		}, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, "registration_denied", decodeBody[ErrorResponse](t, rec).Error)
	})
}

type staticDenyFilter struct{}

func (staticDenyFilter) Check(context.Context, string) (abuse.Decision, error) {
	return abuse.Decision{Allow: false, Reason: "blocked"}, nil
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("verified user gets token and sanitized user", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "alice@taskhive.test")
		f.verifyLastEmail(t)

		rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "alice@taskhive.test",
			"password": "correct horse battery",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Token string       `json:"token"`
			User  UserResponse `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.NotEmpty(t, res.Token)
		require.Equal(t, "alice@taskhive.test", res.User.Email)
		require.True(t, res.User.IsEmailVerified)
		require.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "bob@taskhive.test")
		f.verifyLastEmail(t)

		rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "bob@taskhive.test",
			"password": "not their password",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "invalid_credentials", decodeBody[ErrorResponse](t, rec).Error)
	})

	t.Run("unverified with live link is blocked", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "carol@taskhive.test")

		rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "carol@taskhive.test",
			"password": "correct horse battery",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "email_not_verified", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	t.Run("link is single use", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "dave@taskhive.test")
		token := f.mailer.lastToken(t)

		rec := f.do(t, http.MethodPost, "/auth/verify-email", map[string]string{"token": token}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/verify-email", map[string]string{"token": token}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newAPIFixture(t)

		rec := f.do(t, http.MethodPost, "/auth/verify-email", map[string]string{"token": "junk"}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestResetPasswordEndpoints(t *testing.T) {
	t.Run("full flow", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "erin@taskhive.test")
		f.verifyLastEmail(t)

		rec := f.do(t, http.MethodPost, "/auth/reset-password-request", map[string]string{
			"email": "erin@taskhive.test",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
			"token":           f.mailer.lastToken(t),
			"newPassword":     "a brand new password",
			"confirmPassword": "a brand new password",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "erin@taskhive.test",
			"password": "a brand new password",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("mismatch keeps the link alive", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "fred@taskhive.test")
		f.verifyLastEmail(t)

		rec := f.do(t, http.MethodPost, "/auth/reset-password-request", map[string]string{
			"email": "fred@taskhive.test",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		token := f.mailer.lastToken(t)

		rec = f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
			"token":           token,
			"newPassword":     "one new password!",
			"confirmPassword": "a different password",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "password_mismatch", decodeBody[ErrorResponse](t, rec).Error)

		rec = f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
			"token":           token,
			"newPassword":     "one new password!",
			"confirmPassword": "one new password!",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("short replacement password is accepted", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "hugo@taskhive.test")
		f.verifyLastEmail(t)

		rec := f.do(t, http.MethodPost, "/auth/reset-password-request", map[string]string{
			"email": "hugo@taskhive.test",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/reset-password", map[string]string{
			"token":           f.mailer.lastToken(t),
			"newPassword":     "pw456",
			"confirmPassword": "pw456",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "hugo@taskhive.test",
			"password": "pw456",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unverified account cannot request", func(t *testing.T) {
		f := newAPIFixture(t)
		f.registerUser(t, "gina@taskhive.test")

		rec := f.do(t, http.MethodPost, "/auth/reset-password-request", map[string]string{
			"email": "gina@taskhive.test",
		}, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "email_not_verified", decodeBody[ErrorResponse](t, rec).Error)
	})
}

func TestMeEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerUser(t, "hank@taskhive.test")
	f.verifyLastEmail(t)

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "hank@taskhive.test",
		"password": "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	t.Run("with bearer token", func(t *testing.T) {
		header := http.Header{"Authorization": {"Bearer " + res.Token}}
		rec := f.do(t, http.MethodGet, "/auth/me", nil, header)
		require.Equal(t, http.StatusOK, rec.Code)

		user := decodeBody[UserResponse](t, rec)
		require.Equal(t, "hank@taskhive.test", user.Email)
		require.NotNil(t, user.LastLoginAt)
	})

	t.Run("without token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/auth/me", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("verification token is not a session", func(t *testing.T) {
		f2 := newAPIFixture(t)
		f2.registerUser(t, "iris@taskhive.test")

		header := http.Header{"Authorization": {"Bearer " + f2.mailer.lastToken(t)}}
		rec := f2.do(t, http.MethodGet, "/auth/me", nil, header)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/livez", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Database)
}
