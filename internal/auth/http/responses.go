package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/taskhive/taskhive-auth/internal/auth/domain"
	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
	"github.com/taskhive/taskhive-auth/pkg/slogx"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// AckResponse acknowledges a side-effecting request without disclosing
// identifiers or tokens.
type AckResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public shape of an account. The password hash never
// leaves the service.
type UserResponse struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	IsEmailVerified bool       `json:"isEmailVerified"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func toUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		IsEmailVerified: u.EmailVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

// decodeJSON reads a small JSON request body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Request body must be valid JSON",
		})
		return false
	}
	return true
}

func writeBadRequest(w http.ResponseWriter, message string) {
	httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}

// writeServiceError maps the service error taxonomy onto the wire. Anything
// unrecognised is logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *service.FilterDeniedError

	switch {
	case errors.As(err, &denied):
		httpx.WriteJSON(w, http.StatusForbidden, ErrorResponse{
			Error:   "registration_denied",
			Message: "Registration was declined",
		})
	case errors.Is(err, service.ErrEmailTaken):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "email_taken",
			Message: "An account with this email already exists",
		})
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Email or password is incorrect",
		})
	case errors.Is(err, service.ErrEmailNotVerified):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "email_not_verified",
			Message: "Verify your email address before continuing",
		})
	case errors.Is(err, service.ErrAlreadyVerified):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "already_verified",
			Message: "This email address is already verified",
		})
	case errors.Is(err, service.ErrVerificationPending):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "verification_pending",
			Message: "A verification link was already sent; check your inbox",
		})
	case errors.Is(err, service.ErrResetPending):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "reset_pending",
			Message: "A reset link was already sent; check your inbox",
		})
	case errors.Is(err, service.ErrAccountNotFound):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "account_not_found",
			Message: "No account exists for this email",
		})
	case errors.Is(err, service.ErrPasswordMismatch):
		httpx.WriteJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "password_mismatch",
			Message: "Passwords do not match",
		})
	case errors.Is(err, service.ErrTokenExpired):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "token_expired",
			Message: "This link has expired; request a new one",
		})
	case errors.Is(err, service.ErrUnauthorized):
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "This link is invalid or has already been used",
		})
	case errors.Is(err, service.ErrDeliveryFailed):
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "delivery_failed",
			Message: "Could not send the email; try again later",
		})
	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "server_error",
			Message: "Something went wrong",
		})
	}
}
