package http

import (
	"net/http"
	"strings"

	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
)

// ResetRequestHandler starts the reset flow by mailing a short-lived link.
type ResetRequestHandler struct {
	AuthService *service.AuthService
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

func (h *ResetRequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if err := h.AuthService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AckResponse{
		Message: "A password reset link has been sent; check your email",
	})
}

// ResetCompleteHandler finishes the flow by consuming the token.
type ResetCompleteHandler struct {
	AuthService *service.AuthService
}

type resetCompleteRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *ResetCompleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Token == "" {
		writeBadRequest(w, "token is required")
		return
	}
	if req.NewPassword == "" {
		writeBadRequest(w, "newPassword is required")
		return
	}

	err := h.AuthService.CompletePasswordReset(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AckResponse{
		Message: "Password updated; you can now log in",
	})
}
