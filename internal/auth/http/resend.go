package http

import (
	"net/http"
	"strings"

	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
)

// ResendVerificationHandler reissues a lapsed activation link without
// requiring the password.
type ResendVerificationHandler struct {
	AuthService *service.AuthService
}

type resendRequest struct {
	Email string `json:"email"`
}

func (h *ResendVerificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeBadRequest(w, "email is required")
		return
	}

	if err := h.AuthService.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AckResponse{
		Message: "A new verification link has been sent; check your email",
	})
}
