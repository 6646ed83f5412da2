package http

import (
	"net/http"
	"strings"

	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
)

type LoginHandler struct {
	AuthService *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// An unverified account with a lapsed link got a fresh one instead of
	// a session.
	if res.VerificationSent {
		httpx.WriteJSON(w, http.StatusOK, AckResponse{
			Message: "A new verification link has been sent; check your email",
		})
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Token: res.Token,
		User:  toUserResponse(res.User),
	})
}
