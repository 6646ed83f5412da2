package http

import (
	"net/http"
	"net/mail"
	"strings"

	"github.com/taskhive/taskhive-auth/internal/auth/service"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
)

type RegisterHandler struct {
	AuthService *service.AuthService
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeBadRequest(w, "A valid email address is required")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}

	if err := h.AuthService.Register(r.Context(), req.Email, req.Name, req.Password); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, AckResponse{
		Message: "Account created; check your email for a verification link",
	})
}
