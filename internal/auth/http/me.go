package http

import (
	"errors"
	"net/http"

	"github.com/taskhive/taskhive-auth/internal/auth/store"
	"github.com/taskhive/taskhive-auth/pkg/httpx"
)

// MeHandler returns the account behind the presented session token. It sits
// behind the authn middleware, so a missing user id means a stale session
// for a deleted account.
type MeHandler struct {
	Store store.Store
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := httpx.UserIDFromContext(r.Context())
	if !ok {
		httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Authentication required",
		})
		return
	}

	user, err := h.Store.Users().GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "Account no longer exists",
			})
			return
		}
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}
