package api

import (
	"net/http"

	"github.com/erazemk/powerlister/internal/store"
)

// SessionHandler manages the local logged-in flag. There are no credentials.
type SessionHandler struct {
	KV store.KV
}

type sessionResponse struct {
	LoggedIn bool `json:"logged_in"`
}

// Get handles GET /api/session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	loggedIn, err := store.IsLoggedIn(r.Context(), h.KV)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sessionResponse{LoggedIn: loggedIn})
}

// Login handles POST /api/session.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := store.Login(r.Context(), h.KV); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sessionResponse{LoggedIn: true})
}

// Logout handles DELETE /api/session.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := store.Logout(r.Context(), h.KV); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, sessionResponse{LoggedIn: false})
}
