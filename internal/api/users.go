package api

import (
	"net/http"
)

// GET /users
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.storeError(w, err, "User not found", "Error fetching users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
