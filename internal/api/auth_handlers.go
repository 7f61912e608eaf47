package api

import (
	"net/http"
	"strings"

	"github.com/codetrail/tracker/internal/auth"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userInfo `json:"user"`
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Name == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email, name and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	user, err := s.store.CreateUser(r.Context(), req.Email, req.Name, hash)
	if err != nil {
		s.storeError(w, err, "User not found", "User already exists")
		return
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error creating user")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  userInfo{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}

// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		// Same response whether the user is missing or the password is
		// wrong, so login can't be used to probe for accounts.
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error logging in")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userInfo{ID: user.ID, Email: user.Email, Name: user.Name},
	})
}
