// internal/server/auth_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mfjones/chatter/internal/auth"
	"github.com/mfjones/chatter/internal/store"
)

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, errCode, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Email == "" || req.Username == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "validation_failed", "Email, username and password are required")
		return
	}
	if len(req.Password) < 6 {
		s.writeError(w, http.StatusBadRequest, "validation_failed", "Password must be at least 6 characters")
		return
	}

	user, err := s.authService.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.writeError(w, http.StatusBadRequest, "user_already_exists", "Email or username already registered")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to create user")
		return
	}

	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        *store.User `json:"user"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	grantType := r.URL.Query().Get("grant_type")
	if grantType != "password" {
		s.writeError(w, http.StatusBadRequest, "invalid_grant", "Unsupported grant type")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, token, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to sign in")
		return
	}

	json.NewEncoder(w).Encode(TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   token.ExpiresIn,
		User:        user,
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	json.NewEncoder(w).Encode(user)
}

type UpdateUserRequest struct {
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.Username == "" {
		req.Username = user.Username
	}
	if req.Avatar == nil {
		req.Avatar = user.Avatar
	}

	if err := s.users.UpdateProfile(r.Context(), user.ID, req.Username, req.Avatar); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.writeError(w, http.StatusBadRequest, "username_taken", "Username already taken")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to update profile")
		return
	}

	updated, err := s.users.Get(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "server_error", "Failed to load profile")
		return
	}
	json.NewEncoder(w).Encode(updated)
}
