package http

import (
	"log/slog"
	"net/http"

	"expensio/internal/core"
	"expensio/internal/log"
	"expensio/internal/service"
)

type authResponse struct {
	Token string  `json:"token"`
	User  userDTO `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	// Public signup only creates employee accounts. Admins are provisioned
	// through the seed command, never through this endpoint.
	u, err := s.users.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     core.RoleEmployee,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User registered",
		log.FieldUserID, u.ID, log.FieldRole, string(u.Role))

	writeData(w, http.StatusCreated, authResponse{Token: token, User: toUserDTO(u)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "User logged in",
		log.FieldUserID, u.ID, log.FieldRole, string(u.Role))

	writeData(w, http.StatusOK, authResponse{Token: token, User: toUserDTO(u)})
}
