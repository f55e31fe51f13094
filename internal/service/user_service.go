package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"expensio/internal/auth"
	"expensio/internal/core"
)

const minPasswordLen = 8

// UserService handles account registration and credential checks.
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// RegisterInput carries the fields accepted at signup. Role is set by the
// calling surface, never by the end user; public signup always passes
// EMPLOYEE and the seed command is the only caller granting ADMIN.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
	Role     core.Role
}

// Register validates the input, hashes the password and stores the account.
// The role defaults to EMPLOYEE when unset.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (core.User, error) {
	var ve core.ValidationError

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		ve.Add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		ve.Add("email", "email is not a valid address")
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		ve.Add("name", "name is required")
	}

	if len(input.Password) < minPasswordLen {
		ve.Add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}

	role := input.Role
	if role == "" {
		role = core.RoleEmployee
	}
	if !role.Valid() {
		ve.Add("role", "role must be EMPLOYEE or ADMIN")
	}

	if err := ve.Err(); err != nil {
		return core.User{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return core.User{}, core.NewValidationError("email", "email is already registered")
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("check existing user: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := core.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
	}
	created, err := s.store.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// Authenticate verifies the credentials and returns the account.
// Unknown emails and wrong passwords both yield ErrUnauthenticated so the
// response does not reveal which one failed.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.User{}, core.ErrUnauthenticated
		}
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return core.User{}, core.ErrUnauthenticated
	}
	return u, nil
}
