package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/camera-management/internal/model"
	"github.com/iliyamo/camera-management/internal/repository"
	"github.com/iliyamo/camera-management/internal/utils"
)

// Errors returned by AuthService.  Handlers map them to HTTP statuses; any
// other error is internal.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrMissingCredentials = fmt.Errorf("%w: username and password are required", ErrValidation)
	ErrInvalidRole        = fmt.Errorf("%w: role must be Admin or Operator", ErrValidation)
	ErrPasswordTooLong    = fmt.Errorf("%w: password exceeds %d bytes", ErrValidation, MaxPasswordBytes)
)

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// UserStore is the part of the credential store the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// SignupInput is the admin-supplied data for a new user.
type SignupInput struct {
	Username string
	Password string
	Role     string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	Token utils.AccessToken
	User  model.PublicUser
}

// AuthService runs signup and login against the credential store.
type AuthService struct {
	users  UserStore
	tokens *utils.TokenService
	cost   int

	// compared against on unknown usernames so both login failures cost
	// one bcrypt verification
	dummyHash string
}

// NewAuthService wires the auth flow.  cost is the bcrypt work factor.
func NewAuthService(users UserStore, tokens *utils.TokenService, cost int) (*AuthService, error) {
	dummy, err := utils.HashPassword("camera-management/dummy", cost)
	if err != nil {
		return nil, err
	}
	return &AuthService{users: users, tokens: tokens, cost: cost, dummyHash: dummy}, nil
}

// Tokens exposes the token service the flow issues with.
func (s *AuthService) Tokens() *utils.TokenService { return s.tokens }

// Signup creates a user and returns a token for it.  Authorization of the
// caller happens before this is reached.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidRole
	}

	switch _, err := s.users.GetByUsername(ctx, username); {
	case err == nil:
		return nil, fmt.Errorf("%w: username already exists", ErrConflict)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}
	u := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent signup for the same name
		if errors.Is(err, repository.ErrUsernameExists) {
			return nil, fmt.Errorf("%w: username already exists", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return s.issue(u)
}

// Login verifies credentials.  An unknown username and a wrong password
// both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.VerifyPassword(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *model.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, User: u.Public()}, nil
}
