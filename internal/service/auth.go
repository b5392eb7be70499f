// Authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// KEY RESPONSIBILITIES:
//   - Register and log in accounts with email + password
//   - Finish GitHub sign-in by linking it to an existing account
//   - Issue the JWT that the middleware later turns back into a model.Actor

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
)

const invalidCredentials = "Invalid email or password."

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → generate/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     model.Role
}

// Register creates a donor or receiver account and logs it in.
// Admin accounts cannot be self-registered; they come from the seeder.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || in.Role == "" {
		return nil, apperror.ValidationFailed("", "All fields are required.")
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "Invalid role specified.")
	}
	if in.Role == model.RoleAdmin {
		return nil, apperror.Forbidden("Admin accounts cannot be self-registered.")
	}

	user, err := s.CreateAccount(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CreateAccount validates and stores a new account of any role without
// logging it in.
func (s *AuthService) CreateAccount(ctx context.Context, in RegisterInput) (*model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if name == "" || email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("", "All fields are required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "Invalid email address.")
	}
	if !in.Role.Valid() {
		return nil, apperror.ValidationFailed("role", "Invalid role specified.")
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be 72 bytes or fewer.")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Login checks email + password. Unknown email and wrong password give the
// same error so the response does not reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "Email and password are required.")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized(invalidCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginWithGitHub finishes the GitHub OAuth callback.
//
// A GitHub account already linked signs straight in. Otherwise the GitHub
// email is matched against existing accounts and, if found, the GitHub ID is
// linked to that account. No account is ever created here, because a role
// has to be chosen at registration.
func (s *AuthService) LoginWithGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, ghUser.ID)
	if err == nil {
		s.logger.Info("user authenticated via GitHub", slog.String("userID", user.ID))
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", ghUser.ID, err)
	}

	if ghUser.Email == "" {
		return nil, apperror.Unauthorized("Your GitHub account has no verified email address.")
	}

	user, err = s.users.GetUserByEmail(ctx, ghUser.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("No account is registered with your GitHub email. Please register first.")
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", ghUser.Email, err)
	}

	if err := s.users.LinkGitHub(ctx, user.ID, ghUser.ID); err != nil {
		return nil, fmt.Errorf("service/auth: linking github user %d: %w", ghUser.ID, err)
	}
	user.GitHubID = ghUser.ID

	s.logger.Info("GitHub account linked",
		slog.String("userID", user.ID),
		slog.String("login", ghUser.Login),
	)
	return s.issue(user)
}

// GetUserByID returns the user for the given internal ID. Used by /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.NotFoundMsg("User not found.")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFoundMsg("User not found.")
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken validates a JWT and returns the Actor it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (model.Actor, error) {
	actor, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return model.Actor{}, apperror.Unauthorized("Invalid or expired token.")
	}
	return actor, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
