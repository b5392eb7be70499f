package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/repository"
	"github.com/sakif/givehub/internal/repository/memory"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// brokenUsers fails every GitHub lookup, to simulate a database failure.
type brokenUsers struct {
	repository.UserRepository
	err error
}

func (b *brokenUsers) GetUserByGitHubID(context.Context, int64) (*model.User, error) {
	return nil, b.err
}

// newTestAuthService returns an AuthService over users.
// The TokenService uses a short secret, suitable for tests only.
func newTestAuthService(t *testing.T, users repository.UserRepository) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum, which makes tests fast
	ps := auth.NewPasswordService(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(users, ts, ps, logger)
}

func registerDonor(t *testing.T, svc *AuthService) *AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Name: "Dana Donor", Email: "Dana@Example.com", Password: "hunter22", Role: model.RoleDonor,
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return result
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	svc := newTestAuthService(t, memory.New())

	result := registerDonor(t, svc)

	if result.Token == "" {
		t.Fatal("Register() returned empty Token")
	}
	if result.User.ID == "" {
		t.Error("User.ID should be set after register")
	}
	if result.User.Email != "dana@example.com" {
		t.Errorf("User.Email = %q, want lower-cased", result.User.Email)
	}
	if result.User.PasswordHash == "" || result.User.PasswordHash == "hunter22" {
		t.Error("password must be stored hashed")
	}

	actor, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if actor.ID != result.User.ID || actor.Role != model.RoleDonor {
		t.Errorf("actor = %+v, want id %q role donor", actor, result.User.ID)
	}
}

func TestRegister_Rejections(t *testing.T) {
	svc := newTestAuthService(t, memory.New())
	registerDonor(t, svc)

	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
		wantMsg string
	}{
		{
			name:    "missing name",
			in:      RegisterInput{Email: "a@b.com", Password: "x", Role: model.RoleDonor},
			wantErr: apperror.ErrValidation,
			wantMsg: "All fields are required.",
		},
		{
			name:    "unknown role",
			in:      RegisterInput{Name: "A", Email: "a@b.com", Password: "x", Role: "superuser"},
			wantErr: apperror.ErrValidation,
			wantMsg: "Invalid role specified.",
		},
		{
			name:    "admin self-registration",
			in:      RegisterInput{Name: "A", Email: "a@b.com", Password: "x", Role: model.RoleAdmin},
			wantErr: apperror.ErrForbidden,
			wantMsg: "Admin accounts cannot be self-registered.",
		},
		{
			name:    "bad email",
			in:      RegisterInput{Name: "A", Email: "not-an-email", Password: "x", Role: model.RoleReceiver},
			wantErr: apperror.ErrValidation,
			wantMsg: "Invalid email address.",
		},
		{
			name:    "duplicate email in another case",
			in:      RegisterInput{Name: "B", Email: "DANA@example.com", Password: "x", Role: model.RoleReceiver},
			wantErr: apperror.ErrConflict,
			wantMsg: "User with this email already exists.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCreateAccount_AllowsAdmin(t *testing.T) {
	svc := newTestAuthService(t, memory.New())

	user, err := svc.CreateAccount(context.Background(), RegisterInput{
		Name: "Root", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if user.Role != model.RoleAdmin {
		t.Errorf("Role = %q, want admin", user.Role)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	svc := newTestAuthService(t, memory.New())
	registered := registerDonor(t, svc)

	result, err := svc.Login(context.Background(), "  DANA@example.com ", "hunter22")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Errorf("logged in as %q, want %q", result.User.ID, registered.User.ID)
	}

	// Wrong password and unknown email look identical to the caller.
	for _, creds := range [][2]string{
		{"dana@example.com", "wrong"},
		{"nobody@example.com", "hunter22"},
	} {
		_, err := svc.Login(context.Background(), creds[0], creds[1])
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("Login(%q) error = %v, want unauthorized", creds[0], err)
		}
		if err.Error() != "Invalid email or password." {
			t.Errorf("message = %q", err.Error())
		}
	}

	_, err = svc.Login(context.Background(), "", "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Login() with empty fields error = %v, want validation", err)
	}
}

// =========================================================================
// LoginWithGitHub TESTS
// =========================================================================

func TestLoginWithGitHub_LinksByEmail(t *testing.T) {
	store := memory.New()
	svc := newTestAuthService(t, store)
	registered := registerDonor(t, svc)

	ghUser := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "dana@example.com"}
	result, err := svc.LoginWithGitHub(context.Background(), ghUser)
	if err != nil {
		t.Fatalf("LoginWithGitHub() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Errorf("signed in as %q, want existing user %q", result.User.ID, registered.User.ID)
	}

	linked, err := store.GetUserByGitHubID(context.Background(), 42)
	if err != nil {
		t.Fatalf("GitHub ID was not linked: %v", err)
	}
	if linked.ID != registered.User.ID {
		t.Errorf("linked to %q, want %q", linked.ID, registered.User.ID)
	}

	// Second sign-in goes by GitHub ID even if the GitHub email changed.
	result, err = svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 42, Login: "octocat", Email: "new@github.com"})
	if err != nil {
		t.Fatalf("second LoginWithGitHub() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Errorf("second sign-in as %q, want %q", result.User.ID, registered.User.ID)
	}
}

func TestLoginWithGitHub_NeverRegisters(t *testing.T) {
	store := memory.New()
	svc := newTestAuthService(t, store)

	_, err := svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "stranger", Email: "stranger@example.com"})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("LoginWithGitHub() error = %v, want unauthorized", err)
	}
	if _, err := store.GetUserByEmail(context.Background(), "stranger@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Error("no account should have been created")
	}

	_, err = svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 8, Login: "noemail"})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("missing email error = %v, want unauthorized", err)
	}
}

func TestLoginWithGitHub_NilGitHubUser(t *testing.T) {
	svc := newTestAuthService(t, memory.New())

	_, err := svc.LoginWithGitHub(context.Background(), nil)
	if err == nil {
		t.Fatal("LoginWithGitHub() should return error for nil GitHubUser")
	}
}

func TestLoginWithGitHub_RepositoryError(t *testing.T) {
	boom := errors.New("database is on fire")
	svc := newTestAuthService(t, &brokenUsers{UserRepository: memory.New(), err: boom})

	_, err := svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user", Email: "u@example.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("LoginWithGitHub() error = %v, want wrapped repository error", err)
	}
}

// =========================================================================
// GetUserByID TESTS
// =========================================================================

func TestGetUserByID_Found(t *testing.T) {
	svc := newTestAuthService(t, memory.New())
	registered := registerDonor(t, svc)

	user, err := svc.GetUserByID(context.Background(), registered.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Name != "Dana Donor" {
		t.Errorf("user.Name = %q, want %q", user.Name, "Dana Donor")
	}
}

func TestGetUserByID_Missing(t *testing.T) {
	svc := newTestAuthService(t, memory.New())

	for _, id := range []string{"", "non-existent-id"} {
		_, err := svc.GetUserByID(context.Background(), id)
		if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("GetUserByID(%q) error = %v, want not found", id, err)
		}
	}
}

// =========================================================================
// ValidateToken TESTS
// =========================================================================

func TestValidateToken_InvalidToken(t *testing.T) {
	svc := newTestAuthService(t, memory.New())

	_, err := svc.ValidateToken("this.is.garbage")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("ValidateToken() error = %v, want unauthorized", err)
	}
}
