package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/givehub/internal/apperror"
	"github.com/sakif/givehub/internal/auth"
	"github.com/sakif/givehub/internal/model"
	"github.com/sakif/givehub/internal/service"
)

const stateCookie = "oauth_state"

// GitHubExchanger is the part of *auth.GitHubProvider the handler uses.
type GitHubExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages sign-up, sign-in and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister / HandleLogin → email + password, returns user and JWT
//   - HandleGitHubLogin            → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback         → receive the code, link to an existing account, issue JWT
//   - HandleLogout                 → clear the JWT cookie
//   - HandleMe                     → return the currently logged-in user's profile
//
// The JWT is returned in the body (for API clients using the Authorization
// header) and also set as an HttpOnly cookie (for the browser).
type AuthHandler struct {
	svc      *service.AuthService
	github   GitHubExchanger // nil when GitHub sign-in is not configured
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github GitHubExchanger, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:      svc,
		github:   github,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type registerBody struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     model.Role `json:"role"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a donor or receiver account.
//
// HTTP: POST /api/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "...", "role": "donor"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Register(r.Context(), service.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
		Role:     body.Role,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeSuccess(w, http.StatusCreated, "Registration successful!", payload{"user": result.User, "token": result.Token})
}

// HandleLogin checks email + password.
//
// HTTP: POST /api/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeSuccess(w, http.StatusOK, "Login successful!", payload{"user": result.User, "token": result.Token})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// We generate a random state string and store it in a short-lived cookie.
// When GitHub calls back, HandleGitHubCallback verifies the state matches.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFoundMsg("GitHub sign-in is not enabled."))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find the account by GitHub ID or email (never create one)
//  4. Issue a JWT access token stored in an HttpOnly cookie
//  5. Redirect to the app home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFoundMsg("GitHub sign-in is not enabled."))
		return
	}

	// --- Step 1: Validate CSRF state ---
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: invalid OAuth state")
		writeError(w, r, h.logger, apperror.ValidationFailed("state", "Invalid OAuth state."))
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("code", "Missing OAuth code."))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	// --- Step 3: Find the account ---
	result, err := h.svc.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			h.logger.Info("auth callback: no account for GitHub user", slog.String("login", ghUser.Login))
			http.Redirect(w, r, "/?auth=unregistered", http.StatusSeeOther)
			return
		}
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	// --- Steps 4 and 5 ---
	h.setTokenCookie(w, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /api/logout
//
// Since we're stateless (JWT), "logout" just means deleting the client-side
// cookie. The token remains technically valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeSuccess(w, http.StatusOK, "Logged out successfully.", nil)
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", payload{"user": user})
}

// setTokenCookie stores the JWT as an HttpOnly cookie that lives as long as
// the token does. Secure should be true in production (HTTPS only).
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
