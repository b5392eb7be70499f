package auth

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/sakif/givehub/internal/model"
)

// contextKey is an unexported type so no other package can read or shadow
// the values this package puts on a context.
type contextKey string

const actorKey contextKey = "actor"

// CookieName is the cookie the token is also accepted from.
const CookieName = "token"

// RequireAuth enforces authentication on the routes it wraps.
//
// It reads the JWT from "Authorization: Bearer <jwt>", falling back to the
// "token" cookie, validates it and stores the resulting model.Actor in the
// request context. Missing or invalid tokens get a 401 JSON body in the
// same envelope the handlers use.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Access token required.")
				return
			}

			actor, err := tokens.Validate(raw)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token.")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole lets the request through only if the actor from RequireAuth
// holds one of the given roles. It must be mounted after RequireAuth.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, "unauthorized", "Access token required.")
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeAuthError(w, http.StatusForbidden, "forbidden", "Insufficient permissions.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor returns a copy of ctx carrying actor. Tests use it to call
// handlers directly without minting a token.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the authenticated actor from the request context.
// Returns false if the request has not been through RequireAuth.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(model.Actor)
	return actor, ok && actor.ID != ""
}

// extractToken prefers the Authorization header and falls back to the cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, found := strings.Cut(h, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// writeAuthError writes a JSON body by hand; this package cannot import
// handler without creating a cycle.
func writeAuthError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + kind + `","message":"` + message + `"}`))
}
