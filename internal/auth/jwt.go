// Package auth issues and checks the credentials that turn an HTTP request
// into a model.Actor.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User registers or logs in with email + password (or via GitHub).
//  2. Server issues a signed JWT carrying the user ID and role.
//  3. Client sends it back as "Authorization: Bearer <jwt>" (or the "token" cookie).
//  4. RequireAuth validates it and puts a model.Actor on the request context.
//  5. Handlers pass that Actor explicitly into the service layer.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<userID>","role":"donor","iss":"givehub","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The role is inside the signed payload, so a client cannot promote itself
// to admin by editing it.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/givehub/internal/model"
)

const issuer = "givehub"

// DefaultTokenTTL is how long an issued token stays valid unless configured otherwise.
const DefaultTokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A ttl of zero means DefaultTokenTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload: the registered claims plus the account role.
// "sub" (Subject) holds the internal user ID.
type claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TTL reports the lifetime given to new tokens. The handler uses it for the
// cookie Max-Age so both expire together.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates and signs a token for the user with the configured lifetime.
func (s *TokenService) Generate(userID string, role model.Role) (string, error) {
	return s.GenerateWithDuration(userID, role, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns the Actor it encodes.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer is "givehub"
//   - Algorithm is HS256 (blocks the "alg":"none" confusion attack)
//
// On top of that the role must be one we know.
func (s *TokenService) Validate(tokenStr string) (model.Actor, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Actor{}, fmt.Errorf("auth: token expired")
		}
		return model.Actor{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Actor{}, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return model.Actor{}, fmt.Errorf("auth: token has no subject")
	}
	if !c.Role.Valid() {
		return model.Actor{}, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return model.Actor{ID: c.Subject, Role: c.Role}, nil
}
