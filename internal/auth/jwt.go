// Package auth provides JWT issuance/validation, bcrypt password hashing
// and the bearer-token middleware for the notekeeper API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client registers with POST /users (username + password, stored as a bcrypt hash)
//  2. Client logs in with POST /sessions and receives a signed JWT
//  3. Client sends "Authorization: Bearer <jwt>" on every protected request
//  4. RequireAuth checks the blacklist, verifies the signature and expiry,
//     and stores the caller's Identity in the request context
//  5. DELETE /sessions puts the token on the blacklist until it expires
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"<user id>","username":"alice","iss":"notekeeper","exp":...,"jti":"<uuid>"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// Issuer is written to and required in the "iss" claim.
	Issuer = "notekeeper"

	// TokenTTL is the lifetime of an access token.
	TokenTTL = time.Hour

	minSecretLength = 16
)

// Sentinel errors returned by token validation and the session layer.
// The middleware maps each one to a distinct 401 reason.
var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenRevoked = errors.New("auth: token revoked")
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Claims is the JWT payload. The user id lives in the standard "sub" claim;
// the username is carried alongside so handlers don't need a lookup to log it.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string {
	return c.Subject
}

// Issue creates and signs a token valid for TokenTTL.
func (s *TokenService) Issue(userID, username string) (string, *Claims, error) {
	return s.IssueWithDuration(userID, username, TokenTTL)
}

// IssueWithDuration creates a token with a custom lifetime.
// A negative duration yields an already-expired token.
func (s *TokenService) IssueWithDuration(userID, username string, d time.Duration) (string, *Claims, error) {
	now := s.now()

	c := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, c, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Algorithm is HS256 (prevents "alg: none" and algorithm confusion)
//   - Issuer matches "notekeeper"
//   - Token carries an expiry, and it is in the future
//
// Expired tokens return ErrTokenExpired; every other failure returns
// ErrTokenInvalid.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || c.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return c, nil
}

// Expiry reads the "exp" claim without checking the signature.
// Logout uses it to decide how long a token stays on the blacklist; the
// token has already passed Validate by the time it gets there.
func (s *TokenService) Expiry(tokenStr string) (time.Time, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, c); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if c.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: no exp claim", ErrTokenInvalid)
	}
	return c.ExpiresAt.Time, nil
}
