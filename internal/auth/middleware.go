package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the values stored under it.
type contextKey string

const identityKey contextKey = "identity"

// Realm is advertised in every WWW-Authenticate challenge.
const Realm = "notekeeper"

// Identity is what protected handlers know about the caller.
type Identity struct {
	UserID   string
	Username string
	// Token is the raw bearer token, kept so logout can revoke it.
	Token string
}

// Verifier checks a bearer token end to end: blacklist, signature,
// expiry and that the subject still exists. SessionService implements it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <jwt>", asks the verifier about it and
// stores the caller's Identity in the request context. Any failure ends the
// request with 401, a WWW-Authenticate challenge (RFC 6750) and a JSON body
// whose "reason" is one of missing, invalid, expired or revoked.
func RequireAuth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, ErrTokenMissing)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, err)
				return
			}

			id := Identity{
				UserID:   claims.Subject,
				Username: claims.Username,
				Token:    token,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the authenticated caller.
//
// Returns (Identity{}, false) outside of RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// bearerToken extracts the credentials of a Bearer Authorization header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type challenge struct {
	reason      string
	description string
}

func challengeFor(err error) challenge {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return challenge{reason: "missing", description: "authentication required"}
	case errors.Is(err, ErrTokenRevoked):
		return challenge{reason: "revoked", description: "token revoked"}
	case errors.Is(err, ErrTokenExpired):
		return challenge{reason: "expired", description: "token expired"}
	default:
		return challenge{reason: "invalid", description: "token invalid"}
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	c := challengeFor(err)

	header := fmt.Sprintf("Bearer realm=%q", Realm)
	if c.reason != "missing" {
		header += fmt.Sprintf(", error=\"invalid_token\", error_description=%q", c.description)
	}
	w.Header().Set("WWW-Authenticate", header)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": c.description,
		"reason":  c.reason,
	})
}
