package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// DefaultSweepInterval is how often expired blacklist entries are dropped.
const DefaultSweepInterval = time.Hour

// SessionService issues, verifies and revokes bearer tokens.
//
// It owns the blacklist: a revoked token stays on it until its own expiry
// passes, after which the sweeper removes it (an expired token is rejected
// by signature validation anyway).
type SessionService struct {
	users   *UserService
	revoked repository.RevocationRepository
	tokens  *auth.TokenService
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionService creates a SessionService with all required dependencies.
func NewSessionService(
	users *UserService,
	revoked repository.RevocationRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *SessionService {
	return &SessionService{
		users:   users,
		revoked: revoked,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

// Login checks the credentials and returns a fresh token.
//
// Unknown username and wrong password produce the same error text, so the
// response can't be used to enumerate accounts.
func (s *SessionService) Login(ctx context.Context, username, password *string) (string, error) {
	name, ok := trimmed(username)
	if !ok {
		return "", apperror.ValidationFailed("username", "username is required")
	}
	pass, ok := trimmed(password)
	if !ok {
		return "", apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.VerifyCredentials(ctx, name, pass)
	if err != nil {
		return "", fmt.Errorf("logging in: %w", err)
	}
	if user == nil {
		s.logger.Info("login failed", slog.String("username", name))
		return "", apperror.Unauthorized("invalid username or password")
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("issuing token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return token, nil
}

// Verify implements auth.Verifier.
//
// Order matters: the blacklist is consulted first so a revoked token is
// reported as revoked even when it has also expired.
func (s *SessionService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	revoked, err := s.revoked.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("checking blacklist: %w", err)
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, claims.UserID()); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", auth.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("checking token subject: %w", err)
	}

	return claims, nil
}

// Logout puts the token on the blacklist until its expiry.
// Logging out twice with the same token succeeds both times.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	exp, err := s.tokens.Expiry(token)
	if err != nil {
		return apperror.Unauthorized("token invalid")
	}

	entry := model.RevokedToken{
		Token:     token,
		Exp:       exp.Unix(),
		RevokedAt: s.now().Unix(),
	}
	if err := s.revoked.Revoke(ctx, entry); err != nil {
		s.logger.Error("failed to revoke token", slog.String("error", err.Error()))
		return fmt.Errorf("revoking token: %w", err)
	}

	s.logger.Info("token revoked", slog.Time("exp", exp))
	return nil
}

// SweepExpired drops blacklist entries whose expiry is at or before now and
// returns how many were removed. Storage is only rewritten when something
// was removed.
func (s *SessionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	removed, err := s.revoked.PruneRevoked(ctx, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sweeping blacklist: %w", err)
	}
	if removed > 0 {
		s.logger.Info("blacklist swept", slog.Int("removed", removed))
	}
	return removed, nil
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
// It blocks; start it on its own goroutine.
func (s *SessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Debug("blacklist sweeper started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("blacklist sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx, s.now()); err != nil {
				s.logger.Error("blacklist sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
