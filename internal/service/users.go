package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/auth"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// UserService is the credential store: registration, account changes and
// password checks.
//
// DEPENDENCIES (injected via NewUserService):
//   - users      repository.UserRepository → account records
//   - notes/tags                           → cascade on account deletion
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type UserService struct {
	users     repository.UserRepository
	notes     repository.NoteRepository
	tags      repository.TagRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService with all required dependencies.
func NewUserService(
	users repository.UserRepository,
	notes repository.NoteRepository,
	tags repository.TagRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		notes:     notes,
		tags:      tags,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account. Both inputs are trimmed and required.
//
// The username uniqueness check is case-insensitive and happens inside the
// repository, under the same lock as the insert.
func (s *UserService) Register(ctx context.Context, username, password *string) (*model.User, error) {
	// === VALIDATION ===
	if username == nil {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == nil {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	name, ok := trimmed(username)
	if !ok {
		return nil, apperror.ValidationFailed("username", "username must not be empty")
	}
	pass, ok := trimmed(password)
	if !ok {
		return nil, apperror.ValidationFailed("password", "password must not be empty")
	}

	hash, err := s.hash(pass)
	if err != nil {
		return nil, err
	}

	user := &model.User{Username: name, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Update changes the username and/or password of an existing account.
// A nil field is left alone; a field that is empty after trimming is a
// validation error.
func (s *UserService) Update(ctx context.Context, userID string, username, password *string) (*model.User, error) {
	var (
		newName string
		newHash string
	)

	if username != nil {
		name, ok := trimmed(username)
		if !ok {
			return nil, apperror.ValidationFailed("username", "username must not be empty")
		}
		newName = name
	}
	if password != nil {
		pass, ok := trimmed(password)
		if !ok {
			return nil, apperror.ValidationFailed("password", "password must not be empty")
		}
		// Hash before taking the repository lock; bcrypt is slow.
		hash, err := s.hash(pass)
		if err != nil {
			return nil, err
		}
		newHash = hash
	}

	user, err := s.users.UpdateUser(ctx, userID, func(u *model.User) error {
		if newName != "" {
			u.Username = newName
		}
		if newHash != "" {
			u.PasswordHash = newHash
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("updating user %s: %w", userID, err)
	}

	s.logger.Info("user updated",
		slog.String("userID", user.ID),
		slog.Bool("usernameChanged", newName != ""),
		slog.Bool("passwordChanged", newHash != ""),
	)
	return user, nil
}

// Delete removes the account and then every note and tag it owns.
//
// Collections are touched in the fixed order users → notes → tags.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting user %s: %w", userID, err)
	}

	notes, err := s.notes.DeleteNotesByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting notes of user %s: %w", userID, err)
	}
	tags, err := s.tags.DeleteTagsByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting tags of user %s: %w", userID, err)
	}

	s.logger.Info("user deleted",
		slog.String("userID", userID),
		slog.Int("notes", notes),
		slog.Int("tags", tags),
	)
	return nil
}

// VerifyCredentials returns the user when the username matches exactly and
// the password is right, and (nil, nil) on any mismatch.
//
// Unknown usernames still cost one bcrypt comparison, so response time does
// not reveal whether an account exists.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyDummy(password)
			return nil, nil
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, nil
	}
	return user, nil
}

// GetByID returns apperror.ErrNotFound for unknown ids.
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return "", apperror.ValidationFailed("password",
				fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}
