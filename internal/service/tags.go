package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/sakif/notekeeper/internal/apperror"
	"github.com/sakif/notekeeper/internal/model"
	"github.com/sakif/notekeeper/internal/repository"
)

// MaxTagNameLength caps tag names.
const MaxTagNameLength = 64

// TagService handles business logic for tags.
type TagService struct {
	repo   repository.TagRepository
	logger *slog.Logger
}

// NewTagService creates a new TagService.
func NewTagService(repo repository.TagRepository, logger *slog.Logger) *TagService {
	return &TagService{
		repo:   repo,
		logger: logger,
	}
}

func (s *TagService) List(ctx context.Context, userID string) ([]model.Tag, error) {
	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// Create saves a new tag. Names are trimmed, required and unique per owner
// (exact match).
func (s *TagService) Create(ctx context.Context, userID string, name *string) (*model.Tag, error) {
	n, ok := trimmed(name)
	if !ok {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if err := checkTagName(n); err != nil {
		return nil, err
	}

	tag := &model.Tag{UserID: userID, Name: n}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create tag",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating tag: %w", err)
	}

	s.logger.Info("tag created",
		slog.String("id", tag.ID),
		slog.String("userID", userID),
		slog.String("name", tag.Name),
	)
	return tag, nil
}

// Update renames a tag. An absent or blank name leaves the tag untouched
// but still answers with its current state.
func (s *TagService) Update(ctx context.Context, userID, id string, name *string) (*model.Tag, error) {
	n, rename := trimmed(name)
	if rename {
		if err := checkTagName(n); err != nil {
			return nil, err
		}
	}

	tag, err := s.repo.UpdateTag(ctx, userID, id, func(t *model.Tag) error {
		if rename {
			t.Name = n
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) || errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("updating tag %s: %w", id, err)
	}

	if rename {
		s.logger.Info("tag renamed", slog.String("id", id), slog.String("name", n))
	}
	return tag, nil
}

func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteTag(ctx, userID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}

	s.logger.Info("tag deleted", slog.String("id", id), slog.String("userID", userID))
	return nil
}

func checkTagName(name string) error {
	if utf8.RuneCountInString(name) > MaxTagNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxTagNameLength))
	}
	return nil
}
