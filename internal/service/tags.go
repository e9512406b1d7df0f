package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/storage"
)

// TagInput creates a tag.
type TagInput struct {
	Name  string `json:"name" validate:"required,max=50"`
	Color string `json:"color" validate:"omitempty,hexcolor,len=7"`
}

// TagService manages a user's tags and their attachment to links.
type TagService struct {
	repo storage.Repository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewTagService creates a TagService.
func NewTagService(repo storage.Repository, logger logrus.FieldLogger) *TagService {
	return &TagService{
		repo: repo,
		log:  logger.WithField("component", "tag_service"),
		now:  time.Now,
	}
}

// Create adds a tag. Names are unique per user, ignoring case.
func (s *TagService) Create(ctx context.Context, userID string, in TagInput) (*domain.Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Color == "" {
		in.Color = domain.DefaultColor
	}
	if err := check(in); err != nil {
		return nil, err
	}

	t := domain.Tag{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Slug:      Slugify(in.Name),
		Color:     in.Color,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateTag(ctx, t); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrTagExists
		}
		return nil, err
	}
	return &t, nil
}

// Delete removes a tag from every link and then the tag itself.
func (s *TagService) Delete(ctx context.Context, userID, id string) error {
	return s.repo.DeleteTag(ctx, userID, id)
}

// List returns the user's tags, most used first.
func (s *TagService) List(ctx context.Context, userID string) ([]domain.Tag, error) {
	return s.repo.ListTags(ctx, userID)
}

// Attach tags a link. Attaching twice is a no-op.
func (s *TagService) Attach(ctx context.Context, userID, linkID, tagID string) error {
	added, err := s.repo.AddLinkTag(ctx, userID, linkID, tagID)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"link_id": linkID,
		"tag_id":  tagID,
		"added":   added,
	}).Debug("Tag attached")
	return nil
}

// Detach untags a link. Detaching an absent tag is a no-op.
func (s *TagService) Detach(ctx context.Context, userID, linkID, tagID string) error {
	_, err := s.repo.RemoveLinkTag(ctx, userID, linkID, tagID)
	return err
}

// ForLink lists the tags attached to a link.
func (s *TagService) ForLink(ctx context.Context, userID, linkID string) ([]domain.Tag, error) {
	return s.repo.ListLinkTags(ctx, userID, linkID)
}
