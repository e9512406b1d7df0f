package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
	"smartlink/internal/storage"
)

// CategoryInput creates a category.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=50"`
	Description string `json:"description"`
	Color       string `json:"color" validate:"omitempty,hexcolor,len=7"`
	Icon        string `json:"icon" validate:"max=50"`
	ParentID    string `json:"parent_id"`
}

// CategoryUpdate changes a category. Nil means unchanged.
type CategoryUpdate struct {
	Name        *string `json:"name" validate:"omitnil,min=1,max=50"`
	Description *string `json:"description"`
	Color       *string `json:"color" validate:"omitnil,hexcolor,len=7"`
	Icon        *string `json:"icon" validate:"omitnil,max=50"`
	ParentID    *string `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
}

// CategoryOrder is one entry of a reorder request.
type CategoryOrder struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sort_order"`
}

// CategoryService manages a user's categories.
type CategoryService struct {
	repo storage.Repository
	log  logrus.FieldLogger
	now  func() time.Time
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(repo storage.Repository, logger logrus.FieldLogger) *CategoryService {
	return &CategoryService{
		repo: repo,
		log:  logger.WithField("component", "category_service"),
		now:  time.Now,
	}
}

// Create adds a category at the end of the user's order.
func (s *CategoryService) Create(ctx context.Context, userID string, in CategoryInput) (*domain.Category, error) {
	return s.create(ctx, userID, in, false)
}

func (s *CategoryService) create(ctx context.Context, userID string, in CategoryInput, system bool) (*domain.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Color == "" {
		in.Color = domain.DefaultColor
	}
	if err := check(in); err != nil {
		return nil, err
	}

	maxOrder, err := s.repo.MaxCategorySortOrder(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	c := domain.Category{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Slug:        uniqueSlug(in.Name, now),
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		ParentID:    in.ParentID,
		SortOrder:   maxOrder + 1,
		IsSystem:    system,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update changes a category; a rename re-slugs it.
func (s *CategoryService) Update(ctx context.Context, userID, id string, in CategoryUpdate) (*domain.Category, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if err := check(in); err != nil {
		return nil, err
	}

	c, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		c.Name = *in.Name
		c.Slug = uniqueSlug(*in.Name, s.now())
	}
	if in.Color != nil {
		c.Color = *in.Color
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Icon != nil {
		c.Icon = *in.Icon
	}
	if in.ParentID != nil {
		c.ParentID = *in.ParentID
	}
	if in.SortOrder != nil {
		c.SortOrder = *in.SortOrder
	}

	if err := s.repo.UpdateCategory(ctx, *c); err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, userID, id)
}

// Delete removes a non-system category. Its links stay, uncategorized.
func (s *CategoryService) Delete(ctx context.Context, userID, id string) error {
	c, err := s.repo.GetCategory(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.IsSystem {
		return ErrSystemCategory
	}
	return s.repo.DeleteCategory(ctx, userID, id)
}

// Get returns one category.
func (s *CategoryService) Get(ctx context.Context, userID, id string) (*domain.Category, error) {
	return s.repo.GetCategory(ctx, userID, id)
}

// List returns categories in display order with link counts.
func (s *CategoryService) List(ctx context.Context, userID string) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, userID)
}

// Reorder assigns new sort orders atomically.
func (s *CategoryService) Reorder(ctx context.Context, userID string, orders []CategoryOrder) error {
	m := make(map[string]int, len(orders))
	for _, o := range orders {
		m[o.ID] = o.SortOrder
	}
	return s.repo.ReorderCategories(ctx, userID, m)
}

// Resolve finds the user's category named name, ignoring case, creating it when missing.
func (s *CategoryService) Resolve(ctx context.Context, userID, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	list, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if strings.EqualFold(list[i].Name, name) {
			return &list[i], nil
		}
	}

	c, err := s.create(ctx, userID, CategoryInput{Name: name}, false)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "category": c.Name}).Info("Category created from link")
	return c, nil
}

// InitUser seeds the system catch-all category for a new user. It is idempotent.
func (s *CategoryService) InitUser(ctx context.Context, userID string) error {
	list, err := s.repo.ListCategories(ctx, userID)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.IsSystem {
			return nil
		}
	}
	_, err = s.create(ctx, userID, CategoryInput{Name: domain.DefaultCategory}, true)
	return err
}
