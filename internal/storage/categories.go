package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// CreateCategory stores a new category.
func (r *BadgerRepository) CreateCategory(ctx context.Context, category domain.Category) error {
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now()
	}
	if category.UpdatedAt.IsZero() {
		category.UpdatedAt = category.CreatedAt
	}
	category.LinkCount = 0

	err := r.update(func(txn *badger.Txn) error {
		return setJSON(txn, categoryKey(category.UserID, category.ID), category)
	})
	if err != nil {
		return fmt.Errorf("create category %s: %w", category.Name, err)
	}

	r.log.WithFields(logrus.Fields{
		"user_id":     category.UserID,
		"category_id": category.ID,
		"slug":        category.Slug,
	}).Info("Category created")
	return nil
}

// GetCategory loads a category owned by userID.
func (r *BadgerRepository) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	var c domain.Category
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, categoryKey(userID, id), &c)
	})
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCategory overwrites an existing category.
func (r *BadgerRepository) UpdateCategory(ctx context.Context, category domain.Category) error {
	category.UpdatedAt = time.Now()
	category.LinkCount = 0

	err := r.update(func(txn *badger.Txn) error {
		key := categoryKey(category.UserID, category.ID)
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return setJSON(txn, key, category)
	})
	if err != nil {
		return fmt.Errorf("update category %s: %w", category.ID, err)
	}
	return nil
}

// DeleteCategory implements Repository.
func (r *BadgerRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	log := r.log.WithFields(logrus.Fields{"user_id": userID, "category_id": id})
	detached := 0

	err := r.update(func(txn *badger.Txn) error {
		detached = 0
		key := categoryKey(userID, id)
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		var affected []domain.Link
		err = scan(txn, linkPrefix(userID), func(l domain.Link) error {
			if l.CategoryID == id {
				affected = append(affected, l)
			}
			return nil
		})
		if err != nil {
			return err
		}

		now := time.Now()
		for _, l := range affected {
			l.CategoryID = ""
			l.UpdatedAt = now
			if err := setJSON(txn, linkKey(userID, l.ID), l); err != nil {
				return err
			}
		}
		detached = len(affected)
		return txn.Delete(key)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to delete category")
		return fmt.Errorf("delete category %s: %w", id, err)
	}

	log.WithField("detached_links", detached).Info("Category deleted")
	return nil
}

// ListCategories implements Repository.
func (r *BadgerRepository) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	var categories []domain.Category
	counts := make(map[string]int)

	err := r.db.View(func(txn *badger.Txn) error {
		if err := scan(txn, categoryPrefix(userID), func(c domain.Category) error {
			categories = append(categories, c)
			return nil
		}); err != nil {
			return err
		}
		return scan(txn, linkPrefix(userID), func(l domain.Link) error {
			if l.CategoryID != "" {
				counts[l.CategoryID]++
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list categories for user %s: %w", userID, err)
	}

	for i := range categories {
		categories[i].LinkCount = counts[categories[i].ID]
	}
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].CreatedAt.Before(categories[j].CreatedAt)
	})
	return categories, nil
}

// MaxCategorySortOrder returns the highest sort order in use, or 0 with no categories.
func (r *BadgerRepository) MaxCategorySortOrder(ctx context.Context, userID string) (int, error) {
	maxOrder := 0
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, categoryPrefix(userID), func(c domain.Category) error {
			if c.SortOrder > maxOrder {
				maxOrder = c.SortOrder
			}
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("max category sort order for user %s: %w", userID, err)
	}
	return maxOrder, nil
}

// ReorderCategories sets the sort order of each listed category in one transaction.
// An unknown id aborts the whole reorder with ErrNotFound.
func (r *BadgerRepository) ReorderCategories(ctx context.Context, userID string, orders map[string]int) error {
	err := r.update(func(txn *badger.Txn) error {
		now := time.Now()
		for id, order := range orders {
			var c domain.Category
			if err := getJSON(txn, categoryKey(userID, id), &c); err != nil {
				return fmt.Errorf("category %s: %w", id, err)
			}
			c.SortOrder = order
			c.UpdatedAt = now
			if err := setJSON(txn, categoryKey(userID, id), c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reorder categories for user %s: %w", userID, err)
	}
	return nil
}
