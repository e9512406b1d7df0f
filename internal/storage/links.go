package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// Paging defaults for ListLinks.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateLink stores a new link. The original URL must be unique for the user.
func (r *BadgerRepository) CreateLink(ctx context.Context, link domain.Link) error {
	log := r.log.WithFields(logrus.Fields{
		"user_id": link.UserID,
		"url":     link.OriginalURL,
	})

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = link.CreatedAt
	}

	err := r.update(func(txn *badger.Txn) error {
		urlKey := linkURLKey(link.UserID, link.OriginalURL)
		taken, err := exists(txn, urlKey)
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}
		if err := txn.Set(urlKey, []byte(link.ID)); err != nil {
			return err
		}
		return setJSON(txn, linkKey(link.UserID, link.ID), link)
	})
	if err != nil {
		log.WithError(err).Warn("Failed to save link")
		return fmt.Errorf("create link %s: %w", link.OriginalURL, err)
	}

	log.WithField("link_id", link.ID).Info("Link saved")
	return nil
}

// GetLink loads a link owned by userID.
func (r *BadgerRepository) GetLink(ctx context.Context, userID, id string) (*domain.Link, error) {
	var l domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, linkKey(userID, id), &l)
	})
	if err != nil {
		return nil, fmt.Errorf("get link %s: %w", id, err)
	}
	return &l, nil
}

// FindLinkByURL loads the user's link with the given original URL.
func (r *BadgerRepository) FindLinkByURL(ctx context.Context, userID, url string) (*domain.Link, error) {
	var l domain.Link
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, linkURLKey(userID, url))
		if err != nil {
			return err
		}
		return getJSON(txn, linkKey(userID, id), &l)
	})
	if err != nil {
		return nil, fmt.Errorf("find link by url %s: %w", url, err)
	}
	return &l, nil
}

// UpdateLink overwrites an existing link. The original URL cannot change.
func (r *BadgerRepository) UpdateLink(ctx context.Context, link domain.Link) error {
	link.UpdatedAt = time.Now()

	err := r.update(func(txn *badger.Txn) error {
		var current domain.Link
		if err := getJSON(txn, linkKey(link.UserID, link.ID), &current); err != nil {
			return err
		}
		link.OriginalURL = current.OriginalURL
		link.CreatedAt = current.CreatedAt
		return setJSON(txn, linkKey(link.UserID, link.ID), link)
	})
	if err != nil {
		return fmt.Errorf("update link %s: %w", link.ID, err)
	}
	return nil
}

// DeleteLink implements Repository.
func (r *BadgerRepository) DeleteLink(ctx context.Context, userID, id string) error {
	log := r.log.WithFields(logrus.Fields{"user_id": userID, "link_id": id})

	err := r.update(func(txn *badger.Txn) error {
		var l domain.Link
		if err := getJSON(txn, linkKey(userID, id), &l); err != nil {
			return err
		}

		for _, key := range scanKeys(txn, linkTagPrefix(id)) {
			tagID := lastSegment(key)
			if err := adjustTagUsage(txn, userID, tagID, -1); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete(tagLinkKey(tagID, id)); err != nil {
				return err
			}
		}

		if err := txn.Delete(linkURLKey(userID, l.OriginalURL)); err != nil {
			return err
		}
		return txn.Delete(linkKey(userID, id))
	})
	if err != nil {
		log.WithError(err).Warn("Failed to delete link")
		return fmt.Errorf("delete link %s: %w", id, err)
	}

	log.Info("Link deleted")
	return nil
}

// ListLinks implements Repository.
//
// Search matches the original, AI and custom titles and the URL,
// case-insensitively. TagIDs keeps links carrying every listed tag.
func (r *BadgerRepository) ListLinks(ctx context.Context, userID string, filter domain.LinkFilter, order domain.LinkSort, page domain.Page) (*domain.LinkPage, error) {
	var links []domain.Link

	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, linkPrefix(userID), func(l domain.Link) error {
			if !matchesFilter(l, filter) {
				return nil
			}
			if len(filter.TagIDs) > 0 {
				ok, err := hasAllTags(txn, l.ID, filter.TagIDs)
				if err != nil || !ok {
					return err
				}
			}
			links = append(links, l)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list links for user %s: %w", userID, err)
	}

	sortLinks(links, order)
	return paginate(links, page), nil
}

// IncrementViewCount bumps the view counter and records the view time.
func (r *BadgerRepository) IncrementViewCount(ctx context.Context, userID, id string, at time.Time) (*domain.Link, error) {
	var l domain.Link
	err := r.update(func(txn *badger.Txn) error {
		if err := getJSON(txn, linkKey(userID, id), &l); err != nil {
			return err
		}
		l.ViewCount++
		viewed := at
		l.LastViewedAt = &viewed
		return setJSON(txn, linkKey(userID, id), l)
	})
	if err != nil {
		return nil, fmt.Errorf("increment view count of link %s: %w", id, err)
	}
	return &l, nil
}

func matchesFilter(l domain.Link, f domain.LinkFilter) bool {
	if f.CategoryID != "" && l.CategoryID != f.CategoryID {
		return false
	}
	if f.IsFavorite != nil && l.IsFavorite != *f.IsFavorite {
		return false
	}
	if f.IsArchived != nil && l.IsArchived != *f.IsArchived {
		return false
	}
	if f.ContentType != "" && l.ContentType != f.ContentType {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		for _, field := range []string{l.OriginalTitle, l.AITitle, l.CustomTitle, l.OriginalURL} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	}
	return true
}

func hasAllTags(txn *badger.Txn, linkID string, tagIDs []string) (bool, error) {
	for _, tagID := range tagIDs {
		ok, err := exists(txn, linkTagKey(linkID, tagID))
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func sortLinks(links []domain.Link, order domain.LinkSort) {
	if order.Field == "" {
		order = domain.DefaultLinkSort
	}

	compare := func(a, b domain.Link) int {
		switch order.Field {
		case domain.SortByUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case domain.SortByViewCount:
			return a.ViewCount - b.ViewCount
		case domain.SortByTitle:
			return strings.Compare(strings.ToLower(a.DisplayTitle()), strings.ToLower(b.DisplayTitle()))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(links, func(i, j int) bool {
		c := compare(links[i], links[j])
		if c == 0 {
			// Newest first among equals, then by id for a stable page boundary.
			if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
				return links[i].CreatedAt.After(links[j].CreatedAt)
			}
			return links[i].ID < links[j].ID
		}
		if order.Desc {
			return c > 0
		}
		return c < 0
	})
}

func paginate(links []domain.Link, p domain.Page) *domain.LinkPage {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}

	total := len(links)
	from := min((p.Page-1)*p.PageSize, total)
	to := min(from+p.PageSize, total)

	window := make([]domain.Link, to-from)
	copy(window, links[from:to])

	return &domain.LinkPage{
		Links:      window,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: (total + p.PageSize - 1) / p.PageSize,
	}
}
