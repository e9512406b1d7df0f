package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// CreateTag stores a new tag. Its name must be unique for the user, ignoring case.
func (r *BadgerRepository) CreateTag(ctx context.Context, tag domain.Tag) error {
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now()
	}

	err := r.update(func(txn *badger.Txn) error {
		nameKey := tagNameKey(tag.UserID, tag.Name)
		taken, err := exists(txn, nameKey)
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}
		if err := txn.Set(nameKey, []byte(tag.ID)); err != nil {
			return err
		}
		return setJSON(txn, tagKey(tag.UserID, tag.ID), tag)
	})
	if err != nil {
		return fmt.Errorf("create tag %s: %w", tag.Name, err)
	}

	r.log.WithFields(logrus.Fields{"user_id": tag.UserID, "tag": tag.Name}).Info("Tag created")
	return nil
}

// GetTag loads a tag owned by userID.
func (r *BadgerRepository) GetTag(ctx context.Context, userID, id string) (*domain.Tag, error) {
	var t domain.Tag
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, tagKey(userID, id), &t)
	})
	if err != nil {
		return nil, fmt.Errorf("get tag %s: %w", id, err)
	}
	return &t, nil
}

// DeleteTag implements Repository.
func (r *BadgerRepository) DeleteTag(ctx context.Context, userID, id string) error {
	err := r.update(func(txn *badger.Txn) error {
		var t domain.Tag
		if err := getJSON(txn, tagKey(userID, id), &t); err != nil {
			return err
		}
		for _, key := range scanKeys(txn, tagLinkPrefix(id)) {
			if err := txn.Delete(linkTagKey(lastSegment(key), id)); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		if err := txn.Delete(tagNameKey(userID, t.Name)); err != nil {
			return err
		}
		return txn.Delete(tagKey(userID, id))
	})
	if err != nil {
		return fmt.Errorf("delete tag %s: %w", id, err)
	}

	r.log.WithFields(logrus.Fields{"user_id": userID, "tag_id": id}).Info("Tag deleted")
	return nil
}

// ListTags implements Repository.
func (r *BadgerRepository) ListTags(ctx context.Context, userID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, tagPrefix(userID), func(t domain.Tag) error {
			tags = append(tags, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list tags for user %s: %w", userID, err)
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].UsageCount != tags[j].UsageCount {
			return tags[i].UsageCount > tags[j].UsageCount
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

// AddLinkTag implements Repository.
func (r *BadgerRepository) AddLinkTag(ctx context.Context, userID, linkID, tagID string) (bool, error) {
	added := false
	err := r.update(func(txn *badger.Txn) error {
		added = false
		if err := requireLinkAndTag(txn, userID, linkID, tagID); err != nil {
			return err
		}
		attached, err := exists(txn, linkTagKey(linkID, tagID))
		if err != nil || attached {
			return err
		}

		if err := setJSON(txn, linkTagKey(linkID, tagID), domain.LinkTag{
			LinkID:    linkID,
			TagID:     tagID,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if err := txn.Set(tagLinkKey(tagID, linkID), nil); err != nil {
			return err
		}
		added = true
		return adjustTagUsage(txn, userID, tagID, 1)
	})
	if err != nil {
		return false, fmt.Errorf("add tag %s to link %s: %w", tagID, linkID, err)
	}
	return added, nil
}

// RemoveLinkTag implements Repository.
func (r *BadgerRepository) RemoveLinkTag(ctx context.Context, userID, linkID, tagID string) (bool, error) {
	removed := false
	err := r.update(func(txn *badger.Txn) error {
		removed = false
		if err := requireLinkAndTag(txn, userID, linkID, tagID); err != nil {
			return err
		}
		attached, err := exists(txn, linkTagKey(linkID, tagID))
		if err != nil || !attached {
			return err
		}

		if err := txn.Delete(linkTagKey(linkID, tagID)); err != nil {
			return err
		}
		if err := txn.Delete(tagLinkKey(tagID, linkID)); err != nil {
			return err
		}
		removed = true
		return adjustTagUsage(txn, userID, tagID, -1)
	})
	if err != nil {
		return false, fmt.Errorf("remove tag %s from link %s: %w", tagID, linkID, err)
	}
	return removed, nil
}

// ListLinkTags returns the tags attached to a link.
func (r *BadgerRepository) ListLinkTags(ctx context.Context, userID, linkID string) ([]domain.Tag, error) {
	var tags []domain.Tag
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := exists(txn, linkKey(userID, linkID))
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return scan(txn, linkTagPrefix(linkID), func(lt domain.LinkTag) error {
			var t domain.Tag
			err := getJSON(txn, tagKey(userID, lt.TagID), &t)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			tags = append(tags, t)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list tags of link %s: %w", linkID, err)
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func requireLinkAndTag(txn *badger.Txn, userID, linkID, tagID string) error {
	for _, key := range [][]byte{linkKey(userID, linkID), tagKey(userID, tagID)} {
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
	}
	return nil
}

// adjustTagUsage adds delta to a tag's usage count, clamping at zero.
func adjustTagUsage(txn *badger.Txn, userID, tagID string, delta int) error {
	var t domain.Tag
	if err := getJSON(txn, tagKey(userID, tagID), &t); err != nil {
		return err
	}
	t.UsageCount = max(t.UsageCount+delta, 0)
	return setJSON(txn, tagKey(userID, tagID), t)
}
