package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"smartlink/internal/domain"
)

// CreateUser stores a new user. The email must not be taken.
func (r *BadgerRepository) CreateUser(ctx context.Context, user domain.User) error {
	log := r.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email})

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}

	err := r.update(func(txn *badger.Txn) error {
		taken, err := exists(txn, accountEmailKey(user.Email))
		if err != nil {
			return err
		}
		if taken {
			return ErrConflict
		}
		if err := txn.Set(accountEmailKey(user.Email), []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, accountKey(user.ID), storedUser{User: user, PasswordHash: user.PasswordHash})
	})
	if err != nil {
		log.WithError(err).Warn("Failed to create user")
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}

	log.Info("User created")
	return nil
}

// GetUser loads a user by id.
func (r *BadgerRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var su storedUser
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, accountKey(id), &su)
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return su.domain(), nil
}

// GetUserByEmail loads a user by email, case-insensitively.
func (r *BadgerRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var su storedUser
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getString(txn, accountEmailKey(email))
		if err != nil {
			return err
		}
		return getJSON(txn, accountKey(id), &su)
	})
	if err != nil {
		return nil, fmt.Errorf("get user by email %s: %w", email, err)
	}
	return su.domain(), nil
}

// UpdateUser overwrites an existing user. The email is not re-indexed.
func (r *BadgerRepository) UpdateUser(ctx context.Context, user domain.User) error {
	user.UpdatedAt = time.Now()
	err := r.update(func(txn *badger.Txn) error {
		var current storedUser
		if err := getJSON(txn, accountKey(user.ID), &current); err != nil {
			return err
		}
		user.Email = current.Email
		hash := user.PasswordHash
		if hash == "" {
			hash = current.PasswordHash
		}
		return setJSON(txn, accountKey(user.ID), storedUser{User: user, PasswordHash: hash})
	})
	if err != nil {
		return fmt.Errorf("update user %s: %w", user.ID, err)
	}
	return nil
}

// ListUsers returns every user, newest first.
func (r *BadgerRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		return scan(txn, accountPrefix, func(su storedUser) error {
			users = append(users, *su.domain())
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// DeleteUser removes the user and everything the user owns.
func (r *BadgerRepository) DeleteUser(ctx context.Context, id string) error {
	var removed int
	err := r.update(func(txn *badger.Txn) error {
		var su storedUser
		if err := getJSON(txn, accountKey(id), &su); err != nil {
			return err
		}

		keys := [][]byte{accountKey(id), accountEmailKey(su.Email)}
		for _, k := range scanKeys(txn, linkPrefix(id)) {
			keys = append(keys, scanKeys(txn, linkTagPrefix(lastSegment(k)))...)
		}
		for _, k := range scanKeys(txn, tagPrefix(id)) {
			keys = append(keys, scanKeys(txn, tagLinkPrefix(lastSegment(k)))...)
		}
		keys = append(keys, scanKeys(txn, userPrefix(id))...)

		err := scan(txn, sessionPrefix, func(s domain.Session) error {
			if s.UserID == id {
				keys = append(keys, sessionKey(s.Token))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}

	r.log.WithFields(logrus.Fields{"user_id": id, "keys": removed}).Info("User deleted")
	return nil
}

// storedUser persists the password hash, which domain.User hides from JSON.
type storedUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}

func (s storedUser) domain() *domain.User {
	u := s.User
	u.PasswordHash = s.PasswordHash
	return &u
}

// CreateSession stores a session that Badger expires at session.ExpiresAt.
func (r *BadgerRepository) CreateSession(ctx context.Context, session domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("create session for user %s: already expired", session.UserID)
	}

	err := r.update(func(txn *badger.Txn) error {
		b, err := json.Marshal(session)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(sessionKey(session.Token), b).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("create session for user %s: %w", session.UserID, err)
	}
	r.log.WithFields(logrus.Fields{
		"user_id":    session.UserID,
		"expires_at": session.ExpiresAt,
	}).Debug("Session created")
	return nil
}

// GetSession loads a session by token.
func (r *BadgerRepository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(token), &s)
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (r *BadgerRepository) DeleteSession(ctx context.Context, token string) error {
	err := r.update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(token))
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
