package storage

import (
	"context"
	"errors"
	"time"

	"smartlink/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist for the given owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a uniqueness rule
	// (email per store, original URL per user, tag name per user).
	ErrConflict = errors.New("conflict")
)

// Repository defines the interface for data storage operations.
// Every link, category and tag operation is scoped to its owning user.
type Repository interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	// ListUsers returns every user, newest first.
	ListUsers(ctx context.Context) ([]domain.User, error)
	// DeleteUser removes the user and everything it owns, sessions included.
	DeleteUser(ctx context.Context, id string) error

	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error

	CreateCategory(ctx context.Context, category domain.Category) error
	GetCategory(ctx context.Context, userID, id string) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) error
	// DeleteCategory removes the category and clears CategoryID on its links.
	DeleteCategory(ctx context.Context, userID, id string) error
	// ListCategories returns categories by sort order with LinkCount filled in.
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	MaxCategorySortOrder(ctx context.Context, userID string) (int, error)
	ReorderCategories(ctx context.Context, userID string, orders map[string]int) error

	CreateLink(ctx context.Context, link domain.Link) error
	GetLink(ctx context.Context, userID, id string) (*domain.Link, error)
	FindLinkByURL(ctx context.Context, userID, url string) (*domain.Link, error)
	UpdateLink(ctx context.Context, link domain.Link) error
	// DeleteLink removes the link together with its tag associations.
	DeleteLink(ctx context.Context, userID, id string) error
	ListLinks(ctx context.Context, userID string, filter domain.LinkFilter, sort domain.LinkSort, page domain.Page) (*domain.LinkPage, error)
	IncrementViewCount(ctx context.Context, userID, id string, at time.Time) (*domain.Link, error)

	CreateTag(ctx context.Context, tag domain.Tag) error
	GetTag(ctx context.Context, userID, id string) (*domain.Tag, error)
	// DeleteTag removes the tag's link associations before the tag itself.
	DeleteTag(ctx context.Context, userID, id string) error
	// ListTags returns tags by usage count, most used first.
	ListTags(ctx context.Context, userID string) ([]domain.Tag, error)
	// AddLinkTag attaches a tag, incrementing its usage count. Attaching an
	// already attached tag changes nothing and reports false.
	AddLinkTag(ctx context.Context, userID, linkID, tagID string) (bool, error)
	// RemoveLinkTag detaches a tag, decrementing its usage count but never below zero.
	RemoveLinkTag(ctx context.Context, userID, linkID, tagID string) (bool, error)
	ListLinkTags(ctx context.Context, userID, linkID string) ([]domain.Tag, error)

	// Close gracefully shuts down the repository connection.
	Close() error
}
