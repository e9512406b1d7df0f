// Package auth registers users, checks passwords and issues session tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"smartlink/internal/domain"
	"smartlink/internal/storage"
	"smartlink/internal/validation"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactiveUser       = errors.New("account is not active")
	ErrInvalidSession     = errors.New("session is missing or expired")
)

// InputError reports an invalid registration field.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string { return e.Field + ": " + e.Message }

// UserInitializer prepares per-user data (e.g. system categories) after registration.
type UserInitializer interface {
	InitUser(ctx context.Context, userID string) error
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
}

// ClientInfo describes where a session was opened from.
type ClientInfo struct {
	UserAgent string
	IPAddress string
}

// Result is an authenticated user and its session. Session is nil for a
// registration still waiting for approval.
type Result struct {
	User    *domain.User    `json:"user"`
	Session *domain.Session `json:"session,omitempty"`
}

// Service implements registration, login and session validation.
type Service struct {
	repo   storage.Repository
	users  UserInitializer
	ttl    time.Duration
	cost   int
	admins map[string]struct{}
	log    logrus.FieldLogger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithAdminEmails makes registrations from these addresses active admins
// instead of waiting for approval.
func WithAdminEmails(emails ...string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				s.admins[e] = struct{}{}
			}
		}
	}
}

// NewService creates a Service issuing sessions valid for ttl.
func NewService(repo storage.Repository, users UserInitializer, ttl time.Duration, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		users:  users,
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		admins: make(map[string]struct{}),
		log:    logger.WithField("component", "auth"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. Users wait inactive for an admin's approval and
// get no session; bootstrap admins are active at once and are logged in.
func (s *Service) Register(ctx context.Context, in RegisterInput, client ClientInfo) (*Result, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	_, admin := s.admins[in.Email]
	role := domain.RoleUser
	if admin {
		role = domain.RoleAdmin
	}

	user, err := s.createUser(ctx, domain.User{
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     admin,
	})
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		s.log.WithField("user_id", user.ID).Info("Registration awaiting approval")
		return &Result{User: user}, nil
	}

	session, err := s.openSession(ctx, user.ID, client)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Session: session}, nil
}

// EnsureUser returns the user with email, creating a password-less one if needed.
// Password-less users cannot log in; they exist for chat front ends and are
// active without approval.
func (s *Service) EnsureUser(ctx context.Context, email, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user, err = s.createUser(ctx, domain.User{
		Email:    email,
		Name:     name,
		Role:     domain.RoleUser,
		IsActive: true,
	})
	if errors.Is(err, ErrEmailExists) {
		// Lost a race with a concurrent provisioning of the same user.
		return s.repo.GetUserByEmail(ctx, email)
	}
	return user, err
}

func (s *Service) createUser(ctx context.Context, user domain.User) (*domain.User, error) {
	now := s.now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	if s.users != nil {
		if err := s.users.InitUser(ctx, user.ID); err != nil {
			s.log.WithError(err).WithField("user_id", user.ID).Warn("Failed to initialize user data")
		}
	}

	s.log.WithField("user_id", user.ID).Info("User registered")
	return &user, nil
}

// Login checks credentials and opens a new session.
func (s *Service) Login(ctx context.Context, email, password string, client ClientInfo) (*Result, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.repo.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}

	session, err := s.openSession(ctx, user.ID, client)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("User logged in")
	return &Result{User: user, Session: session}, nil
}

// Logout ends the session. An unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// Validate resolves a bearer token to its live session and user.
func (s *Service) Validate(ctx context.Context, token string) (*Result, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	session, err := s.repo.GetSession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.repo.DeleteSession(ctx, token)
		return nil, ErrInvalidSession
	}

	user, err := s.repo.GetUser(ctx, session.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return &Result{User: user, Session: session}, nil
}

func (s *Service) openSession(ctx context.Context, userID string, client ClientInfo) (*domain.Session, error) {
	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &session, nil
}

func validateRegistration(in RegisterInput) error {
	if fe := validation.Struct(in); fe != nil {
		return &InputError{Field: fe.Field, Message: fe.Message}
	}
	return nil
}

func validationVar(field, value, tag string) *InputError {
	if fe := validation.Var(field, value, tag); fe != nil {
		return &InputError{Field: fe.Field, Message: fe.Message}
	}
	return nil
}
