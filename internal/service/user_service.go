package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"webstarter/internal/cache"
	"webstarter/internal/domain"
	"webstarter/internal/repository"
)

const (
	// UserListingTTL bounds how stale a cached listing page may be.
	UserListingTTL = 5 * time.Minute

	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	userListingPattern = "users:*"
)

// ListingInvalidator drops cached listing pages.
type ListingInvalidator interface {
	ClearCache(ctx context.Context, pattern string) error
}

// ListingCache is the response cache used by the user listing.
type ListingCache interface {
	ListingInvalidator
	GetCache(ctx context.Context, key string, dest any) error
	SetCache(ctx context.Context, key string, value any, ttl time.Duration) error
}

// UserListing is one page of users as cached and returned to clients.
type UserListing struct {
	Users      []domain.User `json:"users"`
	Pagination domain.Page   `json:"pagination"`
}

// UserService describes user lookups and the password-less demo creation.
type UserService interface {
	List(ctx context.Context, page, limit int) (*UserListing, error)
	Create(ctx context.Context, email, name string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type userService struct {
	users  repository.UserRepository
	cache  ListingCache
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewUserService(users repository.UserRepository, cache ListingCache, logger logrus.FieldLogger) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:  users,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// NormalizePage applies listing defaults and bounds.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

func listingKey(page, limit int) string {
	return fmt.Sprintf("users:page:%d:limit:%d", page, limit)
}

// List serves a page from the cache when present, otherwise from the
// database, caching the result for UserListingTTL.
func (s *userService) List(ctx context.Context, page, limit int) (*UserListing, error) {
	page, limit = NormalizePage(page, limit)
	key := listingKey(page, limit)

	var cached UserListing
	err := s.cache.GetCache(ctx, key, &cached)
	switch {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.logger.WithError(err).WithField("key", key).Warn("read user listing cache")
	}

	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	listing := &UserListing{
		Users: make([]domain.User, len(users)),
		Pagination: domain.Page{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}
	for i := range users {
		listing.Users[i] = *sanitizeUser(&users[i])
	}

	if err := s.cache.SetCache(ctx, key, listing, UserListingTTL); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("write user listing cache")
	}
	return listing, nil
}

// Create inserts a user without a password. Such users cannot log in.
func (s *userService) Create(ctx context.Context, email, name string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, invalid("Name and email are required")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.cache.ClearCache(ctx, userListingPattern); err != nil {
		s.logger.WithError(err).Error("invalidate user listing cache")
	}
	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return sanitizeUser(user), nil
}
