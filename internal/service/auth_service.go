package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"webstarter/internal/auth"
	"webstarter/internal/cache"
	"webstarter/internal/domain"
	"webstarter/internal/repository"
)

// PasswordHashCost is the bcrypt cost used for stored password hashes.
const PasswordHashCost = 12

// SessionCache is the write side of the session cache.
type SessionCache interface {
	SetSession(ctx context.Context, sessionID, userID string, ttl time.Duration) error
	RenewSession(ctx context.Context, sessionID string, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	SessionID string       `json:"sessionId"`
}

// AuthService describes the registration, login and session lifecycle.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, userID, sessionID string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context, userID string) ([]domain.Session, error)
}

type authService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cache    SessionCache
	listings ListingInvalidator
	tokens   *auth.Issuer
	logger   logrus.FieldLogger

	hashCost  int
	dummyOnce sync.Once
	dummyHash []byte
	now       func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cache SessionCache,
	listings ListingInvalidator,
	tokens *auth.Issuer,
	logger logrus.FieldLogger,
) AuthService {
	if logger == nil {
		logger = logrus.New()
	}
	return &authService{
		users:    users,
		sessions: sessions,
		cache:    cache,
		listings: listings,
		tokens:   tokens,
		logger:   logger,
		hashCost: PasswordHashCost,
		now:      time.Now,
	}
}

func (s *authService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.invalidateListings(ctx)

	return s.startSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// spend the same bcrypt time as a real comparison
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash := []byte(user.PasswordHash)
	if len(hash) == 0 {
		// users created without a password still pay for a full comparison
		hash = s.dummy()
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

// Refresh reissues a token for a live session and extends the session to a
// full lifetime from now. Tokens issued earlier for the session stay valid
// until their own expiry or logout.
func (s *authService) Refresh(ctx context.Context, userID, sessionID string) (*AuthResult, error) {
	if userID == "" || sessionID == "" {
		return nil, invalid("Session id is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	row, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if row.UserID != user.ID {
		return nil, ErrSessionNotFound
	}

	issuedAt := s.now()
	ttl := s.tokens.TTL()
	token, err := s.tokens.Issue(user.ID, user.Email, sessionID, issuedAt)
	if err != nil {
		return nil, err
	}

	if err := s.cache.RenewSession(ctx, sessionID, ttl); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("renew session: %w", err)
	}
	if err := s.sessions.Renew(ctx, sessionID, token, issuedAt.Add(ttl).UTC()); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": sessionID,
	}).Info("session refreshed")

	return &AuthResult{
		User:      sanitizeUser(user),
		Token:     token,
		SessionID: sessionID,
	}, nil
}

// Sessions lists the audit records of every session issued to the user,
// oldest first.
func (s *authService) Sessions(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Logout removes the cache entry of the session. The relational row stays
// as an audit record.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return invalid("Session id is required")
	}
	if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// startSession mints a fresh session for every auth event. The token embeds
// the session id; the cache TTL and the row's expires_at are computed from
// the same instant, and only the cache TTL is enforced.
func (s *authService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	sessionID := uuid.NewString()
	issuedAt := s.now()
	ttl := s.tokens.TTL()

	token, err := s.tokens.Issue(user.ID, user.Email, sessionID, issuedAt)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetSession(ctx, sessionID, user.ID, ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	if err := s.sessions.Create(ctx, &domain.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: issuedAt.Add(ttl).UTC(),
		CreatedAt: issuedAt.UTC(),
	}); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": sessionID,
	}).Info("session started")

	return &AuthResult{
		User:      sanitizeUser(user),
		Token:     token,
		SessionID: sessionID,
	}, nil
}

func (s *authService) invalidateListings(ctx context.Context) {
	if s.listings == nil {
		return
	}
	if err := s.listings.ClearCache(ctx, userListingPattern); err != nil {
		s.logger.WithError(err).Warn("invalidate user listing cache")
	}
}

func (s *authService) dummy() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.hashCost)
		if err != nil {
			s.logger.WithError(err).Error("generate dummy password hash")
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
