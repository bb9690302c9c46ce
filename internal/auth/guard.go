package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"webstarter/internal/cache"
)

// SessionStore is the read side of the session cache.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (*cache.SessionData, error)
}

// Identity is attached to authenticated requests.
type Identity struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
}

// Guard authenticates Authorization headers against the token issuer and
// the session cache.
type Guard struct {
	tokens   *Issuer
	sessions SessionStore
}

func NewGuard(tokens *Issuer, sessions SessionStore) *Guard {
	return &Guard{tokens: tokens, sessions: sessions}
}

// Authenticate returns the caller identity. Rejections are *Error; any
// other error is a session store failure.
func (g *Guard) Authenticate(ctx context.Context, header string) (*Identity, error) {
	token, err := bearerToken(header)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	session, err := g.sessions.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, reject(ReasonMissingSession, err)
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, reject(ReasonMissingSession, errors.New("session bound to another user"))
	}

	return &Identity{
		UserID:    claims.UserID,
		Email:     claims.Email,
		SessionID: claims.SessionID,
	}, nil
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", reject(ReasonMissingHeader, nil)
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", reject(ReasonMalformedHeader, nil)
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", reject(ReasonMalformedHeader, nil)
	}
	return token, nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
