package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens and their sessions.
const DefaultTokenTTL = 7 * 24 * time.Hour

// Claims carried by every bearer token. SessionID binds the token to the
// session cache entry the guard checks.
type Claims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens with a process-wide secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports the lifetime applied to new tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the given identity that expires at issuedAt+TTL.
func (i *Issuer) Issue(userID, email, sessionID string, issuedAt time.Time) (string, error) {
	claims := Claims{
		UserID:    userID,
		Email:     email,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Failures are *Error with ReasonExpiredToken or ReasonInvalidToken.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, reject(ReasonExpiredToken, err)
		}
		return nil, reject(ReasonInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, reject(ReasonInvalidToken, errors.New("token not valid"))
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, reject(ReasonInvalidToken, errors.New("token missing identity claims"))
	}
	return claims, nil
}
