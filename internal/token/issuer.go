package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposeSession           Purpose = "session"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Claims struct {
	UserID  int64   `json:"user_id"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens. It keeps no state besides the secret.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}

	i := &Issuer{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

func (i *Issuer) Issue(userID int64, purpose Purpose, ttl time.Duration) (string, error) {
	now := i.now()

	claims := Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}

	return signed, nil
}

// Verify parses raw and checks signature, expiry and purpose. Every failure
// is reported as ErrInvalidToken.
func (i *Issuer) Verify(raw string, purpose Purpose) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(
		raw,
		&Claims{},
		func(*jwt.Token) (any, error) {
			return i.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: purpose %q, want %q", ErrInvalidToken, claims.Purpose, purpose)
	}

	return claims, nil
}
