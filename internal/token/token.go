// Package token issues and verifies the bearer tokens handed out by /api/login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/GophLedger/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long an issued token stays valid.
const DefaultTTL = 12 * time.Hour

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = fmt.Errorf("%w: invalid token", models.ErrAuth)

// Issuer signs HS256 tokens whose subject is the username.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A zero ttl selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for user.
func (i *Issuer) Issue(user models.Username) (string, error) {
	now := i.now()
	claims := jwt.RegisteredClaims{
		Subject:   user.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies raw and returns the username it was issued for.
func (i *Issuer) Parse(raw string) (models.Username, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", ErrInvalidToken
	}
	name, err := models.ParseUsername(claims.Subject)
	if err != nil {
		return "", ErrInvalidToken
	}
	return name, nil
}
