package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid token")

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

type claims struct {
	Role Role   `json:"role"`
	Use  string `json:"use"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens of one kind. Access and
// refresh tokens use separate issuers and are never accepted for each other.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	use    string
	now    func() time.Time
}

// NewTokenIssuer creates an issuer of access tokens.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return newIssuer(secret, ttl, useAccess)
}

// NewRefreshIssuer creates an issuer of refresh tokens.
func NewRefreshIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return newIssuer(secret, ttl, useRefresh)
}

func newIssuer(secret string, ttl time.Duration, use string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		use:    use,
		now:    time.Now,
	}
}

// Issue returns a signed token for u and its expiry.
func (t *TokenIssuer) Issue(u *User) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		Role: u.Role,
		Use:  t.use,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the identity it carries.
func (t *TokenIssuer) Parse(raw string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if c.Use != t.use {
		return Identity{}, errors.Wrapf(ErrInvalidToken, "%q token used as %q", c.Use, t.use)
	}

	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if c.Role != RoleAdmin {
		c.Role = RoleCustomer
	}
	return Identity{UserID: id, Role: c.Role}, nil
}
