package auth

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/domain/apperr"
)

const minPasswordLen = 8

// dummyHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("storefront"), bcrypt.DefaultCost)
	return h
})

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is the result of a successful login, registration or refresh.
// The refresh fields are empty when the service issues no refresh tokens.
type Session struct {
	User             *User
	Token            string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service registers and authenticates users.
type Service struct {
	users   Repository
	tokens  *TokenIssuer
	refresh *TokenIssuer
	cost    int
}

// Option configures a Service.
type Option func(*Service)

// WithRefreshTokens makes sessions carry a refresh token signed by issuer.
func WithRefreshTokens(issuer *TokenIssuer) Option {
	return func(s *Service) { s.refresh = issuer }
}

// NewService creates an auth Service.
func NewService(users Repository, tokens *TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:  users,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HashPassword returns the bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(h), nil
}

// Register creates a customer account and logs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.create(ctx, in, RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// CreateAdmin creates an account with the admin role.
func (s *Service) CreateAdmin(ctx context.Context, in RegisterInput) (*User, error) {
	return s.create(ctx, in, RoleAdmin)
}

func (s *Service) create(ctx context.Context, in RegisterInput, role Role) (*User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Errorf(apperr.Validation, "password must be at least %d characters", minPasswordLen)
	}
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperr.New(apperr.Validation, "first and last name are required")
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login checks the credentials and issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, errors.Wrap(err, "find user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Refresh exchanges a valid refresh token for a new session. The user is
// reloaded so the new tokens carry the current role.
func (s *Service) Refresh(ctx context.Context, raw string) (*Session, error) {
	if s.refresh == nil {
		return nil, errors.Wrap(ErrInvalidToken, "refresh tokens disabled")
	}
	id, err := s.refresh.Parse(raw)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, id.UserID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, errors.Wrap(ErrInvalidToken, "user no longer exists")
	case err != nil:
		return nil, errors.Wrap(err, "find user")
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	sess := &Session{User: u, Token: token, ExpiresAt: exp}
	if s.refresh != nil {
		if sess.RefreshToken, sess.RefreshExpiresAt, err = s.refresh.Issue(u); err != nil {
			return nil, err
		}
	}
	return sess, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", apperr.New(apperr.Validation, "invalid email address")
	}
	return strings.ToLower(addr.Address), nil
}
