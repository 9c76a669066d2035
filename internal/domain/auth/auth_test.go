package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/storefront/internal/domain/apperr"
)

type mockUserRepo struct {
	byEmail map[string]*User
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	m.byEmail[u.Email] = u
	return nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func newTestService() (*Service, *mockUserRepo) {
	repo := &mockUserRepo{byEmail: make(map[string]*User)}
	svc := NewService(repo, NewTokenIssuer("test-secret", time.Hour),
		WithRefreshTokens(NewRefreshIssuer("test-refresh-secret", 7*24*time.Hour)),
	)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	sess, err := svc.Register(ctx, RegisterInput{
		Email:     "  Jane.Doe@Example.com ",
		Password:  "correct horse",
		FirstName: "Jane",
		LastName:  "Doe",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", sess.User.Email)
	assert.Equal(t, RoleCustomer, sess.User.Role)
	assert.NotEqual(t, "correct horse", repo.byEmail["jane.doe@example.com"].PasswordHash)
	assert.NotEmpty(t, sess.Token)

	sess, err = svc.Login(ctx, "JANE.DOE@example.com", "correct horse")
	require.NoError(t, err)

	id, err := svc.tokens.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id.UserID)
	assert.False(t, id.IsAdmin())

	_, err = svc.Login(ctx, "jane.doe@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	valid := RegisterInput{Email: "a@b.co", Password: "12345678", FirstName: "A", LastName: "B"}

	_, err := svc.Register(ctx, valid)
	require.NoError(t, err)

	_, err = svc.Register(ctx, valid)
	require.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	tests := map[string]func(in *RegisterInput){
		"bad email":      func(in *RegisterInput) { in.Email = "not-an-email" },
		"named email":    func(in *RegisterInput) { in.Email = "Bob <bob@b.co>" },
		"short password": func(in *RegisterInput) { in.Password = "1234567" },
		"missing name":   func(in *RegisterInput) { in.FirstName = " " },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := valid
			in.Email = "other@b.co"
			mutate(&in)
			_, err := svc.Register(ctx, in)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestCreateAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	u, err := svc.CreateAdmin(ctx, RegisterInput{Email: "Admin@Example.com", Password: "password123", FirstName: "Admin", LastName: "User"})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	sess, err := svc.Login(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	id, err := svc.tokens.Parse(sess.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService()

	sess, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "12345678", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.RefreshToken)
	assert.True(t, sess.RefreshExpiresAt.After(sess.ExpiresAt))

	// Role changes are picked up on refresh.
	repo.byEmail["a@b.co"].Role = RoleAdmin

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, next.User.ID)
	assert.NotEmpty(t, next.RefreshToken)
	id, err := svc.tokens.Parse(next.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())

	t.Run("access token rejected", func(t *testing.T) {
		_, err := svc.Refresh(ctx, sess.Token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := svc.tokens.Parse(sess.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Refresh(ctx, "not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("deleted user", func(t *testing.T) {
		delete(repo.byEmail, "a@b.co")
		_, err := svc.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("disabled", func(t *testing.T) {
		plain := NewService(repo, svc.tokens)
		_, err := plain.Refresh(ctx, sess.RefreshToken)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTokenIssuer_SameSecretDifferentUse(t *testing.T) {
	access := NewTokenIssuer("shared", time.Hour)
	refresh := NewRefreshIssuer("shared", time.Hour)
	u := &User{ID: uuid.New(), Role: RoleCustomer}

	raw, _, err := refresh.Issue(u)
	require.NoError(t, err)
	_, err = access.Parse(raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	id, err := refresh.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id.UserID)
}

func TestTokenIssuer(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return now }

	admin := &User{ID: uuid.New(), Role: RoleAdmin}
	token, exp, err := issuer.Issue(admin)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: admin.ID, Role: RoleAdmin}, id)
	assert.True(t, id.IsAdmin())

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenIssuer("other", time.Hour)
		other.now = issuer.now
		_, err := other.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		later := NewTokenIssuer("secret", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("unsigned", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   admin.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
