package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
)

type memUserRepo struct {
	byID    map[int64]*domain.User
	byEmail map[string]*domain.User
	nextID  int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, in domain.CreateUserInput) (*domain.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, ok := m.byEmail[in.Email]; ok {
		return nil, domain.ErrDuplicateEmail
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	m.nextID++
	u := &domain.User{ID: m.nextID, Email: in.Email, Name: in.Name, PasswordHash: hash, CreatedAt: time.Now().UnixMilli()}
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return u, nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[domain.NormalizeEmail(email)]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id int64, password string) error {
	u, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func newAuth(repo domain.UserRepository) *AuthService {
	return NewAuthService(repo, auth.NewTokenManager("secret", "agenticos", time.Hour), nil)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokenManager("secret", "agenticos", time.Hour)
	s := NewAuthService(newMemUserRepo(), tokens, nil)

	reg, err := s.Register(ctx, domain.CreateUserInput{Email: " Alice@Example.com", Name: "Alice", Password: "Abc!123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, "Bearer", reg.TokenType)
	assert.Equal(t, 3600, reg.ExpiresIn)

	claims, err := tokens.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)

	login, err := s.Login(ctx, "ALICE@example.com", "Abc!123")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = s.Login(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody@example.com", "Abc!123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, "invalid email or password", err.Error())

	_, err = s.Login(ctx, "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	ctx := context.Background()
	s := newAuth(newMemUserRepo())

	_, err := s.Register(ctx, domain.CreateUserInput{Email: "bob@example.com", Name: "Bob", Password: "Abc!123"})
	require.NoError(t, err)

	_, err = s.Register(ctx, domain.CreateUserInput{Email: "BOB@example.com", Name: "Bob", Password: "Abc!123"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	_, err = s.Register(ctx, domain.CreateUserInput{Email: "carol@example.com", Name: "Carol", Password: "abcdef"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s := newAuth(newMemUserRepo())

	reg, err := s.Register(ctx, domain.CreateUserInput{Email: "dave@example.com", Name: "Dave", Password: "Abc!123"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.ChangePassword(ctx, reg.User.ID, "nope", "Xyz#789"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, s.ChangePassword(ctx, reg.User.ID, "Abc!123", "short"), domain.ErrValidation)
	require.NoError(t, s.ChangePassword(ctx, reg.User.ID, "Abc!123", "Xyz#789"))

	_, err = s.Login(ctx, "dave@example.com", "Abc!123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = s.Login(ctx, "dave@example.com", "Xyz#789")
	assert.NoError(t, err)
}

func TestSeedDemoUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	s := newAuth(repo)

	require.NoError(t, s.SeedDemoUser(ctx))
	require.NoError(t, s.SeedDemoUser(ctx))
	assert.Len(t, repo.byID, 1)

	sess, err := s.Login(ctx, DemoEmail, DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, DemoName, sess.User.Name)
}
