package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/threadline/wardrobe-api/internal/dto"
	"github.com/threadline/wardrobe-api/internal/model"
)

type mockUserRepo struct {
	byEmail map[string]*model.User
	byID    map[uuid.UUID]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byEmail: make(map[string]*model.User), byID: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.byEmail[strings.ToLower(user.Email)] = user
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := m.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.byEmail[strings.ToLower(email)]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (m *mockUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if u, ok := m.byID[id]; ok {
		u.Active = active
	}
	return nil
}

func registerUser(t *testing.T, svc *AuthService, email, password string) *dto.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Test User", Email: email, Password: password,
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)

	resp := registerUser(t, svc, "jane@example.com", "password123")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleClient, resp.User.Role)
	assert.True(t, resp.User.Active)

	stored := repo.byEmail["jane@example.com"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "password123", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("password123")))
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)
	registerUser(t, svc, "jane@example.com", "password123")

	// Email comparison is case-insensitive.
	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Name: "Other", Email: "Jane@Example.COM", Password: "password456",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAuthService_Login(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)
	registerUser(t, svc, "jane@example.com", "password123")

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "jane@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)
	registerUser(t, svc, "jane@example.com", "password123")

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "jane@example.com", Password: "wrong-password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "nobody@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_DisabledAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)
	resp := registerUser(t, svc, "jane@example.com", "password123")

	require.NoError(t, repo.SetActive(context.Background(), resp.User.ID, false))

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Email: "jane@example.com", Password: "password123",
	})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestAuthService_TokenRoundtrip(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)
	userID := uuid.New()

	token, err := svc.IssueToken(userID)
	require.NoError(t, err)

	got, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestAuthService_VerifyToken_Expired(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", -time.Minute)

	token, err := svc.IssueToken(uuid.New())
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_VerifyToken_WrongSecret(t *testing.T) {
	issuer := NewAuthService(newMockUserRepo(), "secret-a", time.Hour)
	verifier := NewAuthService(newMockUserRepo(), "secret-b", time.Hour)

	token, err := issuer.IssueToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ResolveToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)
	resp := registerUser(t, svc, "jane@example.com", "password123")

	user, err := svc.ResolveToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Empty(t, user.Password, "password hash must be stripped")
}

func TestAuthService_ResolveToken_DisabledAccount(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewAuthService(repo, "test-secret", time.Hour)
	resp := registerUser(t, svc, "jane@example.com", "password123")

	// Disabling the account invalidates outstanding tokens immediately,
	// because resolution re-checks the active flag on every request.
	require.NoError(t, repo.SetActive(context.Background(), resp.User.ID, false))

	_, err := svc.ResolveToken(context.Background(), resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_SetUserActive_NotFound(t *testing.T) {
	svc := NewAuthService(newMockUserRepo(), "test-secret", time.Hour)
	_, err := svc.SetUserActive(context.Background(), uuid.New(), false)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
