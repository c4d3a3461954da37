package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/course-allocation-api/internal/models"
	"github.com/noah-isme/course-allocation-api/pkg/config"
	appErrors "github.com/noah-isme/course-allocation-api/pkg/errors"
)

type mockUserStore struct {
	users   map[string]models.User
	tokens  map[string]models.RefreshToken
	revoked []string
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:  make(map[string]models.User),
		tokens: make(map[string]models.RefreshToken),
	}
}

func (m *mockUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	u := m.users[id]
	u.LastLoginAt = &ts
	m.users[id] = u
	return nil
}

func (m *mockUserStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	m.tokens[token.Token] = *token
	return nil
}

func (m *mockUserStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.tokens[token]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, t := range m.tokens {
		if t.ID == id {
			t.RevokedAt = &revokedAt
			m.tokens[key] = t
		}
	}
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockUserStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	for key, t := range m.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			m.tokens[key] = t
		}
	}
	m.revoked = append(m.revoked, userID)
	return nil
}

type mockAuthStudents struct {
	byUser map[string]models.Student
}

func (m *mockAuthStudents) FindByUserID(ctx context.Context, userID string) (*models.Student, error) {
	if s, ok := m.byUser[userID]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthFixture(t *testing.T) (*AuthService, *mockUserStore, *recordingAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	store := newMockUserStore()
	store.users["user-1"] = models.User{
		ID:           "user-1",
		Email:        "student@example.edu",
		PasswordHash: string(hash),
		FirstName:    "Jane",
		LastName:     "Doe",
		Role:         models.RoleStudent,
		Active:       true,
	}

	audit := &recordingAudit{}
	svc := NewAuthService(store, &mockAuthStudents{byUser: map[string]models.Student{"user-1": {ID: "stu-1"}}}, audit, config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        time.Hour,
		RefreshExpiration: 24 * time.Hour,
	}, zap.NewNop())
	return svc, store, audit
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, store, audit := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "Jane Doe", resp.User.FullName)
	assert.Len(t, store.tokens, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "stu-1", claims.StudentID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, store, _ := newAuthFixture(t)
	u := store.users["user-1"]
	u.Active = false
	store.users["user-1"] = u

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, store, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The old token is revoked; replaying it revokes the whole family.
	old := store.tokens[login.RefreshToken]
	require.NotNil(t, old.RevokedAt)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: refreshed.RefreshToken})
	require.Error(t, err)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, store, _ := newAuthFixture(t)

	store.tokens["stale"] = models.RefreshToken{
		ID:        "tok-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Hour),
	}

	_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestLogoutRevokesAllTokens(t *testing.T) {
	svc, store, _ := newAuthFixture(t)

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	assert.NotNil(t, store.tokens[login.RefreshToken].RevokedAt)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	other := NewAuthService(newMockUserStore(), &mockAuthStudents{}, nil, config.JWTConfig{
		Secret:     "different-secret",
		Expiration: time.Hour,
	}, zap.NewNop())
	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.edu", Password: "secret123"})
	require.NoError(t, err)

	_, err = other.ValidateToken(login.AccessToken)
	require.Error(t, err)
}
