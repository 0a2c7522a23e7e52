package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tapcards-backend/internal/users"
	pkgAuth "github.com/angelmondragon/tapcards-backend/pkg/auth"
	"github.com/angelmondragon/tapcards-backend/pkg/auth/session"
	"github.com/angelmondragon/tapcards-backend/pkg/config"
	"github.com/angelmondragon/tapcards-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/security"
)

var (
	testJWT      = config.JWTConfig{Secret: "test-secret", Issuer: "tapcards", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
	testPassword = config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16}
)

type memorySessions struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memorySessions) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memorySessions) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memorySessions) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memorySessions) AccessSessionKey(accessID string) string {
	return "tc:session:access:" + accessID
}

func buildService(t *testing.T) (*service, *users.Repository, *memorySessions) {
	t.Helper()
	repo := users.NewRepository(dbtest.Open(t))
	store := &memorySessions{data: map[string]string{}}
	manager, err := session.NewManager(store, testJWT)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{UserRepo: repo, SessionManager: manager, JWTConfig: testJWT, PasswordConfig: testPassword})
	require.NoError(t, err)
	return svc.(*service), repo, store
}

func TestRegisterIssuesCustomerTokens(t *testing.T) {
	svc, repo, store := buildService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, RegisterRequest{Name: " Leila ", Email: "Leila@Example.MA", Password: "correct-horse"})
	require.NoError(t, err)
	require.Equal(t, "leila@example.ma", resp.User.Email)
	require.Equal(t, enums.UserRoleCustomer, resp.User.Role)
	require.NotEmpty(t, resp.RefreshToken)
	require.Len(t, store.data, 1)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, resp.User.ID, claims.UserID)
	require.False(t, claims.IsAdmin())

	stored, err := repo.FindByEmail(ctx, "leila@example.ma")
	require.NoError(t, err)
	ok, err := security.VerifyPassword("correct-horse", stored.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.Register(ctx, RegisterRequest{Name: "Other", Email: "leila@example.ma", Password: "another-pass"})
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestRegisterReportsFieldErrors(t *testing.T) {
	svc, _, _ := buildService(t)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "x@y.ma", Password: "short"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	require.Equal(t, []string{"name", "password"}, typed.FieldErrors().Fields())
}

func TestLoginCarriesAdminRole(t *testing.T) {
	svc, repo, _ := buildService(t)
	ctx := context.Background()
	hash, err := security.HashPassword("admin-secret", testPassword)
	require.NoError(t, err)
	_, err = repo.Create(ctx, users.CreateUserDTO{Email: "ops@tapcards.ma", PasswordHash: hash, Name: "Ops", Role: enums.UserRoleAdmin})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "OPS@tapcards.ma", Password: "admin-secret"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	require.True(t, claims.IsAdmin())

	_, err = svc.Login(ctx, LoginRequest{Email: "ops@tapcards.ma", Password: "wrong-secret"})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@tapcards.ma", Password: "admin-secret"})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	svc, repo, _ := buildService(t)
	hash, err := security.HashPassword("pass-word-1", testPassword)
	require.NoError(t, err)
	inactive := false
	_, err = repo.Create(context.Background(), users.CreateUserDTO{Email: "off@example.ma", PasswordHash: hash, Name: "Off", IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), LoginRequest{Email: "off@example.ma", Password: "pass-word-1"})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _, store := buildService(t)
	ctx := context.Background()
	issued, err := svc.Register(ctx, RegisterRequest{Name: "Rania", Email: "rania@example.ma", Password: "rotate-me-1"})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken})
	require.NoError(t, err)
	require.NotEqual(t, issued.RefreshToken, refreshed.RefreshToken)
	require.Len(t, store.data, 1)

	_, err = svc.Refresh(ctx, RefreshRequest{AccessToken: issued.AccessToken, RefreshToken: issued.RefreshToken})
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code(), "old refresh token must not be reusable")

	claims, err := pkgAuth.ParseAccessTokenAllowExpired(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, claims.ID))
	require.Empty(t, store.data)
}
