package middleware

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (s *stubUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s *stubUsers) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Email] = u
	return nil
}

var issuedAt = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type gateEnv struct {
	e      *echo.Echo
	signer *tokens.Signer
	now    time.Time
	user   *models.User
}

func newGateEnv(t *testing.T) *gateEnv {
	t.Helper()

	env := &gateEnv{now: issuedAt}
	secret := base64.StdEncoding.EncodeToString([]byte("gatekeeper-test-secret"))
	s, err := tokens.NewSigner(secret, 30*time.Minute)
	require.NoError(t, err)
	env.signer = s.WithClock(func() time.Time { return env.now })

	env.user = &models.User{ID: 7, Name: "Alice", Email: "alice@snapbuy.app", Roles: []string{models.RoleUser}}
	users := &stubUsers{users: map[string]*models.User{env.user.Email: env.user}}

	e := echo.New()
	e.Use(NewGatekeeper(env.signer, users).Middleware)

	whoami := func(c echo.Context) error {
		id, ok := IdentityFromContext(c.Request().Context())
		if !ok {
			return c.JSON(http.StatusOK, echo.Map{"anonymous": true})
		}
		return c.JSON(http.StatusOK, id)
	}
	e.GET("/api/products", whoami)
	e.POST("/api/products", whoami)
	e.POST("/api/auth/signIn", whoami)
	e.GET("/api/orders", whoami)
	e.GET("/api/users/me", whoami, RequireIdentity)

	env.e = e
	return env
}

func (env *gateEnv) do(method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGatekeeper_ValidTokenAttachesIdentity(t *testing.T) {
	t.Parallel()
	env := newGateEnv(t)

	token, err := env.signer.Issue(env.user.Principal())
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/users/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "alice@snapbuy.app", body["email"])
	assert.EqualValues(t, 7, body["userId"])
	assert.Equal(t, []any{"USER"}, body["roles"])
}

func TestGatekeeper_Rejections(t *testing.T) {
	t.Parallel()
	env := newGateEnv(t)

	token, err := env.signer.Issue(env.user.Principal())
	require.NoError(t, err)

	ghost := &models.User{ID: 99, Email: "ghost@snapbuy.app"}
	ghostToken, err := env.signer.Issue(ghost.Principal())
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/orders", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidToken, decode(t, rec)["message"])

	rec = env.do(http.MethodGet, "/api/orders", "Bearer "+ghostToken)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgInvalidToken, decode(t, rec)["message"])

	env.now = issuedAt.Add(31 * time.Minute)
	rec = env.do(http.MethodGet, "/api/orders", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgTokenExpired, decode(t, rec)["message"])
	assert.NotContains(t, rec.Body.String(), "anonymous")
}

func TestGatekeeper_AllowListAndAnonymous(t *testing.T) {
	t.Parallel()
	env := newGateEnv(t)

	token, err := env.signer.Issue(env.user.Principal())
	require.NoError(t, err)
	env.now = issuedAt.Add(time.Hour)
	expired := "Bearer " + token

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		code   int
	}{
		{name: "public prefix ignores expired token", method: http.MethodPost, path: "/api/auth/signIn", auth: expired, code: http.StatusOK},
		{name: "public catalog read ignores expired token", method: http.MethodGet, path: "/api/products", auth: expired, code: http.StatusOK},
		{name: "catalog write is not public", method: http.MethodPost, path: "/api/products", auth: expired, code: http.StatusUnauthorized},
		{name: "no header passes through", method: http.MethodGet, path: "/api/orders", code: http.StatusOK},
		{name: "non bearer scheme passes through", method: http.MethodGet, path: "/api/orders", auth: "Basic dXNlcjpwdw==", code: http.StatusOK},
		{name: "protected route needs identity", method: http.MethodGet, path: "/api/users/me", code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		rec := env.do(tt.method, tt.path, tt.auth)
		assert.Equal(t, tt.code, rec.Code, tt.name)
	}
}

func TestRule_Match(t *testing.T) {
	t.Parallel()

	assert.True(t, Rule{Path: "/api/ott/", Prefix: true}.Match(http.MethodGet, "/api/ott/login"))
	assert.False(t, Rule{Path: "/api/ott/", Prefix: true}.Match(http.MethodGet, "/api/otter"))
	assert.True(t, Rule{Path: "/favicon.ico"}.Match(http.MethodGet, "/favicon.ico"))
	assert.False(t, Rule{Path: "/favicon.ico"}.Match(http.MethodGet, "/favicon.ico/x"))
	assert.False(t, Rule{Method: http.MethodGet, Path: "/api/products"}.Match(http.MethodDelete, "/api/products"))
}

func TestIdentity_ContextCopiesRoles(t *testing.T) {
	t.Parallel()

	roles := []string{"USER"}
	ctx := WithIdentity(context.Background(), Identity{Email: "a@b.c", Roles: roles})
	roles[0] = "ADMIN"

	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.True(t, id.HasRole("USER"))
	assert.False(t, id.HasRole("ADMIN"))

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}
