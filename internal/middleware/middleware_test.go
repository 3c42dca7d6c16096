package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/technotes/internal/config"
	"github.com/iliyamo/technotes/internal/logging"
	"github.com/iliyamo/technotes/internal/utils"
)

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"username": Username(c), "roles": Roles(c)})
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	tokens := utils.NewTokenService("access", "refresh", 0, 0)
	e := echo.New()
	e.GET("/private", whoami, JWTAuth(tokens))

	good, err := tokens.IssueAccessToken("dave", []string{"Employee"})
	require.NoError(t, err)
	refresh, err := tokens.IssueRefreshToken("dave")
	require.NoError(t, err)
	expiredSvc := utils.NewTokenService("access", "refresh", 0, 0)
	expiredSvc.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredSvc.IssueAccessToken("dave", []string{"Employee"})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusForbidden},
		{"refresh token", "Bearer " + refresh, http.StatusForbidden},
		{"expired token", "Bearer " + expired, http.StatusForbidden},
		{"valid token", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tc.status, rec.Code)
			switch tc.status {
			case http.StatusOK:
				assert.JSONEq(t, `{"username":"dave","roles":["Employee"]}`, rec.Body.String())
			case http.StatusUnauthorized:
				assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())
			case http.StatusForbidden:
				assert.JSONEq(t, `{"message":"Forbidden"}`, rec.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	setRoles := func(roles []string) echo.MiddlewareFunc {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if roles != nil {
					c.Set(ContextRoles, roles)
				}
				return next(c)
			}
		}
	}
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/any", ok, setRoles([]string{"Employee"}), RequireRole())
	e.GET("/none", ok, setRoles([]string{}), RequireRole())
	e.GET("/missing", ok, setRoles(nil), RequireRole())
	e.GET("/admin-ok", ok, setRoles([]string{"Employee", "Admin"}), RequireRole("Admin", "Manager"))
	e.GET("/admin-no", ok, setRoles([]string{"Employee"}), RequireRole("Admin"))

	for path, want := range map[string]int{
		"/any":      http.StatusOK,
		"/none":     http.StatusForbidden,
		"/missing":  http.StatusForbidden,
		"/admin-ok": http.StatusOK,
		"/admin-no": http.StatusForbidden,
	} {
		rec := serve(e, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)
	_, ok = bearerToken("bearer abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer a b")
	assert.False(t, ok)
}

// fakeScripter answers EvalSha with canned token-bucket results.
type fakeScripter struct {
	redis.Scripter
	mu      sync.Mutex
	results [][]interface{}
	err     error
	keys    []string
}

func (f *fakeScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys...)
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	res := f.results[0]
	f.results = f.results[1:]
	return redis.NewCmdResult(res, nil)
}

func limiterEcho(store redis.Scripter, cfg config.LoginLimitConfig) *echo.Echo {
	e := echo.New()
	e.POST("/auth", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewLoginLimiter(cfg, store, nil))
	return e
}

func limitCfg() config.LoginLimitConfig {
	return config.LoginLimitConfig{
		Enabled: true, Capacity: 5, RefillTokens: 5, RefillInterval: time.Minute,
		TTL: 5 * time.Minute, Prefix: "rl:login", Message: "Too many login attempts",
	}
}

func TestLoginLimiterBlocks(t *testing.T) {
	store := &fakeScripter{results: [][]interface{}{
		{int64(1), int64(4), int64(0)},
		{int64(0), int64(0), int64(42000)},
	}}
	e := limiterEcho(store, limitCfg())

	req := httptest.NewRequest(http.MethodPost, "/auth", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	req = httptest.NewRequest(http.MethodPost, "/auth", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	rec = serve(e, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Too many login attempts"}`, rec.Body.String())

	require.Len(t, store.keys, 2)
	assert.Equal(t, "rl:login:ip:10.0.0.1:route:POST /auth", store.keys[0])
}

func TestLoginLimiterFailsOpen(t *testing.T) {
	e := limiterEcho(&fakeScripter{err: errors.New("connection refused")}, limitCfg())
	rec := serve(e, httptest.NewRequest(http.MethodPost, "/auth", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginLimiterDisabled(t *testing.T) {
	cfg := limitCfg()
	e := limiterEcho(nil, cfg)
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/auth", nil)).Code)

	cfg.Enabled = false
	store := &fakeScripter{err: errors.New("must not be called")}
	e = limiterEcho(store, cfg)
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/auth", nil)).Code)
	assert.Empty(t, store.keys)
}

type recordingEvents struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (r *recordingEvents) Log(channel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = map[string][]string{}
	}
	r.lines[channel] = append(r.lines[channel], message)
}

func TestRequestLogger(t *testing.T) {
	events := &recordingEvents{}
	e := echo.New()
	e.Use(RequestLogger(events, nil))
	e.GET("/notes", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	req := httptest.NewRequest(http.MethodGet, "/notes?page=2", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := serve(e, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	serve(e, httptest.NewRequest(http.MethodGet, "/notes", nil))

	assert.Equal(t, []string{
		"GET\t/notes?page=2\thttp://localhost:3000",
		"GET\t/notes\tundefined",
	}, events.lines[logging.RequestChannel])
}
