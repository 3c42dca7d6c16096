package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestRouteNotFoundNegotiates(t *testing.T) {
	e := newEcho()
	e.RouteNotFound("/*", RouteNotFound)

	cases := []struct {
		accept, contentType, body string
	}{
		{"text/html,application/xhtml+xml", echo.MIMETextHTMLCharsetUTF8, "<h1>404 Not Found</h1>"},
		{"", echo.MIMETextHTMLCharsetUTF8, "<h1>404 Not Found</h1>"},
		{"application/json", echo.MIMEApplicationJSON, `{"message":"404 Not Found"}`},
		{"text/html;q=0, application/json", echo.MIMEApplicationJSON, `{"message":"404 Not Found"}`},
		{"image/png", echo.MIMETextPlainCharsetUTF8, "404 Not Found"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
		if tc.accept != "" {
			req.Header.Set(echo.HeaderAccept, tc.accept)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.accept)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), tc.contentType, tc.accept)
		assert.Contains(t, rec.Body.String(), tc.body, tc.accept)
	}
}

func TestAccepts(t *testing.T) {
	assert.True(t, accepts("*/*", "text/html"))
	assert.True(t, accepts("text/*;q=0.5", "text/html"))
	assert.True(t, accepts("Application/JSON", "application/json"))
	assert.False(t, accepts("application/json", "text/html"))
	assert.False(t, accepts("text/html; q=0.0", "text/html"))
	assert.True(t, accepts("text/html; q=0.01", "text/html"))
}

func TestIndex(t *testing.T) {
	e := newEcho()
	e.GET("/", Index)
	e.GET("/index.html", Index)
	for _, path := range []string{"/", "/index.html"} {
		rec := do(e, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<h1>techNotes API</h1>")
	}
}

func TestErrorHandler(t *testing.T) {
	e := newEcho()
	e.GET("/api", func(c echo.Context) error { return Conflict("Duplicate note title.") })
	e.GET("/notfound", func(c echo.Context) error { return NotFound("User not found.") })
	e.GET("/http", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden, "Forbidden") })
	e.GET("/boom", func(c echo.Context) error { return errors.New("db exploded") })

	cases := map[string]struct {
		status int
		body   string
	}{
		"/api":      {http.StatusConflict, `{"message":"Duplicate note title."}`},
		"/notfound": {http.StatusBadRequest, `{"message":"User not found."}`},
		"/http":     {http.StatusForbidden, `{"message":"Forbidden"}`},
		"/boom":     {http.StatusInternalServerError, `{"message":"Internal Server Error"}`},
	}
	for path, want := range cases {
		rec := do(e, http.MethodGet, path, "")
		assert.Equal(t, want.status, rec.Code, path)
		assert.JSONEq(t, want.body, rec.Body.String(), path)
	}
}

func TestErrorHandlerLogsUnhandled(t *testing.T) {
	events := &channelRecorder{}
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil, events)
	e.GET("/boom", func(c echo.Context) error { return errors.New("db exploded") })
	e.GET("/api", func(c echo.Context) error { return BadRequest("nope") })

	do(e, http.MethodGet, "/api", "")
	assert.Empty(t, events.lines)

	do(e, http.MethodGet, "/boom", "")
	if assert.Len(t, events.lines, 1) {
		assert.Contains(t, events.lines[0], "db exploded\tGET\t/boom")
	}
}

type channelRecorder struct{ lines []string }

func (r *channelRecorder) Log(_, message string) { r.lines = append(r.lines, message) }
