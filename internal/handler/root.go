package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/technotes/web"
)

// Index serves the landing page for /, /index and /index.html.
func Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, web.IndexHTML)
}

// RouteNotFound answers unmatched routes with a 404 in the best format the
// client accepts: HTML, then JSON, then plain text.
func RouteNotFound(c echo.Context) error {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	switch {
	case accepts(accept, echo.MIMETextHTML):
		return c.HTMLBlob(http.StatusNotFound, web.NotFoundHTML)
	case accepts(accept, echo.MIMEApplicationJSON):
		return message(c, http.StatusNotFound, "404 Not Found")
	default:
		return c.String(http.StatusNotFound, "404 Not Found")
	}
}

// accepts reports whether the Accept header admits mime.  An empty header
// accepts anything; ranges with q=0 are refused.
func accepts(header, mime string) bool {
	if strings.TrimSpace(header) == "" {
		return true
	}
	typ, _, _ := strings.Cut(mime, "/")
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(part, ";")
		rng := strings.ToLower(strings.TrimSpace(fields[0]))
		if rng == "" || zeroQuality(fields[1:]) {
			continue
		}
		if rng == "*/*" || rng == mime || rng == typ+"/*" {
			return true
		}
	}
	return false
}

func zeroQuality(params []string) bool {
	for _, p := range params {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
			continue
		}
		v = strings.TrimRight(strings.TrimSpace(v), "0")
		return v == "" || v == "0." || v == "0"
	}
	return false
}
