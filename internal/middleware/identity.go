package middleware

// identity.go defines the context keys JWTAuth fills in and accessors for
// them.  Accessors return zero values when no token was verified.

import "github.com/labstack/echo/v4"

const (
    ContextUsername = "username"
    ContextRoles    = "roles"
)

// Username returns the authenticated username, or "" for anonymous requests.
func Username(c echo.Context) string {
    if v, ok := c.Get(ContextUsername).(string); ok {
        return v
    }
    return ""
}

// Roles returns the authenticated user's roles from the access token.
func Roles(c echo.Context) []string {
    if v, ok := c.Get(ContextRoles).([]string); ok {
        return v
    }
    return nil
}

// actor names the caller for logs and rate-limit keys.
func actor(c echo.Context) string {
    if u := Username(c); u != "" {
        return u
    }
    return "anon"
}
