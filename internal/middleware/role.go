package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context
)

// RequireRole returns a middleware that enforces that the authenticated
// user holds at least one role.  When roles are given, one of the user's
// roles must be among them.  It must run after JWTAuth, which stores the
// roles under ContextRoles; otherwise the request is answered with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    // Build a set of allowed roles for constant‑time lookups.
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !hasRole(Roles(c), allowed) {
                return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
            }
            return next(c)
        }
    }
}

// hasRole reports whether have is non-empty and, if allowed is non-empty,
// intersects it.
func hasRole(have []string, allowed map[string]bool) bool {
    for _, r := range have {
        if r == "" {
            continue
        }
        if len(allowed) == 0 || allowed[r] {
            return true
        }
    }
    return false
}
