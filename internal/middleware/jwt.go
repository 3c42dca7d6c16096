package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/technotes/internal/utils" // token verification
)

// AccessVerifier verifies access tokens; *utils.TokenService satisfies it.
type AccessVerifier interface {
    VerifyAccess(raw string) (*utils.AccessClaims, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's username and roles into the request context.  A
// missing or malformed Authorization header yields 401; a token that does
// not verify (bad signature, expired, malformed) yields 403.  Responses are
// echo HTTP errors so the central error handler shapes the body.
func JWTAuth(tokens AccessVerifier) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if !ok {
                return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
            }

            claims, err := tokens.VerifyAccess(raw)
            if err != nil {
                return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
            }

            // Handlers and downstream middleware read these via Username(c) and Roles(c).
            c.Set(ContextUsername, claims.UserInfo.Username)
            c.Set(ContextRoles, claims.UserInfo.Roles)
            return next(c)
        }
    }
}

// bearerToken extracts the token from "Bearer <token>".  The scheme is
// matched case-sensitively and the token must be non-empty.
func bearerToken(header string) (string, bool) {
    if !strings.HasPrefix(header, "Bearer ") {
        return "", false
    }
    raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
    if raw == "" || strings.ContainsAny(raw, " \t") {
        return "", false
    }
    return raw, true
}
