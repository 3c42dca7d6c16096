package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/technotes/internal/repository"
	"github.com/iliyamo/technotes/internal/utils"
)

// RefreshCookie is the name of the cookie carrying the refresh token.
const RefreshCookie = "jwt"

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Users        CredentialStore
	Tokens       *utils.TokenService
	CookieMaxAge time.Duration
	Logger       *zap.Logger

	// dummyHash is compared against when the user does not exist so a
	// failed login costs the same either way.
	dummyHash string
}

func NewAuthHandler(users CredentialStore, tokens *utils.TokenService, cookieMaxAge time.Duration, bcryptCost int, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookieMaxAge <= 0 {
		cookieMaxAge = tokens.RefreshTTL
	}
	return &AuthHandler{
		Users:        users,
		Tokens:       tokens,
		CookieMaxAge: cookieMaxAge,
		Logger:       logger,
		dummyHash:    utils.DummyHash(bcryptCost),
	}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string   `json:"accessToken"`
	Roles       []string `json:"roles"`
}

type refreshResp struct {
	Roles       []string `json:"roles"`
	AccessToken string   `json:"accessToken"`
}

// Login: verify credentials, set the refresh cookie and return an access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("All fields are required.")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return BadRequest("All fields are required.")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("login: load user: %w", err)
	}
	hash := h.dummyHash
	if u != nil {
		hash = u.PasswordHash
	}
	match := utils.VerifyPassword(hash, req.Password)
	if u == nil || !u.Active || !match {
		return Unauthorized("Unauthorized")
	}

	access, err := h.Tokens.IssueAccessToken(u.Username, u.Roles)
	if err != nil {
		return fmt.Errorf("login: issue access token: %w", err)
	}
	refresh, err := h.Tokens.IssueRefreshToken(u.Username)
	if err != nil {
		return fmt.Errorf("login: issue refresh token: %w", err)
	}
	c.SetCookie(h.cookie(refresh, int(h.CookieMaxAge/time.Second)))

	return c.JSON(http.StatusOK, loginResp{AccessToken: access, Roles: u.Roles})
}

// Refresh: mint a new access token from the refresh cookie.  The refresh
// token itself is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie(RefreshCookie)
	if err != nil || ck.Value == "" {
		return Unauthorized("Unauthorized")
	}
	claims, err := h.Tokens.VerifyRefresh(ck.Value)
	if err != nil {
		return Forbidden("Forbidden")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return Unauthorized("Unauthorized")
		}
		return fmt.Errorf("refresh: load user: %w", err)
	}
	if !u.Active {
		return Unauthorized("Unauthorized")
	}

	access, err := h.Tokens.IssueAccessToken(u.Username, u.Roles)
	if err != nil {
		return fmt.Errorf("refresh: issue access token: %w", err)
	}
	return c.JSON(http.StatusOK, refreshResp{Roles: u.Roles, AccessToken: access})
}

// Logout: clear the refresh cookie if the client has one.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(RefreshCookie); err != nil || ck.Value == "" {
		return c.NoContent(http.StatusNoContent)
	}
	ck := h.cookie("", -1)
	ck.Expires = time.Unix(0, 0)
	c.SetCookie(ck)
	return message(c, http.StatusOK, "cookie cleared")
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}
