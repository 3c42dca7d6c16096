package router // package router wires handlers and middleware onto an Echo instance

import (
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/technotes/internal/handler"
	"github.com/iliyamo/technotes/internal/logging"
	"github.com/iliyamo/technotes/internal/middleware"
	"github.com/iliyamo/technotes/internal/utils"
)

// Deps is everything the routes need.  LoginLimiter may be nil.
type Deps struct {
	AllowedOrigins []string
	PublicDir      string

	Logger *zap.Logger
	Events logging.EventLogger

	Tokens       *utils.TokenService
	Auth         *handler.AuthHandler
	Users        *handler.UserHandler
	Notes        *handler.NoteHandler
	LoginLimiter echo.MiddlewareFunc
}

// New returns an Echo instance with the global middleware, the error
// handler and every route registered.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Events == nil {
		d.Events = logging.Nop{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger, d.Events)

	e.Use(middleware.RequestLogger(d.Events, d.Logger))
	e.Use(echomw.Recover())
	// echo treats an empty AllowOrigins as "*"; with credentials that is
	// never wanted, so no list means same-origin only.
	if len(d.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{echo.GET, echo.POST, echo.PATCH, echo.DELETE, echo.OPTIONS},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	if d.PublicDir != "" {
		if fi, err := os.Stat(d.PublicDir); err == nil && fi.IsDir() {
			// Files found under PublicDir are served; anything else falls through.
			e.Use(echomw.StaticWithConfig(echomw.StaticConfig{Root: d.PublicDir}))
		}
	}

	RegisterRoutes(e)
	RegisterAuth(e, d.Auth, d.LoginLimiter)
	RegisterUsers(e, d.Users, d.Tokens)
	RegisterNotes(e, d.Notes, d.Tokens)
	e.RouteNotFound("/*", handler.RouteNotFound)
	return e
}

// RegisterRoutes registers the health check and the landing page.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/", handler.Index)
	e.GET("/index", handler.Index)
	e.GET("/index.html", handler.Index)
}

// RegisterAuth registers login, refresh and logout under /auth.  Only login
// is rate limited.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/auth")
	if limiter != nil {
		g.POST("", a.Login, limiter)
	} else {
		g.POST("", a.Login)
	}
	g.GET("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterUsers registers /users.  Creating a user is public; everything
// else needs a bearer token with at least one role.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, tokens *utils.TokenService) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(tokens), middleware.RequireRole()}
	e.POST("/users", u.Create)
	e.GET("/users", u.List, auth...)
	e.PATCH("/users", u.Update, auth...)
	e.DELETE("/users", u.Delete, auth...)
}

// RegisterNotes registers /notes; every method needs a bearer token.
func RegisterNotes(e *echo.Echo, n *handler.NoteHandler, tokens *utils.TokenService) {
	auth := []echo.MiddlewareFunc{middleware.JWTAuth(tokens), middleware.RequireRole()}
	e.GET("/notes", n.List, auth...)
	e.POST("/notes", n.Create, auth...)
	e.PATCH("/notes", n.Update, auth...)
	e.DELETE("/notes", n.Delete, auth...)
}
