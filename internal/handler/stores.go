package handler

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/technotes/internal/model"
)

// dbTimeout bounds the store calls made while serving one request.
const dbTimeout = 5 * time.Second

// CredentialStore is the part of the user store the auth flow needs.
type CredentialStore interface {
    GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// UserStore persists users; *repository.UserRepo satisfies it.
type UserStore interface {
    CredentialStore
    GetByID(ctx context.Context, id string) (*model.User, error)
    List(ctx context.Context) ([]*model.User, error)
    Create(ctx context.Context, u *model.User) error
    Update(ctx context.Context, u *model.User) error
    Delete(ctx context.Context, id string) error
}

// NoteStore persists notes; *repository.NoteRepo satisfies it.
type NoteStore interface {
    GetByID(ctx context.Context, id string) (*model.Note, error)
    GetByTitle(ctx context.Context, title string) (*model.Note, error)
    ExistsForUser(ctx context.Context, userID string) (bool, error)
    List(ctx context.Context) ([]*model.Note, error)
    Create(ctx context.Context, n *model.Note) error
    Update(ctx context.Context, n *model.Note) error
    Delete(ctx context.Context, id string) error
}

// requestContext derives the context for store calls from the request.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// message writes {"message": msg} with status.
func message(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"message": msg})
}
