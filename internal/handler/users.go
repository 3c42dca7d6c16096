package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/technotes/internal/model"
	"github.com/iliyamo/technotes/internal/queue"
	"github.com/iliyamo/technotes/internal/repository"
	"github.com/iliyamo/technotes/internal/utils"
)

// UserHandler serves /users.
type UserHandler struct {
	Users      UserStore
	Notes      NoteStore
	BcryptCost int
	audit      audit
}

func NewUserHandler(users UserStore, notes NoteStore, bcryptCost int, events EventPublisher, logger *zap.Logger) *UserHandler {
	return &UserHandler{Users: users, Notes: notes, BcryptCost: bcryptCost, audit: newAudit(events, logger)}
}

// ----- DTOs -----

type createUserReq struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type updateUserReq struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	Active   *bool    `json:"active"`
	Password string   `json:"password"`
}

type idReq struct {
	ID string `json:"id"`
}

type usersResp struct {
	Users []*model.User `json:"users"`
}

var (
	errUsernameTooLong = BadRequest(fmt.Sprintf("Username must be at most %d characters.", model.MaxUsername))
	errPasswordTooLong = BadRequest(fmt.Sprintf("Password must be at most %d bytes.", utils.MaxPasswordBytes))
)

// checkCredentials enforces the column and bcrypt limits on a username and
// an optional password.
func checkCredentials(username, password string) error {
	if utf8.RuneCountInString(username) > model.MaxUsername {
		return errUsernameTooLong
	}
	if len(password) > utils.MaxPasswordBytes {
		return errPasswordTooLong
	}
	return nil
}

// hashPassword maps bcrypt's input limits onto a 400.
func (h *UserHandler) hashPassword(op, password string) (string, error) {
	hash, err := utils.HashPassword(password, h.BcryptCost)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooLong) {
			return "", errPasswordTooLong
		}
		return "", fmt.Errorf("%s: hash password: %w", op, err)
	}
	return hash, nil
}

// cleanRoles trims role labels and drops empty ones.
func cleanRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// List: GET /users
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return BadRequest("No User Found.")
	}
	return c.JSON(http.StatusOK, usersResp{Users: users})
}

// Create: POST /users
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("All fields are required.")
	}
	req.Username = strings.TrimSpace(req.Username)
	roles := cleanRoles(req.Roles)
	if req.Username == "" || req.Password == "" || len(roles) == 0 {
		return BadRequest("All fields are required.")
	}
	if err := checkCredentials(req.Username, req.Password); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Users.GetByUsername(ctx, req.Username); err == nil {
		return Conflict("Duplicate Username found.")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("create user: lookup: %w", err)
	}

	hash, err := h.hashPassword("create user", req.Password)
	if err != nil {
		return err
	}
	u := &model.User{Username: req.Username, PasswordHash: hash, Roles: roles, Active: true}
	if err := h.Users.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return Conflict("Duplicate Username found.")
		case errors.Is(err, repository.ErrTooLong):
			return BadRequest("Invalid User data received.")
		}
		return fmt.Errorf("create user: %w", err)
	}
	if u.ID == "" {
		return BadRequest("Invalid User data received.")
	}

	h.audit.record(c, queue.ActionCreated, queue.ResourceUser, u.ID, u.Username)
	return message(c, http.StatusCreated, fmt.Sprintf("User %s was created.", u.Username))
}

// Update: PATCH /users
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("All Fields are required.")
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Username = strings.TrimSpace(req.Username)
	roles := cleanRoles(req.Roles)
	if req.ID == "" || req.Username == "" || len(roles) == 0 || req.Active == nil {
		return BadRequest("All Fields are required.")
	}
	if err := checkCredentials(req.Username, req.Password); err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return NotFound("User not found.")
		}
		return fmt.Errorf("update user: load: %w", err)
	}

	dup, err := h.Users.GetByUsername(ctx, req.Username)
	switch {
	case err == nil && dup.ID != u.ID:
		return Conflict("Duplicate Username found.")
	case err != nil && !errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("update user: lookup: %w", err)
	}

	u.Username = req.Username
	u.Roles = roles
	u.Active = *req.Active
	if req.Password != "" {
		hash, err := h.hashPassword("update user", req.Password)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}

	if err := h.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return Conflict("Duplicate Username found.")
		case errors.Is(err, repository.ErrUserNotFound):
			return NotFound("User not found.")
		case errors.Is(err, repository.ErrTooLong):
			return BadRequest("Invalid User data received.")
		}
		return fmt.Errorf("update user: %w", err)
	}

	h.audit.record(c, queue.ActionUpdated, queue.ResourceUser, u.ID, u.Username)
	return message(c, http.StatusCreated, fmt.Sprintf("%s updated.", u.Username))
}

// Delete: DELETE /users
func (h *UserHandler) Delete(c echo.Context) error {
	var req idReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("User Id is required.")
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return BadRequest("User Id is required.")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	has, err := h.Notes.ExistsForUser(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("delete user: check notes: %w", err)
	}
	if has {
		return BadRequest("User has assigned note.")
	}

	u, err := h.Users.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return NotFound("User not found.")
		}
		return fmt.Errorf("delete user: load: %w", err)
	}

	if err := h.Users.Delete(ctx, u.ID); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return BadRequest("User has assigned note.")
		case errors.Is(err, repository.ErrUserNotFound):
			return NotFound("User not found.")
		}
		return fmt.Errorf("delete user: %w", err)
	}

	h.audit.record(c, queue.ActionDeleted, queue.ResourceUser, u.ID, u.Username)
	return message(c, http.StatusOK, fmt.Sprintf("Username %s with ID %s is deleted.", u.Username, u.ID))
}
