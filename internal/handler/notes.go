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
)

// NoteHandler serves /notes.
type NoteHandler struct {
	Notes NoteStore
	Users UserStore
	audit audit
}

func NewNoteHandler(notes NoteStore, users UserStore, events EventPublisher, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{Notes: notes, Users: users, audit: newAudit(events, logger)}
}

// ----- DTOs -----

type createNoteReq struct {
	User  string `json:"user"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

type updateNoteReq struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Completed *bool  `json:"completed"`
}

type notesResp struct {
	Notes []model.NoteWithUser `json:"notesWithUser"`
}

var (
	errTextTooLong  = BadRequest(fmt.Sprintf("Note text must be at most %d characters.", model.MaxNoteText))
	errTitleTooLong = BadRequest(fmt.Sprintf("Note title must be at most %d characters.", model.MaxNoteTitle))
)

// checkNoteLimits enforces the stored column lengths.
func checkNoteLimits(title, text string) error {
	if utf8.RuneCountInString(title) > model.MaxNoteTitle {
		return errTitleTooLong
	}
	if utf8.RuneCountInString(text) > model.MaxNoteText {
		return errTextTooLong
	}
	return nil
}

// List: GET /notes.  Each note carries its owner's username.
func (h *NoteHandler) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	notes, err := h.Notes.List(ctx)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	if len(notes) == 0 {
		return BadRequest("No Notes found.")
	}

	names := make(map[string]string)
	out := make([]model.NoteWithUser, 0, len(notes))
	for _, n := range notes {
		name, ok := names[n.UserID]
		if !ok {
			u, err := h.Users.GetByID(ctx, n.UserID)
			switch {
			case err == nil:
				name = u.Username
			case !errors.Is(err, repository.ErrUserNotFound):
				return fmt.Errorf("list notes: load owner: %w", err)
			}
			names[n.UserID] = name
		}
		out = append(out, model.NoteWithUser{Note: *n, Username: name})
	}
	return c.JSON(http.StatusOK, notesResp{Notes: out})
}

// Create: POST /notes
func (h *NoteHandler) Create(c echo.Context) error {
	var req createNoteReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("All Fields are required.")
	}
	req.User = strings.TrimSpace(req.User)
	req.Title = strings.TrimSpace(req.Title)
	if req.User == "" || req.Title == "" || req.Text == "" {
		return BadRequest("All Fields are required.")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Notes.GetByTitle(ctx, req.Title); err == nil {
		return Conflict("Duplicate record found.")
	} else if !errors.Is(err, repository.ErrNoteNotFound) {
		return fmt.Errorf("create note: lookup: %w", err)
	}
	if err := h.ownerExists(c, req.User); err != nil {
		return err
	}
	if err := checkNoteLimits(req.Title, req.Text); err != nil {
		return err
	}

	n := &model.Note{UserID: req.User, Title: req.Title, Text: req.Text}
	if err := h.Notes.Create(ctx, n); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return Conflict("Duplicate record found.")
		case errors.Is(err, repository.ErrTooLong):
			return BadRequest("Invalid Note Data was sent.")
		}
		return fmt.Errorf("create note: %w", err)
	}
	if n.ID == "" {
		return BadRequest("Invalid Note Data was sent.")
	}

	h.audit.record(c, queue.ActionCreated, queue.ResourceNote, n.ID, n.Title)
	return message(c, http.StatusCreated, fmt.Sprintf("Note %s was created.", n.Title))
}

// Update: PATCH /notes.  Every field is replaced; completed must be sent.
func (h *NoteHandler) Update(c echo.Context) error {
	var req updateNoteReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("All fields are required.")
	}
	req.ID = strings.TrimSpace(req.ID)
	req.User = strings.TrimSpace(req.User)
	req.Title = strings.TrimSpace(req.Title)
	if req.ID == "" || req.User == "" || req.Title == "" || req.Text == "" || req.Completed == nil {
		return BadRequest("All fields are required.")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Notes.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return NotFound("Note not found")
		}
		return fmt.Errorf("update note: load: %w", err)
	}

	dup, err := h.Notes.GetByTitle(ctx, req.Title)
	switch {
	case err == nil && dup.ID != n.ID:
		return Conflict("Duplicate note found.")
	case err != nil && !errors.Is(err, repository.ErrNoteNotFound):
		return fmt.Errorf("update note: lookup: %w", err)
	}
	if err := h.ownerExists(c, req.User); err != nil {
		return err
	}
	if err := checkNoteLimits(req.Title, req.Text); err != nil {
		return err
	}

	n.UserID = req.User
	n.Title = req.Title
	n.Text = req.Text
	n.Completed = *req.Completed
	if err := h.Notes.Update(ctx, n); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return Conflict("Duplicate note found.")
		case errors.Is(err, repository.ErrNoteNotFound):
			return NotFound("Note not found")
		case errors.Is(err, repository.ErrTooLong):
			return BadRequest("Invalid Note Data was sent.")
		}
		return fmt.Errorf("update note: %w", err)
	}

	h.audit.record(c, queue.ActionUpdated, queue.ResourceNote, n.ID, n.Title)
	return message(c, http.StatusCreated, fmt.Sprintf("Note %s is updated.", n.Title))
}

// Delete: DELETE /notes
func (h *NoteHandler) Delete(c echo.Context) error {
	var req idReq
	if err := c.Bind(&req); err != nil {
		return BadRequest("Note ID is required.")
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		return BadRequest("Note ID is required.")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Notes.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return NotFound("Note not found.")
		}
		return fmt.Errorf("delete note: load: %w", err)
	}
	if err := h.Notes.Delete(ctx, n.ID); err != nil {
		if errors.Is(err, repository.ErrNoteNotFound) {
			return NotFound("Note not found.")
		}
		return fmt.Errorf("delete note: %w", err)
	}

	h.audit.record(c, queue.ActionDeleted, queue.ResourceNote, n.ID, n.Title)
	return message(c, http.StatusOK, fmt.Sprintf("Note %s with id %s is deleted.", n.Title, n.ID))
}

// ownerExists returns a 400 when the referenced user does not exist.
func (h *NoteHandler) ownerExists(c echo.Context, userID string) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return NotFound("User not found.")
		}
		return fmt.Errorf("load note owner: %w", err)
	}
	return nil
}
