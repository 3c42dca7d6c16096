package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/technotes/internal/middleware"
	"github.com/iliyamo/technotes/internal/model"
	"github.com/iliyamo/technotes/internal/queue"
	"github.com/iliyamo/technotes/internal/repository"
	"github.com/iliyamo/technotes/internal/utils"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]model.User
	// err, when set, is returned by every call.
	err error
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]model.User{}} }

func (m *memUsers) add(t *testing.T, username, password string, active bool, roles ...string) *model.User {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Username: username, PasswordHash: hash, Roles: roles, Active: active}
	require.NoError(t, m.Create(context.Background(), u))
	return u
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.byID {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUsers) List(context.Context) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.User, 0, len(m.byID))
	for _, u := range m.byID {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, other := range m.byID {
		if other.Username == u.Username {
			return repository.ErrDuplicate
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Update(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byID[u.ID]; !ok {
		return repository.ErrUserNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

// memNotes is an in-memory NoteStore with a ticket counter that, like the
// sequences table, is never rolled back.
type memNotes struct {
	mu     sync.Mutex
	byID   map[string]model.Note
	ticket uint64
}

func newMemNotes() *memNotes {
	return &memNotes{byID: map[string]model.Note{}, ticket: model.TicketStart - 1}
}

func (m *memNotes) GetByID(_ context.Context, id string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNoteNotFound
	}
	return &n, nil
}

func (m *memNotes) GetByTitle(_ context.Context, title string) (*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.byID {
		if n.Title == title {
			return &n, nil
		}
	}
	return nil, repository.ErrNoteNotFound
}

func (m *memNotes) ExistsForUser(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.byID {
		if n.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memNotes) List(context.Context) ([]*model.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Note, 0, len(m.byID))
	for _, n := range m.byID {
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

func (m *memNotes) Create(_ context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ticket++
	for _, other := range m.byID {
		if other.Title == n.Title {
			return repository.ErrDuplicate
		}
	}
	n.ID = uuid.NewString()
	n.Ticket = m.ticket
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	m.byID[n.ID] = *n
	return nil
}

func (m *memNotes) Update(_ context.Context, n *model.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[n.ID]; !ok {
		return repository.ErrNoteNotFound
	}
	m.byID[n.ID] = *n
	return nil
}

func (m *memNotes) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNoteNotFound
	}
	delete(m.byID, id)
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ResourceEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ResourceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(nil, nil)
	return e
}

// asUser marks the request as authenticated, as JWTAuth would.
func asUser(username string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.ContextUsername, username)
			c.Set(middleware.ContextRoles, roles)
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
