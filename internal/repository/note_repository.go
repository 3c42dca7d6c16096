package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/technotes/internal/model"
)

// ticketSequence names the row in `sequences` that numbers notes.
const ticketSequence = "notes_ticket"

const noteColumns = "id, ticket, user_id, title, text, completed, created_at, updated_at"

// NoteRepo persists notes in the 'notes' table.
type NoteRepo struct{ db *sql.DB }

func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

func scanNote(row rowScanner) (*model.Note, error) {
	var n model.Note
	if err := row.Scan(&n.ID, &n.Ticket, &n.UserID, &n.Title, &n.Text, &n.Completed, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NoteRepo) getOne(ctx context.Context, where string, arg any) (*model.Note, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+noteColumns+" FROM notes WHERE "+where+" LIMIT 1", arg)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return n, nil
}

// Create inserts n with the next ticket number.  The sequence bump and the
// insert share a transaction, so a failed insert does not consume a ticket;
// deleting a note never returns its ticket to the sequence.
func (r *NoteRepo) Create(ctx context.Context, n *model.Note) (err error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE sequences SET value = LAST_INSERT_ID(value + 1) WHERE name = ?", ticketSequence)
	if err != nil {
		return fmt.Errorf("next ticket: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("next ticket: sequence %q missing", ticketSequence)
	}
	ticket, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("next ticket: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO notes (id, ticket, user_id, title, text, completed) VALUES (?,?,?,?,?,?)",
		n.ID, uint64(ticket), n.UserID, n.Title, n.Text, n.Completed)
	if err != nil {
		return fmt.Errorf("create note: %w", translate(err))
	}
	if err = tx.Commit(); err != nil {
		return err
	}

	stored, err := r.GetByID(ctx, n.ID)
	if err != nil {
		return err
	}
	*n = *stored
	return nil
}

// GetByID fetches a note by id.
func (r *NoteRepo) GetByID(ctx context.Context, id string) (*model.Note, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTitle fetches the note with exactly this title.
func (r *NoteRepo) GetByTitle(ctx context.Context, title string) (*model.Note, error) {
	return r.getOne(ctx, "title = ?", title)
}

// ExistsForUser reports whether any note references userID.
func (r *NoteRepo) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM notes WHERE user_id = ? LIMIT 1", userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns all notes ordered by ticket.
func (r *NoteRepo) List(ctx context.Context) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+noteColumns+" FROM notes ORDER BY ticket")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces owner, title, text and completion of n and reloads it.
func (r *NoteRepo) Update(ctx context.Context, n *model.Note) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE notes SET user_id = ?, title = ?, text = ?, completed = ? WHERE id = ?",
		n.UserID, n.Title, n.Text, n.Completed, n.ID)
	if err != nil {
		return fmt.Errorf("update note: %w", translate(err))
	}
	stored, err := r.GetByID(ctx, n.ID)
	if err != nil {
		return err
	}
	*n = *stored
	return nil
}

// Delete removes the note with id.
func (r *NoteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoteNotFound
	}
	return nil
}
