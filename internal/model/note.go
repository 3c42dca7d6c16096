package model

import "time"

// TicketStart is the first ticket number handed out by the notes sequence.
const TicketStart = 500

// MaxNoteText is the maximum length of a note's text in characters.
const MaxNoteText = 500

// MaxNoteTitle is the width of notes.title in characters.
const MaxNoteTitle = 255

// Note represents a row in the `notes` table.  Every note belongs to a
// user and carries a sequential ticket number that is independent of its
// storage id and never reused.
//
// Fields:
//  ID        – opaque identifier (UUID).
//  Ticket    – value taken from the `notes_ticket` sequence.
//  UserID    – users.id of the owner.
//  Title     – unique title across all notes.
//  Text      – body, at most MaxNoteText characters.
//  Completed – completion flag, false on creation.
//  CreatedAt – timestamp of creation.
//  UpdatedAt – timestamp of last update.
type Note struct {
    ID        string    `json:"id"`        // notes.id
    Ticket    uint64    `json:"ticket"`    // notes.ticket
    UserID    string    `json:"user"`      // notes.user_id
    Title     string    `json:"title"`     // notes.title
    Text      string    `json:"text"`      // notes.text
    Completed bool      `json:"completed"` // notes.completed
    CreatedAt time.Time `json:"createdAt"` // notes.created_at
    UpdatedAt time.Time `json:"updatedAt"` // notes.updated_at
}

// NoteWithUser is a note enriched with its owner's username for listings.
type NoteWithUser struct {
    Note
    Username string `json:"username"`
}
