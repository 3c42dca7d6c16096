package model

import "time"

// MaxUsername is the width of users.username in characters.
const MaxUsername = 255

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database.  PasswordHash is
// never serialized; handlers can return a User directly.
//
// Fields:
//  ID           – opaque identifier (UUID) assigned at creation.
//  Username     – unique login name.
//  PasswordHash – bcrypt hashed password.
//  Roles        – non-empty list of role labels (JSON column).
//  Active       – inactive users cannot log in or refresh.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    `json:"id"`        // users.id
    Username     string    `json:"username"`  // users.username
    PasswordHash string    `json:"-"`         // users.password_hash
    Roles        []string  `json:"roles"`     // users.roles
    Active       bool      `json:"active"`    // users.active
    CreatedAt    time.Time `json:"createdAt"` // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"` // users.updated_at
}

