// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow handlers to distinguish
// between failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNoteNotFound = errors.New("note not found")
)

// ErrDuplicate is returned when an insert or update violates a unique
// index (username, note title).  Handlers translate it into 409.
var ErrDuplicate = errors.New("duplicate key")

// ErrConflict is returned when a delete cannot be performed because other
// rows still reference the record, such as a user who owns notes.
var ErrConflict = errors.New("conflict")

// ErrTooLong is returned when a value does not fit its column.  Handlers
// translate it into 400.
var ErrTooLong = errors.New("value too long")

// MySQL server error numbers.
const (
	errDupEntry        = 1062
	errDataTooLong     = 1406
	errRowIsReferenced = 1451
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate maps driver errors onto the sentinels above.
func translate(err error) error {
	switch mysqlErrNumber(err) {
	case errDupEntry:
		return ErrDuplicate
	case errDataTooLong:
		return ErrTooLong
	case errRowIsReferenced:
		return ErrConflict
	}
	return err
}
