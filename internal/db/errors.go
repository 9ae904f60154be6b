package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when attempting to insert a duplicate record.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrLocked is returned when the store is locked by another connection.
	ErrLocked = errors.New("database is locked")
)

// SQLite primary result codes. modernc reports extended codes, so callers
// mask with 0xff before comparing.
const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteConstraint = 19

	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// WrapError wraps database errors with additional context and maps them to custom error types.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w: %w", operation, ErrNotFound, err)
	}

	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		code := coder.Code()
		switch {
		case code&0xff == sqliteBusy, code&0xff == sqliteLocked:
			return fmt.Errorf("%s: %w: %w", operation, ErrLocked, err)
		case code == sqliteConstraintUnique, code == sqliteConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: %w", operation, ErrDuplicateKey, err)
		case code&0xff == sqliteConstraint:
			return fmt.Errorf("%s: constraint violation [%d]: %w", operation, code, err)
		default:
			return fmt.Errorf("%s: database error [%d]: %w", operation, code, err)
		}
	}

	// Some lock failures surface without a coded error, e.g. from the migrate driver.
	msg := err.Error()
	if strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked") {
		return fmt.Errorf("%s: %w: %w", operation, ErrLocked, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// IsNotFound returns true if the error is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey returns true if the error is an ErrDuplicateKey error.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// IsLocked reports lock contention, whether or not err went through WrapError.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrLocked) {
		return true
	}
	return errors.Is(WrapError(err, ""), ErrLocked)
}
