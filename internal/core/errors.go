package core

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/JonMunkholm/collector/internal/store"
)

var (
	// ErrFileNotFound is returned before any transaction is opened when the
	// import path does not exist.
	ErrFileNotFound = fmt.Errorf("csv file not found: %w", fs.ErrNotExist)

	// ErrTooManyImports is returned when the import slot stays busy for
	// longer than the limiter's wait budget.
	ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

	// ErrNoFile is returned by the HTTP adapter when neither an upload nor a
	// server path was given.
	ErrNoFile = errors.New("no file provided")

	ErrCardNotFound = fmt.Errorf("card %w", store.ErrNotFound)
	ErrItemNotFound = fmt.Errorf("collection item %w", store.ErrNotFound)
)

// Per-row messages recorded in Result.Errors.
const (
	msgMissingKey  = "Missing set_id or number"
	msgMissingName = "Missing name"
)

// RowError is an expected per-row failure: the row is skipped, its message
// recorded, and the import continues. Any other error aborts the import.
type RowError struct {
	Row int
	Msg string
	Err error // underlying integrity violation, if any
}

func (e *RowError) Error() string {
	return e.Msg
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// AsRowError returns the expected per-row failure wrapped in err, if any.
func AsRowError(err error) (*RowError, bool) {
	var re *RowError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
