// Package core implements the catalog's CSV import pipeline and the service
// layer built on top of it.
//
// # Error Codes Reference
//
// User-facing errors carry a code that can be quoted when reporting a problem.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: a card with this set and number already exists
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: a value must be unique but already exists
//	        Patterns: "unique constraint"
//
//	DB003 - Foreign key: the referenced card does not exist
//	        Patterns: "foreign key"
//
//	DB004 - Connection refused: unable to connect to the database
//	DB005 - Connection reset: the connection was interrupted
//	DB007 - Busy: "database is locked" (SQLite) or "deadlock" (Postgres)
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Row has no set_id or number
//	VAL002 - New card has no name
//	VAL003 - Request payload failed validation
//	VAL004 - Request body could not be decoded
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - CSV file not found (ErrFileNotFound)
//	FILE004 - No file provided
//	FILE005 - Empty file
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Another import holds the slot (ErrTooManyImports)
//	IMP002 - Import cancelled
//	IMP003 - Import timed out
//
// # Catalog Errors (CARD001-CARD099)
//
//	CARD001 - Card not found
//	CARD002 - Collection item not found
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. The original error is in the server log.
//
// # Pattern Matching
//
// Patterns are matched case-insensitively with strings.Contains. The first
// match wins, so specific patterns come before general ones.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A card with this set and number already exists",
			Action:  "Edit the existing card or change the set_id/number",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate set_id/number pairs in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key",
		msg: UserMessage{
			Message: "Referenced card does not exist",
			Action:  "Create or import the card first",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL004)
	// =========================================================================
	{
		pattern: "missing set_id or number",
		msg: UserMessage{
			Message: "Row has no set_id or number",
			Action:  "Fill in the set_id (or setId) and number (or card_number) columns",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing name",
		msg: UserMessage{
			Message: "New card has no name",
			Action:  "Fill in the name column for cards that are not in the catalog yet",
			Code:    "VAL002",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Request contains invalid values",
			Action:  "Correct the highlighted fields and try again",
			Code:    "VAL003",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "Request body could not be read",
			Action:  "Send a JSON object or form fields",
			Code:    "VAL004",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE005)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma or semicolon separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "csv file not found",
		msg: UserMessage{
			Message: "CSV file not found",
			Action:  "Check the server path or upload the file instead",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Upload a CSV file or give a server path",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header and data rows",
			Code:    "FILE005",
		},
	},

	// =========================================================================
	// Import Errors (IMP001-IMP003)
	// =========================================================================
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "Another import is still running",
			Action:  "Please wait for it to finish and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Please try again",
			Code:    "IMP002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Split the file into smaller chunks or try again later",
			Code:    "IMP003",
		},
	},

	// =========================================================================
	// Catalog Errors (CARD001-CARD002)
	// =========================================================================
	{
		pattern: "card not found",
		msg: UserMessage{
			Message: "Card not found",
			Action:  "Refresh the card list",
			Code:    "CARD001",
		},
	},
	{
		pattern: "collection item not found",
		msg: UserMessage{
			Message: "Collection item not found",
			Action:  "Refresh the collection",
			Code:    "CARD002",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A *UserError in the chain keeps its own message. Otherwise the first
// matching pattern wins, and ERR000 is returned when nothing matches.
//
// Example:
//
//	msg := MapError(fmt.Errorf("insert card: %w", store.ErrConflict))
//	// msg.Code == "DB002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
