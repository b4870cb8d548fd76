package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ChangeStatus is the single-letter status git reports for a changed path
// in `--name-status` and `--porcelain` output.
type ChangeStatus string

const (
	// StatusAdded indicates a path that did not exist before the change.
	StatusAdded ChangeStatus = "A"

	// StatusCopied indicates a path created as a copy of another path.
	// Copy records carry a similarity score and two paths.
	StatusCopied ChangeStatus = "C"

	// StatusModified indicates a path whose content changed in place.
	StatusModified ChangeStatus = "M"

	// StatusRenamed indicates a path moved to a new location.
	// Rename records carry a similarity score and two paths.
	StatusRenamed ChangeStatus = "R"

	// StatusDeleted indicates a path that no longer exists.
	StatusDeleted ChangeStatus = "D"

	// StatusTypeChanged indicates the file type changed (e.g. file to symlink).
	StatusTypeChanged ChangeStatus = "T"

	// StatusUnmerged indicates a path with unresolved merge conflicts.
	StatusUnmerged ChangeStatus = "U"

	// StatusUnknown is used for any status letter git may emit that the
	// utilities do not act on.
	StatusUnknown ChangeStatus = "X"
)

// String returns the single-letter representation of the status.
func (s ChangeStatus) String() string {
	return string(s)
}

// IsMoveOrDelete reports whether the status makes directory inference
// unreliable. Renamed and Deleted records are never treated like
// Added/Modified ones.
func (s ChangeStatus) IsMoveOrDelete() bool {
	return s == StatusRenamed || s == StatusDeleted
}

// HasTwoPaths reports whether records of this status carry both a source
// and a destination path.
func (s ChangeStatus) HasTwoPaths() bool {
	return s == StatusRenamed || s == StatusCopied
}

// ParseChangeStatus converts a git status code such as "M", "R100" or "C075"
// into a ChangeStatus and its similarity score. The score is 0 when the code
// carries none.
func ParseChangeStatus(code string) (ChangeStatus, int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", 0, fmt.Errorf("empty change status")
	}

	status := ChangeStatus(strings.ToUpper(code[:1]))
	switch status {
	case StatusAdded, StatusCopied, StatusModified, StatusRenamed,
		StatusDeleted, StatusTypeChanged, StatusUnmerged, StatusUnknown:
	default:
		return "", 0, fmt.Errorf("invalid change status %q", code)
	}

	score := 0
	if len(code) > 1 {
		n, err := strconv.Atoi(code[1:])
		if err != nil {
			return "", 0, fmt.Errorf("invalid similarity score in change status %q: %w", code, err)
		}
		score = n
	}
	return status, score, nil
}

// ChangedFile is one record of version-control status output.
//
// For renames and copies, Path holds the old location and NewPath the new
// one. For every other status NewPath is empty.
type ChangedFile struct {
	// Status is the kind of change.
	Status ChangeStatus `json:"status"`

	// Score is the rename/copy similarity percentage, 0 when not reported.
	Score int `json:"score,omitempty"`

	// Path is the path before the change (or the only path).
	Path string `json:"path"`

	// NewPath is the destination of a rename or copy.
	NewPath string `json:"newPath,omitempty"`
}

// Target returns the path as it exists after the change.
func (f ChangedFile) Target() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.Path
}

// String renders the record the way `git diff --name-status` does.
func (f ChangedFile) String() string {
	code := f.Status.String()
	if f.Status.HasTwoPaths() {
		code = fmt.Sprintf("%s%03d", code, f.Score)
	}
	if f.NewPath != "" {
		return code + "\t" + f.Path + "\t" + f.NewPath
	}
	return code + "\t" + f.Path
}

// AnyMoveOrDelete reports whether any record is a rename or a deletion.
func AnyMoveOrDelete(files []ChangedFile) bool {
	for _, f := range files {
		if f.Status.IsMoveOrDelete() {
			return true
		}
	}
	return false
}

// ExitCode is the process exit code returned to the calling hook.
// Hooks only distinguish success from abort, so every failure maps to 1.
type ExitCode int

const (
	// ExitSuccess indicates the utility completed and found nothing wrong.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates a failed subprocess, a timeout, a detected
	// violation or an internal error.
	ExitFailure ExitCode = 1
)

// CLIError is an error that carries an exit code.
// The CLI layer translates it into the process exit status.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error returns the message, followed by the underlying error if present.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
