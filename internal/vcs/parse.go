package vcs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// ParseNameStatus parses the output of `git diff --name-status`.
//
// Each line is tab-separated. Renames and copies carry a similarity score
// and two paths:
//
//	M	src/main/java/com/glean/Foo.java
//	R100	src/main/java/com/glean/Old.java	src/main/java/com/glean/New.java
//	D	src/main/java/com/glean/Gone.java
func ParseNameStatus(output string) ([]model.ChangedFile, error) {
	var files []model.ChangedFile

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed name-status line %q", line)
		}

		status, score, err := model.ParseChangeStatus(fields[0])
		if err != nil {
			return nil, fmt.Errorf("malformed name-status line %q: %w", line, err)
		}

		file := model.ChangedFile{Status: status, Score: score, Path: unquotePath(fields[1])}
		if status.HasTwoPaths() {
			if len(fields) < 3 {
				return nil, fmt.Errorf("name-status line %q is missing its destination path", line)
			}
			file.NewPath = unquotePath(fields[2])
		}
		files = append(files, file)
	}

	return files, nil
}

// ParsePorcelain parses the output of `git status --porcelain` (v1).
//
// Each line starts with a two-column XY status (index, worktree), a space,
// then the path. Renames and copies list both paths separated by " -> ":
//
//	 M tools/gen.py
//	R  src/main/java/a/Old.java -> src/main/java/a/New.java
//	D  src/main/java/a/Gone.java
//	?? notes.txt
//
// Ignored entries ("!!") are skipped. Untracked entries are reported as
// Added.
func ParsePorcelain(output string) ([]model.ChangedFile, error) {
	var files []model.ChangedFile

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) < 4 || line[2] != ' ' {
			return nil, fmt.Errorf("malformed porcelain line %q", line)
		}

		x, y := line[0], line[1]
		if x == '!' && y == '!' {
			continue
		}

		status := porcelainStatus(x, y)
		rest := line[3:]
		file := model.ChangedFile{Status: status}

		if status.HasTwoPaths() {
			oldPath, newPath, ok := splitArrow(rest)
			if !ok {
				return nil, fmt.Errorf("porcelain line %q is missing its destination path", line)
			}
			file.Path = unquotePath(oldPath)
			file.NewPath = unquotePath(newPath)
		} else {
			file.Path = unquotePath(rest)
		}
		files = append(files, file)
	}

	return files, nil
}

// porcelainStatus collapses the two porcelain status columns into the single
// status the hooks act on. Renames and copies only ever appear in the index
// column; a deletion in either column counts as a deletion.
func porcelainStatus(x, y byte) model.ChangeStatus {
	switch {
	case x == '?' && y == '?':
		return model.StatusAdded
	case x == 'R':
		return model.StatusRenamed
	case x == 'C':
		return model.StatusCopied
	case x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D'):
		return model.StatusUnmerged
	case x == 'D' || y == 'D':
		return model.StatusDeleted
	}

	code := string(x)
	if x == ' ' {
		code = string(y)
	}
	status, _, err := model.ParseChangeStatus(code)
	if err != nil {
		return model.StatusUnknown
	}
	return status
}

// splitArrow splits "old -> new" where either side may be git-quoted.
func splitArrow(s string) (string, string, bool) {
	if strings.HasPrefix(s, `"`) {
		// Find the closing quote of the first path, skipping escapes.
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case '"':
				rest := s[i+1:]
				if !strings.HasPrefix(rest, " -> ") {
					return "", "", false
				}
				return s[:i+1], rest[len(" -> "):], true
			}
		}
		return "", "", false
	}
	return strings.Cut(s, " -> ")
}

// unquotePath reverses git's C-style quoting of paths that contain special
// characters. Unquoted paths are returned unchanged.
func unquotePath(p string) string {
	if len(p) >= 2 && p[0] == '"' && p[len(p)-1] == '"' {
		if unquoted, err := strconv.Unquote(p); err == nil {
			return unquoted
		}
	}
	return p
}
