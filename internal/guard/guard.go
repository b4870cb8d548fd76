// Package guard implements the single-target hook: every staged BUILD file
// under the watched tree may declare at most one target of a given rule
// kind.
//
// Declarations are counted as plain substring occurrences of a marker such
// as "java_library(". The file is not parsed, so a marker inside a comment
// or a string literal is counted too; files that need an exception belong
// in the exclude list.
package guard

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/logging"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// StagedDiffFilter selects added, copied and modified paths; deleted BUILD
// files cannot violate the rule.
const StagedDiffFilter = "ACM"

// FileLister lists staged paths matching a git diff filter.
type FileLister interface {
	StagedFiles(ctx context.Context, diffFilter string) ([]string, error)
}

// Options configures a Guard.
type Options struct {
	// Tree is the watched path prefix. Empty watches the whole repository.
	Tree string

	// BuildFile is the file name inspected (e.g. BUILD.bazel).
	BuildFile string

	// Marker is the declaration text counted in each file.
	Marker string

	// ExcludeList is the repository-relative path of the exclude list.
	ExcludeList string
}

// Violation is a BUILD file declaring more than one target of the kind.
type Violation struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// Error renders the message shown to the committer.
func (v Violation) Error() string {
	return fmt.Sprintf("%s contains %d targets, at most one is allowed", v.File, v.Count)
}

// Guard checks staged BUILD files against the single-target rule.
type Guard struct {
	opts   Options
	files  FileLister
	fsys   fs.FS
	logger *zap.Logger
}

// New creates a Guard reading files from fsys, which must be rooted at the
// repository root.
func New(opts Options, files FileLister, fsys fs.FS, logger *zap.Logger) *Guard {
	return &Guard{opts: opts, files: files, fsys: fsys, logger: logging.OrNop(logger)}
}

// Check inspects every qualifying staged file, continuing past violations,
// and returns all of them. A nil error with an empty slice means the commit
// may proceed.
func (g *Guard) Check(ctx context.Context) ([]Violation, error) {
	exclude, err := LoadExcludeList(g.fsys, g.opts.ExcludeList)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to read exclude list", err)
	}

	staged, err := g.files.StagedFiles(ctx, StagedDiffFilter)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to get staged files", err)
	}

	var violations []Violation
	for _, file := range g.qualifying(staged) {
		if exclude.Has(file) {
			g.logger.Debug("skipping excluded file", zap.String("file", file))
			continue
		}

		content, err := fs.ReadFile(g.fsys, file)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitFailure, fmt.Sprintf("failed to read %s", file), err)
		}

		count := CountMarkers(string(content), g.opts.Marker)
		g.logger.Debug("counted targets", zap.String("file", file), zap.Int("count", count))
		if count > 1 {
			violations = append(violations, Violation{File: file, Count: count})
		}
	}
	return violations, nil
}

// Err folds violations into a single error, or nil when there are none.
func Err(violations []Violation, marker string) error {
	if len(violations) == 0 {
		return nil
	}

	var result *multierror.Error
	for _, v := range violations {
		result = multierror.Append(result, v)
	}
	result.ErrorFormat = func(errs []error) string {
		lines := make([]string, 0, len(errs))
		for _, e := range errs {
			lines = append(lines, "  "+e.Error())
		}
		return fmt.Sprintf("%d BUILD file(s) declare more than one %q target:\n%s",
			len(errs), strings.TrimSuffix(marker, "("), strings.Join(lines, "\n"))
	}
	return model.WrapCLIError(model.ExitFailure, "single-target check failed", result)
}

func (g *Guard) qualifying(staged []string) []string {
	prefix := g.opts.Tree
	var out []string
	for _, file := range staged {
		if prefix != "" && !strings.HasPrefix(file, prefix) {
			continue
		}
		if path.Base(file) != g.opts.BuildFile {
			continue
		}
		out = append(out, file)
	}
	return out
}

// CountMarkers returns the number of non-overlapping occurrences of marker
// in content.
func CountMarkers(content, marker string) int {
	if marker == "" {
		return 0
	}
	return strings.Count(content, marker)
}

// LoadExcludeList reads one repository-relative path per line, ignoring
// blank lines and surrounding whitespace. A missing file (or an empty name)
// yields an empty set.
func LoadExcludeList(fsys fs.FS, name string) (model.Set, error) {
	set := model.NewSet()
	if name == "" {
		return set, nil
	}

	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return set, nil
		}
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		set.Add(strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
