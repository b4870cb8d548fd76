// Package vcs provides the version-control queries the hooks are driven by.
//
// This package wraps Git CLI commands (via the command package) to list
// staged changes, unstaged changes and working-tree status. It is the only
// place that knows git's output formats; callers receive model.ChangedFile
// records or plain paths.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library because the
//     hooks must see exactly what the `git commit` that triggered them sees,
//     including rename detection and the user's git configuration.
//   - All errors from Git commands are wrapped in model.CLIError so the CLI
//     layer can map them to an exit code.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shinji-kodama/bazel-hooks/internal/command"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// DefaultBinary is the git executable looked up through PATH.
const DefaultBinary = "git"

// Git runs version-control queries against one working tree.
type Git struct {
	// Binary is the git executable. Empty means DefaultBinary.
	Binary string

	// Dir is the repository directory passed to `git -C`. Empty means the
	// current directory.
	Dir string
}

// NewGit creates a Git client for the repository at dir.
func NewGit(binary, dir string) *Git {
	return &Git{Binary: binary, Dir: dir}
}

// StagedChanges returns one record per path in the index that differs from
// HEAD, as reported by `git diff --cached --name-status -M`.
func (g *Git) StagedChanges(ctx context.Context) ([]model.ChangedFile, error) {
	output, err := g.run(ctx, "diff", "--cached", "--name-status", "-M")
	if err != nil {
		return nil, err
	}
	return ParseNameStatus(output)
}

// StagedFiles returns the staged paths whose status matches diffFilter
// (for example "ACM"). An empty filter returns every staged path.
func (g *Git) StagedFiles(ctx context.Context, diffFilter string) ([]string, error) {
	return g.names(ctx, true, diffFilter)
}

// UnstagedFiles returns the working-tree paths that differ from the index
// and whose status matches diffFilter.
func (g *Git) UnstagedFiles(ctx context.Context, diffFilter string) ([]string, error) {
	return g.names(ctx, false, diffFilter)
}

// WorkingTreeStatus returns the records of `git status --porcelain`,
// covering both staged and unstaged changes.
func (g *Git) WorkingTreeStatus(ctx context.Context) ([]model.ChangedFile, error) {
	output, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	return ParsePorcelain(output)
}

// RepoRoot returns the absolute path of the top-level directory of the
// working tree.
func (g *Git) RepoRoot(ctx context.Context) (string, error) {
	output, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

func (g *Git) names(ctx context.Context, staged bool, diffFilter string) ([]string, error) {
	args := []string{"diff", "--name-only"}
	if staged {
		args = append(args, "--cached")
	}
	if diffFilter != "" {
		args = append(args, "--diff-filter="+diffFilter)
	}

	output, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range command.Lines(output) {
		paths = append(paths, unquotePath(line))
	}
	return paths, nil
}

// run executes a git command in the configured directory and returns its
// stdout. Failures are wrapped in a model.CLIError that includes git's
// stderr for diagnostics.
func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = DefaultBinary
	}

	// -C makes git operate in the target directory without changing the
	// process working directory.
	fullArgs := args
	if g.Dir != "" {
		fullArgs = append([]string{"-C", g.Dir}, args...)
	}

	result, err := command.Run(ctx, command.Spec{Name: binary, Args: fullArgs})
	if err != nil {
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		var exitErr *command.ExitError
		if errors.As(err, &exitErr) && exitErr.Stderr != "" {
			message = fmt.Sprintf("%s: %s", message, exitErr.Stderr)
		}
		return "", model.WrapCLIError(model.ExitFailure, message, err)
	}
	return result.Stdout, nil
}
