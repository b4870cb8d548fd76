// Package affected implements the change-scoped build/test hook.
//
// It asks bazel, not a home-grown graph, which targets a change can break:
// for every changed file it finds the enclosing bazel package, queries the
// reverse dependencies of the file within that package's subtree, and
// separates test rules from everything else. The plain targets are built
// and the test targets are tested.
package affected

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/bazel"
	"github.com/shinji-kodama/bazel-hooks/internal/logging"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// ChangedDiffFilter selects added, copied, modified and renamed paths.
const ChangedDiffFilter = "ACMR"

// FileLister lists changed paths in the index and in the working tree.
type FileLister interface {
	StagedFiles(ctx context.Context, diffFilter string) ([]string, error)
	UnstagedFiles(ctx context.Context, diffFilter string) ([]string, error)
}

// BuildTool evaluates queries and builds or tests targets.
type BuildTool interface {
	Query(ctx context.Context, expr string) ([]string, error)
	Build(ctx context.Context, targets []string, out io.Writer) error
	Test(ctx context.Context, targets []string, out io.Writer) error
}

// Options configures a Runner.
type Options struct {
	// BuildFiles are the file names that mark a bazel package.
	BuildFiles []string

	// TestKind is the kind() pattern selecting test rules.
	TestKind string
}

// Targets is the partitioned reverse-dependency closure of a change set.
type Targets struct {
	// Plain are the targets to build.
	Plain []string `json:"plain"`

	// Tests are the targets to test.
	Tests []string `json:"tests"`
}

// Empty reports whether there is nothing to build or test.
func (t Targets) Empty() bool {
	return len(t.Plain) == 0 && len(t.Tests) == 0
}

// Runner finds and exercises the targets affected by a change set.
type Runner struct {
	opts   Options
	files  FileLister
	tool   BuildTool
	fsys   fs.FS
	logger *zap.Logger
}

// New creates a Runner. fsys must be rooted at the workspace root.
func New(opts Options, files FileLister, tool BuildTool, fsys fs.FS, logger *zap.Logger) *Runner {
	return &Runner{opts: opts, files: files, tool: tool, fsys: fsys, logger: logging.OrNop(logger)}
}

// ChangedFiles returns the union of unstaged and staged changed paths,
// deduplicated and sorted.
func (r *Runner) ChangedFiles(ctx context.Context) ([]string, error) {
	unstaged, err := r.files.UnstagedFiles(ctx, ChangedDiffFilter)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to get unstaged changes", err)
	}
	staged, err := r.files.StagedFiles(ctx, ChangedDiffFilter)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to get staged changes", err)
	}

	changed := model.NewSet(unstaged...)
	changed.AddAll(staged...)
	return changed.Sorted(), nil
}

// Find queries bazel for the targets affected by the current changes.
//
// Files outside any bazel package contribute nothing. A query that fails
// for one file is logged and that file is skipped; bazel rejects files that
// no rule references, which is not a reason to block a commit.
func (r *Runner) Find(ctx context.Context) (Targets, error) {
	changed, err := r.ChangedFiles(ctx)
	if err != nil {
		return Targets{}, err
	}

	closure := model.NewSet()
	tests := model.NewSet()
	for _, file := range changed {
		pkg, ok := NearestPackage(r.fsys, file, r.opts.BuildFiles)
		if !ok {
			r.logger.Debug("no enclosing package", zap.String("file", file))
			continue
		}

		label, err := bazel.FileLabel(pkg, file)
		if err != nil {
			return Targets{}, model.WrapCLIError(model.ExitFailure, "failed to build file label", err)
		}
		rdeps := bazel.RDeps(bazel.Universe(pkg), label)

		found, err := r.tool.Query(ctx, rdeps)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Targets{}, err
			}
			r.logger.Warn("query failed, skipping file", zap.String("file", file), zap.Error(err))
			continue
		}
		foundTests, err := r.tool.Query(ctx, bazel.Kind(r.opts.TestKind, rdeps))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return Targets{}, err
			}
			r.logger.Warn("test query failed, skipping file", zap.String("file", file), zap.Error(err))
			continue
		}

		r.logger.Debug("queried reverse dependencies",
			zap.String("file", file),
			zap.String("package", pkg),
			zap.Int("targets", len(found)),
			zap.Int("tests", len(foundTests)))
		closure.AddAll(found...)
		tests.AddAll(foundTests...)
	}

	return Partition(closure, tests), nil
}

// Run finds the affected targets, builds the plain ones, then tests the
// test ones. All tool output goes to out. Either step failing fails the
// hook; a failed build skips the tests.
func (r *Runner) Run(ctx context.Context, out io.Writer) (Targets, error) {
	targets, err := r.Find(ctx)
	if err != nil {
		return targets, err
	}

	if len(targets.Plain) > 0 {
		r.logger.Info("building bazel targets", zap.Strings("targets", targets.Plain))
		if err := r.tool.Build(ctx, targets.Plain, out); err != nil {
			return targets, model.WrapCLIError(model.ExitFailure,
				fmt.Sprintf("bazel build of %d target(s) failed", len(targets.Plain)), err)
		}
	}
	if len(targets.Tests) > 0 {
		r.logger.Info("testing bazel targets", zap.Strings("targets", targets.Tests))
		if err := r.tool.Test(ctx, targets.Tests, out); err != nil {
			return targets, model.WrapCLIError(model.ExitFailure,
				fmt.Sprintf("bazel test of %d target(s) failed", len(targets.Tests)), err)
		}
	}
	if targets.Empty() {
		r.logger.Info("no affected bazel targets")
	}
	return targets, nil
}

// Partition splits the reverse-dependency closure into plain and test
// targets. Test targets outside the closure are dropped, so the two halves
// are disjoint and together equal the closure.
func Partition(closure, tests model.Set) Targets {
	inClosure := tests.Intersect(closure)
	return Targets{
		Plain: closure.Difference(inClosure).Sorted(),
		Tests: inClosure.Sorted(),
	}
}

// NearestPackage walks up from the directory containing file and returns
// the first directory holding one of buildFiles. The workspace root itself
// is never returned.
func NearestPackage(fsys fs.FS, file string, buildFiles []string) (string, bool) {
	dir := path.Dir(path.Clean(file))
	for dir != "." && dir != "/" && dir != "" {
		for _, name := range buildFiles {
			info, err := fs.Stat(fsys, path.Join(dir, name))
			if err == nil && !info.IsDir() {
				return dir, true
			}
		}
		dir = path.Dir(dir)
	}
	return "", false
}
