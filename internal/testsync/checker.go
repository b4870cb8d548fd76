// Package testsync implements the test-path consistency hook.
//
// When a source file is renamed or deleted, its companion test file (found
// through a Convention) must move or go with it. The Checker looks at the
// working-tree status and reports every test file still sitting at a path
// derived from a source path that no longer exists.
package testsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/logging"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// Kind distinguishes the two ways a test file can be orphaned.
type Kind string

const (
	// KindRename is a source rename whose test stayed at the old path.
	KindRename Kind = "rename"

	// KindDelete is a source deletion whose test still exists.
	KindDelete Kind = "delete"
)

// StatusLister returns the working-tree status records.
type StatusLister interface {
	WorkingTreeStatus(ctx context.Context) ([]model.ChangedFile, error)
}

// Inconsistency is one orphaned test file.
type Inconsistency struct {
	Kind Kind `json:"kind"`

	// Source is the old source path (renames) or the deleted path.
	Source string `json:"source"`

	// NewSource is the rename destination. Empty for deletions.
	NewSource string `json:"newSource,omitempty"`

	// Test is the test file that still exists.
	Test string `json:"test"`

	// NewTest is where the test should move to. Empty for deletions, and
	// for renames whose destination falls outside the convention.
	NewTest string `json:"newTest,omitempty"`
}

// Report is the outcome of one check.
type Report struct {
	// Tree is the watched source tree, for the no-op notice.
	Tree string `json:"tree"`

	// Checked is the number of qualifying renamed or deleted source files.
	Checked int `json:"checked"`

	// Inconsistencies lists every orphaned test file.
	Inconsistencies []Inconsistency `json:"inconsistencies"`
}

// OK reports whether the commit may proceed.
func (r *Report) OK() bool {
	return len(r.Inconsistencies) == 0
}

// String renders the aggregated message shown to the committer.
func (r *Report) String() string {
	if r.OK() {
		return ""
	}

	var b strings.Builder
	b.WriteString("Found inconsistencies between source and test files:\n")
	for _, inc := range r.Inconsistencies {
		switch inc.Kind {
		case KindRename:
			b.WriteString("\nSource file moved:\n")
			fmt.Fprintf(&b, "  From: %s\n", inc.Source)
			fmt.Fprintf(&b, "  To: %s\n", inc.NewSource)
			fmt.Fprintf(&b, "But test file still exists at old location: %s\n", inc.Test)
			if inc.NewTest != "" {
				fmt.Fprintf(&b, "  Move it with: git mv %s %s\n", inc.Test, inc.NewTest)
			}
		case KindDelete:
			fmt.Fprintf(&b, "\nSource file deleted: %s\n", inc.Source)
			fmt.Fprintf(&b, "But test file still exists: %s\n", inc.Test)
		}
	}
	return b.String()
}

// Checker finds orphaned test files.
type Checker struct {
	convention Convention
	tree       string
	status     StatusLister
	fsys       fs.FS
	logger     *zap.Logger
}

// New creates a Checker. tree restricts the check to source paths with
// that prefix; fsys must be rooted at the repository root.
func New(convention Convention, tree string, status StatusLister, fsys fs.FS, logger *zap.Logger) *Checker {
	return &Checker{
		convention: convention,
		tree:       tree,
		status:     status,
		fsys:       fsys,
		logger:     logging.OrNop(logger),
	}
}

// Check inspects the working-tree status and returns the report. An error
// is returned only when the status or the filesystem cannot be read.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	records, err := c.status.WorkingTreeStatus(ctx)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to get working tree status", err)
	}

	report := &Report{Tree: c.tree, Inconsistencies: []Inconsistency{}}
	for _, rec := range records {
		if !rec.Status.IsMoveOrDelete() || !c.qualifies(rec.Path) {
			continue
		}
		report.Checked++

		testPath, ok := c.convention.TestPathFor(rec.Path)
		if !ok {
			continue
		}

		exists, err := c.exists(testPath)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitFailure, fmt.Sprintf("failed to check %s", testPath), err)
		}
		c.logger.Debug("checked companion test",
			zap.String("status", rec.Status.String()),
			zap.String("source", rec.Path),
			zap.String("test", testPath),
			zap.Bool("exists", exists))
		if !exists {
			continue
		}

		switch rec.Status {
		case model.StatusRenamed:
			newTest, _ := c.convention.TestPathFor(rec.NewPath)
			report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
				Kind:      KindRename,
				Source:    rec.Path,
				NewSource: rec.NewPath,
				Test:      testPath,
				NewTest:   newTest,
			})
		case model.StatusDeleted:
			report.Inconsistencies = append(report.Inconsistencies, Inconsistency{
				Kind:   KindDelete,
				Source: rec.Path,
				Test:   testPath,
			})
		}
	}
	return report, nil
}

func (c *Checker) qualifies(p string) bool {
	return strings.HasPrefix(p, c.tree) && strings.HasSuffix(p, c.convention.Extension)
}

func (c *Checker) exists(name string) (bool, error) {
	_, err := fs.Stat(c.fsys, name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
