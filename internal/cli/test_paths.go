package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/bazel-hooks/internal/model"
	"github.com/shinji-kodama/bazel-hooks/internal/testsync"
	"github.com/shinji-kodama/bazel-hooks/internal/vcs"
)

// NewTestPathsCommand creates the "test-paths" cobra command.
func NewTestPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-paths",
		Short: "Fail when a renamed or deleted source leaves its test behind",
		Long: `Inspect the working tree for renamed or deleted source files and check
that their companion test files were moved or removed with them.

A source file src/main/java/a/Foo.java has the companion test
src/test/java/a/FooTest.java under the default convention.

Examples:
  bazel-hooks test-paths
  bazel-hooks test-paths --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestPaths(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runTestPaths(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tp := cfg.TestPaths
	convention := testsync.Convention{
		SourceRoot: tp.SourceRoot,
		TestRoot:   tp.TestRoot,
		Suffix:     tp.Suffix,
		Extension:  tp.Extension,
	}
	if err := convention.Validate(); err != nil {
		return model.WrapCLIError(model.ExitFailure, "invalid test path convention", err)
	}

	checker := testsync.New(convention, tp.Tree,
		vcs.NewGit(cfg.Git, current.repoRoot), os.DirFS(current.repoRoot), current.logger)
	report, err := checker.Check(ctx)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		if err := printJSON(out, report); err != nil {
			return err
		}
	} else if report.Checked == 0 {
		fmt.Fprintf(out, "No moved or deleted files found in %s\n", report.Tree)
	} else if !report.OK() {
		fmt.Fprint(out, report.String())
	}

	if !report.OK() {
		return model.NewCLIError(model.ExitFailure,
			fmt.Sprintf("%d test file(s) out of sync with their sources", len(report.Inconsistencies)))
	}
	return nil
}
