package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/affected"
	"github.com/shinji-kodama/bazel-hooks/internal/bazel"
	"github.com/shinji-kodama/bazel-hooks/internal/logsink"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
	"github.com/shinji-kodama/bazel-hooks/internal/vcs"
)

// affectedLogName names the capture log of the affected command.
const affectedLogName = "affected"

// affectedFlags holds the flag values for the affected command.
type affectedFlags struct {
	dryRun bool // --dry-run: print the targets without building them
}

// NewAffectedCommand creates the "affected" cobra command.
func NewAffectedCommand() *cobra.Command {
	flags := &affectedFlags{}

	cmd := &cobra.Command{
		Use:   "affected",
		Short: "Build and test the targets that depend on the changes",
		Long: `Collect the staged and unstaged changed files, find each file's nearest
bazel package, and query the reverse dependencies of the file within that
package. Non-test targets are built, then test targets are tested.

Bazel output is captured in a log file under log_dir; with --verbose it is
also copied to stderr.

Examples:
  bazel-hooks affected
  bazel-hooks affected --dry-run`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runAffected(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the affected targets without building or testing them")

	return cmd
}

func runAffected(ctx context.Context, out, errOut io.Writer, flags *affectedFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := affected.New(affected.Options{
		BuildFiles: cfg.Affected.BuildFiles,
		TestKind:   cfg.Affected.TestKind,
	},
		vcs.NewGit(cfg.Git, current.repoRoot),
		bazel.NewClient(cfg.Bazel, current.repoRoot),
		os.DirFS(current.repoRoot),
		current.logger)

	if flags.dryRun {
		targets, err := runner.Find(ctx)
		if err != nil {
			return err
		}
		return printAffectedResult(out, targets, "", true)
	}

	logFile, logPath, err := logsink.Create(cfg.LogDir, "bazel", affectedLogName)
	if err != nil {
		return model.WrapCLIError(model.ExitFailure, "failed to open bazel log", err)
	}
	defer func() { _ = logFile.Close() }()

	var sink io.Writer = logFile
	if verbose {
		sink = io.MultiWriter(logFile, errOut)
	}

	targets, err := runner.Run(ctx, sink)
	if err != nil {
		current.logger.Error("affected targets failed", zap.String("log", logPath))
		return model.WrapCLIError(model.ExitFailure,
			fmt.Sprintf("affected targets failed; check %s for details", logPath), err)
	}
	return printAffectedResult(out, targets, logPath, false)
}

// printAffectedResult reports the partitioned targets.
func printAffectedResult(out io.Writer, targets affected.Targets, logPath string, dryRun bool) error {
	if targets.Plain == nil {
		targets.Plain = []string{}
	}
	if targets.Tests == nil {
		targets.Tests = []string{}
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]interface{}{
			"dryRun":  dryRun,
			"targets": targets,
			"logPath": logPath,
		})
	}

	if targets.Empty() {
		fmt.Fprintln(out, "No affected bazel targets")
		return nil
	}

	buildVerb, testVerb := "Built", "Tested"
	if dryRun {
		buildVerb, testVerb = "Would build", "Would test"
	}
	printTargetList(out, buildVerb, targets.Plain)
	printTargetList(out, testVerb, targets.Tests)
	if logPath != "" {
		fmt.Fprintf(out, "Bazel output: %s\n", logPath)
	}
	return nil
}

func printTargetList(out io.Writer, verb string, targets []string) {
	if len(targets) == 0 {
		return
	}
	fmt.Fprintf(out, "%s %d target(s):\n", verb, len(targets))
	for _, t := range targets {
		fmt.Fprintf(out, "  %s\n", t)
	}
}
