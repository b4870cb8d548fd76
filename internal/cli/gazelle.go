package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/bazel-hooks/internal/bazel"
	"github.com/shinji-kodama/bazel-hooks/internal/config"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
	"github.com/shinji-kodama/bazel-hooks/internal/regen"
	"github.com/shinji-kodama/bazel-hooks/internal/vcs"
)

// gazelleFlags holds the flag values for the gazelle command.
type gazelleFlags struct {
	name   string // --name: run only this generator
	dryRun bool   // --dry-run: print the plan without running bazel
}

// NewGazelleCommand creates the "gazelle" cobra command.
func NewGazelleCommand() *cobra.Command {
	flags := &gazelleFlags{}

	cmd := &cobra.Command{
		Use:   "gazelle",
		Short: "Regenerate BUILD files for the staged changes",
		Long: `Run each configured BUILD file generator over the staged changes.

Only the directories that contain staged files are regenerated. When any
staged file was renamed or deleted, every watched root is regenerated from
the top instead, since the directory that lost the file is not otherwise
visible. Generator output is captured in a log file under log_dir.

Examples:
  bazel-hooks gazelle
  bazel-hooks gazelle --name java
  bazel-hooks gazelle --dry-run --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runGazelle(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "Run only the named generator (default: all)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Print the planned generator runs without executing them")

	return cmd
}

func runGazelle(ctx context.Context, out io.Writer, flags *gazelleFlags) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	generators := cfg.Generators
	if flags.name != "" {
		gen, ok := cfg.Generator(flags.name)
		if !ok {
			return model.NewCLIError(model.ExitFailure, fmt.Sprintf("unknown generator %q", flags.name))
		}
		generators = []config.Generator{gen}
	}

	r := regen.New(generators,
		vcs.NewGit(cfg.Git, current.repoRoot),
		bazel.NewClient(cfg.Bazel, current.repoRoot),
		cfg.LogDir, current.logger)

	var outcomes []regen.Outcome
	if flags.dryRun {
		outcomes, err = r.Plan(ctx)
	} else {
		outcomes, err = r.Run(ctx)
	}
	if err != nil {
		return err
	}

	return printGazelleResult(out, outcomes, flags.dryRun)
}

// printGazelleResult reports the plan (dry run) or what was run.
func printGazelleResult(out io.Writer, outcomes []regen.Outcome, dryRun bool) error {
	if IsJSONOutput() {
		return printJSON(out, map[string]interface{}{
			"dryRun":     dryRun,
			"generators": outcomes,
		})
	}

	verb := "ran"
	if dryRun {
		verb = "would run"
	}
	for _, o := range outcomes {
		if len(o.Invocations) == 0 {
			fmt.Fprintf(out, "gazelle %s: nothing to regenerate\n", o.Generator)
			continue
		}
		fmt.Fprintf(out, "gazelle %s: %s %d %s invocation(s), log: %s\n",
			o.Generator, verb, len(o.Invocations), o.Mode, o.LogPath)
		for _, inv := range o.Invocations {
			fmt.Fprintf(out, "  %s (timeout %s)\n", strings.Join(inv.Dirs, " "), inv.Timeout)
		}
	}
	return nil
}
