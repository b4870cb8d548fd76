package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/bazel-hooks/internal/guard"
	"github.com/shinji-kodama/bazel-hooks/internal/vcs"
)

// NewSingleTargetCommand creates the "single-target" cobra command.
func NewSingleTargetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "single-target",
		Short: "Allow at most one library target per staged BUILD file",
		Long: `Check every added, copied or modified BUILD file in the index and fail
when one declares the configured rule more than once. Files listed in the
exclude list are skipped.

Examples:
  bazel-hooks single-target
  bazel-hooks single-target --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runSingleTarget(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runSingleTarget(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st := cfg.SingleTarget
	g := guard.New(guard.Options{
		Tree:        st.Tree,
		BuildFile:   st.BuildFile,
		Marker:      st.Marker,
		ExcludeList: st.ExcludeList,
	}, vcs.NewGit(cfg.Git, current.repoRoot), os.DirFS(current.repoRoot), current.logger)

	violations, err := g.Check(ctx)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		if violations == nil {
			violations = []guard.Violation{}
		}
		if err := printJSON(out, map[string]interface{}{"violations": violations}); err != nil {
			return err
		}
	}
	return guard.Err(violations, st.Marker)
}
