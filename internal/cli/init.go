package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/bazel-hooks/internal/config"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// initFlags holds the flag values for the init command.
type initFlags struct {
	force  bool   // --force: overwrite an existing file
	format string // --format: yaml or json
}

// NewInitCommand creates the "init" cobra command.
func NewInitCommand() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Long: `Write the built-in configuration to the repository root (or to the
--config path) so it can be edited.

Examples:
  bazel-hooks init
  bazel-hooks init --format json
  bazel-hooks init --config tools/hooks.yaml --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite an existing configuration file")
	cmd.Flags().StringVar(&flags.format, "format", "yaml", "File format: yaml or json")

	return cmd
}

func runInit(out io.Writer, flags *initFlags) error {
	path := configPath
	if path == "" {
		switch flags.format {
		case "yaml":
			path = filepath.Join(current.repoRoot, config.DefaultFileName)
		case "json":
			path = filepath.Join(current.repoRoot, config.DefaultJSONFileName)
		default:
			return model.NewCLIError(model.ExitFailure,
				fmt.Sprintf("invalid format %q: valid values are yaml, json", flags.format))
		}
	}

	if !flags.force {
		if _, err := os.Stat(path); err == nil {
			return model.NewCLIError(model.ExitFailure,
				fmt.Sprintf("%s already exists (use --force to overwrite)", path))
		} else if !errors.Is(err, os.ErrNotExist) {
			return model.WrapCLIError(model.ExitFailure, fmt.Sprintf("failed to check %s", path), err)
		}
	}

	data, err := config.Default().Marshal(filepath.Ext(path))
	if err != nil {
		return model.WrapCLIError(model.ExitFailure, "failed to render configuration", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return model.WrapCLIError(model.ExitFailure, "failed to create configuration directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return model.WrapCLIError(model.ExitFailure, fmt.Sprintf("failed to write %s", path), err)
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]string{"path": path})
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
