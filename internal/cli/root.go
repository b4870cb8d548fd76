// Package cli implements the cobra-based CLI commands for bazel-hooks.
//
// Each subcommand (gazelle, single-target, test-paths, affected, init) is
// defined in its own file within this package. This file defines the root
// command that serves as the parent for all subcommands and handles global
// flags, logging and configuration.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/config"
	"github.com/shinji-kodama/bazel-hooks/internal/logging"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
	"github.com/shinji-kodama/bazel-hooks/internal/vcs"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// configPath is the --config flag. Empty means the default file in the
	// repository root.
	configPath string

	// repoDir is the --repo flag: any directory inside the repository.
	repoDir string
)

// Version, Commit and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// env is the per-invocation state built by the root command before any
// subcommand runs.
type env struct {
	logger   *zap.Logger
	repoRoot string
}

var current = &env{logger: logging.Nop()}

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. It provides help
// text, global flags and the logger; the hooks are subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bazel-hooks",
		Short: "Pre-commit hooks for Bazel monorepos",
		Long: `bazel-hooks keeps a Bazel monorepo consistent at commit time.

  gazelle        regenerate BUILD files for the staged changes
  single-target  allow at most one library target per staged BUILD file
  test-paths     fail when a renamed or deleted source leaves its test behind
  affected       build and test the targets that depend on the changes

Each command exits 0 when the commit may proceed and 1 otherwise.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			current.logger = logging.New(cmd.ErrOrStderr(), verbose)
			root, err := resolveRepoRoot(cmd.Context(), repoDir)
			if err != nil {
				return err
			}
			current.repoRoot = root
			current.logger.Debug("resolved repository", zap.String("root", root))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = current.logger.Sync()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: "+config.DefaultFileName+" or "+config.DefaultJSONFileName+" in the repository root)")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", "", "Repository directory (default: current directory)")

	rootCmd.AddCommand(NewGazelleCommand())
	rootCmd.AddCommand(NewSingleTargetCommand())
	rootCmd.AddCommand(NewTestPathsCommand())
	rootCmd.AddCommand(NewAffectedCommand())
	rootCmd.AddCommand(NewInitCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// CLIError types carry their own exit codes; other errors default to
// exit code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
			os.Exit(int(cliErr.Code))
		}

		printError(os.Stderr, err.Error(), nil)
		os.Exit(int(model.ExitFailure))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode; stdout is reserved for
		// command results.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitFailure, "failed to encode JSON output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// resolveRepoRoot returns the top of the working tree containing dir. When
// dir is not inside a git repository, dir itself is used so that init can
// run before the repository exists.
func resolveRepoRoot(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", model.WrapCLIError(model.ExitFailure, "failed to get current directory", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", model.WrapCLIError(model.ExitFailure, "failed to resolve repository directory", err)
	}

	root, err := vcs.NewGit(vcs.DefaultBinary, abs).RepoRoot(ctx)
	if err != nil {
		current.logger.Debug("not inside a git repository", zap.String("dir", abs), zap.Error(err))
		return abs, nil
	}
	return root, nil
}

// loadConfig reads the configuration for the current repository.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath, current.repoRoot)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to load configuration", err)
	}
	return cfg, nil
}
