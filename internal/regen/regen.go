// Package regen implements the BUILD file regenerator hook.
//
// Given the staged change set, it runs the configured BUILD file generator
// (gazelle) on the smallest set of directories that can be trusted:
//
//   - When only additions and modifications are staged, the generator runs
//     once over the directories that contain them.
//   - When anything was renamed or deleted, it runs once per watched root,
//     because the directory the file left is not visible in the change set.
//
// All generator output goes to a capture log. A generator failure, a
// timeout, or an error reading the change set fails the hook.
package regen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/shinji-kodama/bazel-hooks/internal/bazel"
	"github.com/shinji-kodama/bazel-hooks/internal/config"
	"github.com/shinji-kodama/bazel-hooks/internal/logging"
	"github.com/shinji-kodama/bazel-hooks/internal/logsink"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// logUtility prefixes the capture log files of this hook.
const logUtility = "gazelle"

// ChangeSource lists the staged changes.
type ChangeSource interface {
	StagedChanges(ctx context.Context) ([]model.ChangedFile, error)
}

// GeneratorRunner runs a BUILD file generator over a list of directories.
type GeneratorRunner interface {
	RunGenerator(ctx context.Context, target string, dirs []string, out io.Writer) error
}

// Regenerator runs each configured generator against the staged changes.
type Regenerator struct {
	generators []config.Generator
	changes    ChangeSource
	runner     GeneratorRunner
	logDir     string
	logger     *zap.Logger
}

// New creates a Regenerator. logDir receives one capture file per
// generator.
func New(generators []config.Generator, changes ChangeSource, runner GeneratorRunner, logDir string, logger *zap.Logger) *Regenerator {
	return &Regenerator{
		generators: generators,
		changes:    changes,
		runner:     runner,
		logDir:     logDir,
		logger:     logging.OrNop(logger),
	}
}

// Outcome describes what one generator did.
type Outcome struct {
	Generator   string       `json:"generator"`
	Mode        Mode         `json:"mode"`
	Invocations []Invocation `json:"invocations"`
	LogPath     string       `json:"logPath"`
}

// Plan computes the invocations for every generator without running them.
func (r *Regenerator) Plan(ctx context.Context) ([]Outcome, error) {
	records, err := r.stagedChanges(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(r.generators))
	for _, gen := range r.generators {
		mode, invocations := Plan(gen, records)
		outcomes = append(outcomes, Outcome{
			Generator:   gen.Name,
			Mode:        mode,
			Invocations: invocations,
			LogPath:     logsink.Path(r.logDir, logUtility, gen.Name),
		})
	}
	return outcomes, nil
}

// Run plans and executes every generator in order, stopping at the first
// failure.
func (r *Regenerator) Run(ctx context.Context) ([]Outcome, error) {
	outcomes, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}

	for i, outcome := range outcomes {
		if len(outcome.Invocations) == 0 {
			r.logger.Info("no directories to regenerate", zap.String("generator", outcome.Generator))
			continue
		}
		if err := r.execute(ctx, r.generators[i], outcome); err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

func (r *Regenerator) stagedChanges(ctx context.Context) ([]model.ChangedFile, error) {
	records, err := r.changes.StagedChanges(ctx)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to get staged changes", err)
	}
	r.logger.Debug("staged changes", zap.Int("count", len(records)),
		zap.Bool("moved_or_deleted", model.AnyMoveOrDelete(records)))
	return records, nil
}

func (r *Regenerator) execute(ctx context.Context, gen config.Generator, outcome Outcome) error {
	logFile, logPath, err := logsink.Create(r.logDir, logUtility, gen.Name)
	if err != nil {
		return model.WrapCLIError(model.ExitFailure, "failed to open gazelle log", err)
	}
	defer func() { _ = logFile.Close() }()

	for _, inv := range outcome.Invocations {
		r.logger.Info("running gazelle",
			zap.String("generator", gen.Name),
			zap.String("mode", string(inv.Mode)),
			zap.Strings("dirs", inv.Dirs),
			zap.Duration("timeout", inv.Timeout))

		runCtx, cancel := context.WithTimeout(ctx, inv.Timeout)
		err := r.runner.RunGenerator(runCtx, gen.Target, inv.Dirs, logFile)
		cancel()

		if err != nil {
			dirs := strings.Join(inv.Dirs, " ")
			if errors.Is(err, bazel.ErrTimeout) {
				return model.WrapCLIError(model.ExitFailure,
					fmt.Sprintf("gazelle %s timed out after %s for directories [%s]; check %s for details",
						gen.Name, inv.Timeout, dirs, logPath), err)
			}
			return model.WrapCLIError(model.ExitFailure,
				fmt.Sprintf("failed to run gazelle %s for directories [%s]; check %s for details",
					gen.Name, dirs, logPath), err)
		}
	}

	r.logger.Info("successfully ran gazelle",
		zap.String("generator", gen.Name),
		zap.String("mode", string(outcome.Mode)))
	return nil
}
