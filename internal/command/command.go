// Package command runs external tools (git, bazel) as synchronous
// subprocesses.
//
// Every invocation is issued and fully awaited before the caller proceeds.
// A caller that needs a wall-clock bound passes a context with a deadline;
// expiry is reported as ErrTimeout rather than as an ordinary exit failure,
// so callers can tell "the tool said no" from "the tool never answered".
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// is killed. Without it a grandchild holding stdout open would keep a
// timed-out hook alive.
const waitDelay = 2 * time.Second

// ErrTimeout is returned when the context deadline expires before the
// command exits.
var ErrTimeout = errors.New("command timed out")

// Spec describes a single subprocess invocation.
type Spec struct {
	// Name is the binary to execute, resolved through PATH.
	Name string

	// Args are the arguments passed to the binary.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Stdout receives standard output. When nil, output is captured into
	// Result.Stdout instead.
	Stdout io.Writer

	// Stderr receives standard error. When nil, it is captured into
	// Result.Stderr instead.
	Stderr io.Writer
}

// Result holds the captured output of a completed command. Captured
// buffers are empty when the caller supplied its own writers.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// ExitError is returned when the command ran but exited non-zero.
type ExitError struct {
	// Command is the rendered command line, for messages.
	Command string

	// Code is the process exit status.
	Code int

	// Stderr is the captured standard error, trimmed. Empty when the caller
	// redirected stderr elsewhere.
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	return msg
}

// Line renders name and args as a single shell-like string.
func Line(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// Run executes spec and waits for it to finish.
//
// On a non-zero exit it returns the Result together with an *ExitError.
// On deadline expiry it returns an error wrapping ErrTimeout. Failure to
// start the binary at all is returned as-is.
func Run(ctx context.Context, spec Spec) (*Result, error) {
	// #nosec G204 -- binary and args come from configuration, not from
	// untrusted input.
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	}
	cmd.Stderr = &stderr
	if spec.Stderr != nil {
		cmd.Stderr = spec.Stderr
	}

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	line := Line(spec.Name, spec.Args...)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.ExitCode = -1
		return result, fmt.Errorf("%s: %w after %s", line, ErrTimeout, result.Duration.Round(time.Millisecond))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{
				Command: line,
				Code:    result.ExitCode,
				Stderr:  strings.TrimSpace(result.Stderr),
			}
		}
		return result, fmt.Errorf("failed to run %s: %w", line, err)
	}

	return result, nil
}

// Lines splits command output into non-blank, trimmed lines.
func Lines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
