package bazel

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shinji-kodama/bazel-hooks/internal/command"
)

// DefaultBinary is the bazel executable looked up through PATH.
const DefaultBinary = "bazel"

// ErrTimeout is returned when an invocation exceeds its context deadline.
var ErrTimeout = command.ErrTimeout

// CommandError reports a bazel invocation that ran to completion but
// exited non-zero.
type CommandError struct {
	// Args are the bazel arguments, without the binary.
	Args []string

	// ExitCode is bazel's exit status.
	ExitCode int

	// Output is whatever bazel wrote to stderr, when it was captured.
	Output string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", command.Line("bazel", e.Args...), e.ExitCode)
	if e.Output != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Output)
	}
	return msg
}

// Client invokes bazel in a workspace directory.
type Client struct {
	// Binary is the bazel executable. Empty means DefaultBinary; "bazelisk"
	// is a common alternative.
	Binary string

	// Dir is the workspace directory. Empty means the current directory.
	Dir string
}

// NewClient creates a Client for the workspace at dir.
func NewClient(binary, dir string) *Client {
	return &Client{Binary: binary, Dir: dir}
}

// RunGenerator executes `bazel run <target> -- <dirs...>` and streams both
// output streams to out.
func (c *Client) RunGenerator(ctx context.Context, target string, dirs []string, out io.Writer) error {
	args := append([]string{"run", target, "--"}, dirs...)
	return c.stream(ctx, args, out)
}

// Query evaluates a query expression and returns one target per line of
// output.
func (c *Client) Query(ctx context.Context, expr string) ([]string, error) {
	args := []string{"query", expr}
	result, err := c.exec(ctx, command.Spec{Args: args})
	if err != nil {
		return nil, err
	}
	return command.Lines(result.Stdout), nil
}

// Build executes `bazel build <targets...>`, streaming output to out.
func (c *Client) Build(ctx context.Context, targets []string, out io.Writer) error {
	return c.stream(ctx, append([]string{"build"}, targets...), out)
}

// Test executes `bazel test <targets...>`, streaming output to out.
func (c *Client) Test(ctx context.Context, targets []string, out io.Writer) error {
	return c.stream(ctx, append([]string{"test"}, targets...), out)
}

func (c *Client) stream(ctx context.Context, args []string, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	_, err := c.exec(ctx, command.Spec{Args: args, Stdout: out, Stderr: out})
	return err
}

func (c *Client) exec(ctx context.Context, spec command.Spec) (*command.Result, error) {
	spec.Name = c.Binary
	if spec.Name == "" {
		spec.Name = DefaultBinary
	}
	spec.Dir = c.Dir

	result, err := command.Run(ctx, spec)
	if err == nil {
		return result, nil
	}

	var exitErr *command.ExitError
	if errors.As(err, &exitErr) {
		return result, &CommandError{Args: spec.Args, ExitCode: exitErr.Code, Output: exitErr.Stderr}
	}
	return result, err
}
