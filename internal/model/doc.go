// Package model defines the domain types and value objects for the
// bazel-hooks CLI.
//
// This package contains pure data structures with no external dependencies.
// ChangedFile records are parsed from git output, Set holds the derived
// directory and target sets, and both are rebuilt from scratch on every
// invocation.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
