// Package logsink manages the files that capture subprocess output.
//
// Each utility writes the full output of the tools it runs to a predictable
// file so a failure message can point the operator at it. The directory is
// configuration, not a constant, so concurrent test runs do not share files.
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
)

// Path returns the capture file for a utility and an optional component name:
//
//	Path("/tmp", "gazelle", "java") == "/tmp/gazelle_java_output.log"
//	Path("/tmp", "guard", "")       == "/tmp/guard_output.log"
func Path(dir, utility, name string) string {
	base := utility
	if name != "" {
		base = utility + "_" + name
	}
	return filepath.Join(dir, base+"_output.log")
}

// Create truncates or creates the capture file and returns it with its path.
// The directory is created if missing.
func Create(dir, utility, name string) (*os.File, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	path := Path(dir, utility, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	return f, path, nil
}
