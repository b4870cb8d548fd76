// Package config loads the bazel-hooks configuration file.
//
// YAML files are parsed with gopkg.in/yaml.v3. JSON files may contain
// comments and trailing commas: github.com/tidwall/jsonc strips them before
// the standard encoding/json parser runs. In both cases the file is decoded
// on top of Default(), so a config only needs the keys it changes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the repository root when no --config
// flag is given. DefaultJSONFileName is tried next.
const (
	DefaultFileName     = ".bazel-hooks.yaml"
	DefaultJSONFileName = ".bazel-hooks.json"
)

// Generator timeouts: a per-directory run is bounded tighter than a run
// over a whole root.
const (
	DefaultDirTimeout  = Duration(60 * time.Second)
	DefaultRootTimeout = Duration(100 * time.Second)
)

// Config is the full configuration for all four utilities.
type Config struct {
	// Git is the git executable.
	Git string `yaml:"git" json:"git"`

	// Bazel is the bazel executable (bazel or bazelisk).
	Bazel string `yaml:"bazel" json:"bazel"`

	// LogDir receives the captured subprocess output files.
	LogDir string `yaml:"log_dir" json:"log_dir"`

	// Generators lists the BUILD file generators the gazelle command runs,
	// in order.
	Generators []Generator `yaml:"generators" json:"generators"`

	// SingleTarget configures the single-target guard.
	SingleTarget SingleTarget `yaml:"single_target" json:"single_target"`

	// TestPaths configures the test-path consistency checker.
	TestPaths TestPaths `yaml:"test_paths" json:"test_paths"`

	// Affected configures the change-scoped build/test runner.
	Affected Affected `yaml:"affected" json:"affected"`
}

// Generator describes one BUILD file generator and the trees it owns.
type Generator struct {
	// Name keys the capture log file and selects the generator on the
	// command line.
	Name string `yaml:"name" json:"name"`

	// Roots are the watched directory prefixes.
	Roots []string `yaml:"roots" json:"roots"`

	// Target is the bazel label of the generator (e.g. //:gazelle_java).
	Target string `yaml:"target" json:"target"`

	// StaticDirs are always passed to the generator.
	StaticDirs []string `yaml:"static_dirs,omitempty" json:"static_dirs,omitempty"`

	// DirTimeout bounds a per-directory run.
	DirTimeout Duration `yaml:"dir_timeout" json:"dir_timeout"`

	// RootTimeout bounds each full-root run.
	RootTimeout Duration `yaml:"root_timeout" json:"root_timeout"`
}

// SingleTarget configures the guard that allows at most one declaration of
// a rule kind per BUILD file.
type SingleTarget struct {
	// Tree is the watched path prefix.
	Tree string `yaml:"tree" json:"tree"`

	// BuildFile is the BUILD file name to inspect.
	BuildFile string `yaml:"build_file" json:"build_file"`

	// Marker is the declaration text counted in each file.
	Marker string `yaml:"marker" json:"marker"`

	// ExcludeList is a repository-relative file listing exempt BUILD files.
	ExcludeList string `yaml:"exclude_list" json:"exclude_list"`
}

// TestPaths configures the source/test naming convention.
type TestPaths struct {
	// Tree is the watched source path prefix.
	Tree string `yaml:"tree" json:"tree"`

	// SourceRoot is replaced by TestRoot to find a test file.
	SourceRoot string `yaml:"source_root" json:"source_root"`

	// TestRoot is the parallel test tree.
	TestRoot string `yaml:"test_root" json:"test_root"`

	// Suffix is appended to the file stem (Foo -> FooTest).
	Suffix string `yaml:"suffix" json:"suffix"`

	// Extension restricts the check to one source language.
	Extension string `yaml:"extension" json:"extension"`
}

// Affected configures the change-scoped build/test runner.
type Affected struct {
	// BuildFiles are the file names that mark a bazel package.
	BuildFiles []string `yaml:"build_files" json:"build_files"`

	// TestKind is the kind() pattern selecting test rules.
	TestKind string `yaml:"test_kind" json:"test_kind"`
}

// Default returns the configuration the hooks use when no file is present.
func Default() *Config {
	return &Config{
		Git:    "git",
		Bazel:  "bazel",
		LogDir: os.TempDir(),
		Generators: []Generator{
			{
				Name:        "java",
				Roots:       []string{"src/main/java/com/glean"},
				Target:      "//:gazelle_java",
				DirTimeout:  DefaultDirTimeout,
				RootTimeout: DefaultRootTimeout,
			},
		},
		SingleTarget: SingleTarget{
			Tree:        "src/main/java/com/glean/",
			BuildFile:   "BUILD.bazel",
			Marker:      "java_library(",
			ExcludeList: "tools/java_refactor_scripts/exclude_list.txt",
		},
		TestPaths: TestPaths{
			Tree:       "src/main/java/com/glean/",
			SourceRoot: "src/main/java/",
			TestRoot:   "src/test/java/",
			Suffix:     "Test",
			Extension:  ".java",
		},
		Affected: Affected{
			BuildFiles: []string{"BUILD.bazel"},
			TestKind:   "test",
		},
	}
}

// Load reads the configuration at path on top of Default().
//
// When path is empty, DefaultFileName and then DefaultJSONFileName inside
// repoRoot are tried and their absence is not an error. An explicit path
// that does not exist is.
func Load(path, repoRoot string) (*Config, error) {
	if path != "" {
		return load(path)
	}

	for _, name := range []string{DefaultFileName, DefaultJSONFileName} {
		candidate := filepath.Join(repoRoot, name)
		if _, err := os.Stat(candidate); err == nil {
			return load(candidate)
		}
	}
	return Default(), nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := Decode(cfg, data, filepath.Ext(path)); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses data into cfg according to the file extension. Keys absent
// from data keep their current values in cfg.
//
// A generators list in data replaces the current one entirely; generators
// that omit their timeouts get the default ones.
func Decode(cfg *Config, data []byte, ext string) error {
	generators := cfg.Generators
	cfg.Generators = nil

	var err error
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = fmt.Errorf("unsupported config format %q (use .yaml, .yml, .json or .jsonc)", ext)
	}

	if cfg.Generators == nil {
		cfg.Generators = generators
	}
	for i := range cfg.Generators {
		if cfg.Generators[i].DirTimeout == 0 {
			cfg.Generators[i].DirTimeout = DefaultDirTimeout
		}
		if cfg.Generators[i].RootTimeout == 0 {
			cfg.Generators[i].RootTimeout = DefaultRootTimeout
		}
	}
	return err
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var result error

	if c.Git == "" {
		result = multierror.Append(result, errors.New("git must not be empty"))
	}
	if c.Bazel == "" {
		result = multierror.Append(result, errors.New("bazel must not be empty"))
	}
	if c.LogDir == "" {
		result = multierror.Append(result, errors.New("log_dir must not be empty"))
	}

	seen := make(map[string]bool)
	for i, g := range c.Generators {
		if g.Name == "" {
			result = multierror.Append(result, fmt.Errorf("generators[%d]: name must not be empty", i))
		} else if seen[g.Name] {
			result = multierror.Append(result, fmt.Errorf("generators[%d]: duplicate name %q", i, g.Name))
		}
		seen[g.Name] = true
		if len(g.Roots) == 0 {
			result = multierror.Append(result, fmt.Errorf("generators[%d]: at least one root is required", i))
		}
		if g.Target == "" {
			result = multierror.Append(result, fmt.Errorf("generators[%d]: target must not be empty", i))
		}
		if g.DirTimeout <= 0 || g.RootTimeout <= 0 {
			result = multierror.Append(result, fmt.Errorf("generators[%d]: timeouts must be positive", i))
		}
	}

	if c.SingleTarget.BuildFile == "" || c.SingleTarget.Marker == "" {
		result = multierror.Append(result, errors.New("single_target: build_file and marker must not be empty"))
	}

	tp := c.TestPaths
	if tp.SourceRoot == "" || tp.TestRoot == "" || tp.Extension == "" {
		result = multierror.Append(result, errors.New("test_paths: source_root, test_root and extension must not be empty"))
	}
	if tp.SourceRoot != "" && tp.SourceRoot == tp.TestRoot && tp.Suffix == "" {
		result = multierror.Append(result, errors.New("test_paths: a test file cannot share its source's path"))
	}

	if len(c.Affected.BuildFiles) == 0 {
		result = multierror.Append(result, errors.New("affected: at least one build file name is required"))
	}
	if c.Affected.TestKind == "" {
		result = multierror.Append(result, errors.New("affected: test_kind must not be empty"))
	}

	return result
}

// Generator returns the generator with the given name.
func (c *Config) Generator(name string) (Generator, bool) {
	for _, g := range c.Generators {
		if g.Name == name {
			return g, true
		}
	}
	return Generator{}, false
}

// Marshal renders the configuration in the format implied by ext.
func (c *Config) Marshal(ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml", "":
		return yaml.Marshal(c)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
}
