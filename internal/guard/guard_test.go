package guard

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// fakeLister returns a fixed list of staged files and records the filter.
type fakeLister struct {
	files  []string
	err    error
	filter string
}

func (f *fakeLister) StagedFiles(_ context.Context, diffFilter string) ([]string, error) {
	f.filter = diffFilter
	return f.files, f.err
}

const (
	oneLibrary = `load("@rules_java//java:defs.bzl", "java_library")

java_library(
    name = "proxy",
    srcs = glob(["*.java"]),
)
`
	twoLibraries = oneLibrary + `
java_library(
    name = "helpers",
    srcs = ["Helpers.java"],
)
`
)

func defaultOptions() Options {
	return Options{
		Tree:        "src/main/java/com/glean/",
		BuildFile:   "BUILD.bazel",
		Marker:      "java_library(",
		ExcludeList: "tools/java_refactor_scripts/exclude_list.txt",
	}
}

func TestCountMarkers(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{name: "none", content: `java_binary(name = "x")`, want: 0},
		{name: "one", content: oneLibrary, want: 1},
		{name: "two", content: twoLibraries, want: 2},
		{name: "load statement is not a declaration", content: `load("//:defs.bzl", "java_library")`, want: 0},
		// Counting is textual: a commented-out declaration still counts.
		{name: "comment counts", content: oneLibrary + "# java_library(name = \"old\")\n", want: 2},
		{name: "empty", content: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountMarkers(tt.content, "java_library("))
		})
	}
	assert.Equal(t, 0, CountMarkers(twoLibraries, ""))
}

func TestLoadExcludeList(t *testing.T) {
	fsys := fstest.MapFS{
		"exclude.txt": {Data: []byte("src/a/BUILD.bazel\n\n  src/b/BUILD.bazel  \n\t\n")},
	}

	set, err := LoadExcludeList(fsys, "exclude.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a/BUILD.bazel", "src/b/BUILD.bazel"}, set.Sorted())

	missing, err := LoadExcludeList(fsys, "missing.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, missing.Len())

	unset, err := LoadExcludeList(fsys, "")
	require.NoError(t, err)
	assert.Equal(t, 0, unset.Len())
}

// TestCheck verifies the single-target rule: one declaration passes, two or
// more fail unless the file is excluded.
func TestCheck(t *testing.T) {
	fsys := fstest.MapFS{
		"src/main/java/com/glean/one/BUILD.bazel":      {Data: []byte(oneLibrary)},
		"src/main/java/com/glean/two/BUILD.bazel":      {Data: []byte(twoLibraries)},
		"src/main/java/com/glean/excluded/BUILD.bazel": {Data: []byte(twoLibraries)},
		"src/main/java/com/glean/three/BUILD.bazel":    {Data: []byte(twoLibraries + oneLibrary)},
		"src/test/java/com/glean/two/BUILD.bazel":      {Data: []byte(twoLibraries)},
		"src/main/java/com/glean/two/Foo.java":         {Data: []byte("java_library( java_library(")},
		"tools/java_refactor_scripts/exclude_list.txt": {Data: []byte("src/main/java/com/glean/excluded/BUILD.bazel\n")},
	}
	lister := &fakeLister{files: []string{
		"src/main/java/com/glean/one/BUILD.bazel",
		"src/main/java/com/glean/two/BUILD.bazel",
		"src/main/java/com/glean/excluded/BUILD.bazel",
		"src/main/java/com/glean/three/BUILD.bazel",
		"src/test/java/com/glean/two/BUILD.bazel",
		"src/main/java/com/glean/two/Foo.java",
	}}

	g := New(defaultOptions(), lister, fsys, nil)
	violations, err := g.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ACM", lister.filter)
	assert.Equal(t, []Violation{
		{File: "src/main/java/com/glean/two/BUILD.bazel", Count: 2},
		{File: "src/main/java/com/glean/three/BUILD.bazel", Count: 3},
	}, violations)
}

func TestCheck_NoExcludeListFile(t *testing.T) {
	fsys := fstest.MapFS{
		"src/main/java/com/glean/two/BUILD.bazel": {Data: []byte(twoLibraries)},
	}
	lister := &fakeLister{files: []string{"src/main/java/com/glean/two/BUILD.bazel"}}

	violations, err := New(defaultOptions(), lister, fsys, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Len(t, violations, 1)
}

func TestCheck_NothingStaged(t *testing.T) {
	violations, err := New(defaultOptions(), &fakeLister{}, fstest.MapFS{}, nil).Check(context.Background())
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.NoError(t, Err(violations, "java_library("))
}

func TestCheck_ListerError(t *testing.T) {
	_, err := New(defaultOptions(), &fakeLister{err: errors.New("git failed")}, fstest.MapFS{}, nil).Check(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitFailure, cliErr.Code)
}

// TestCheck_UnreadableStagedFile covers a staged path missing from disk,
// which is a hard failure rather than a silent pass.
func TestCheck_UnreadableStagedFile(t *testing.T) {
	lister := &fakeLister{files: []string{"src/main/java/com/glean/gone/BUILD.bazel"}}
	_, err := New(defaultOptions(), lister, fstest.MapFS{}, nil).Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read src/main/java/com/glean/gone/BUILD.bazel")
}

func TestErr(t *testing.T) {
	err := Err([]Violation{
		{File: "src/main/java/com/glean/two/BUILD.bazel", Count: 2},
		{File: "src/main/java/com/glean/three/BUILD.bazel", Count: 3},
	}, "java_library(")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitFailure, cliErr.Code)

	msg := err.Error()
	assert.Contains(t, msg, `2 BUILD file(s) declare more than one "java_library" target`)
	assert.Contains(t, msg, "src/main/java/com/glean/two/BUILD.bazel contains 2 targets")
	assert.Contains(t, msg, "src/main/java/com/glean/three/BUILD.bazel contains 3 targets")
}
