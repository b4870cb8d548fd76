package regen

import (
	"path"
	"strings"
	"time"

	"github.com/shinji-kodama/bazel-hooks/internal/config"
	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

// Mode is the regeneration strategy chosen for a change set.
type Mode string

const (
	// ModeDirectories regenerates only the directories containing changed
	// files.
	ModeDirectories Mode = "directories"

	// ModeFullRoot regenerates every watched root from the top. It is used
	// whenever a file was renamed or deleted, because the directory that
	// lost the file does not show up in the change set.
	ModeFullRoot Mode = "full-root"
)

// Invocation is one generator run.
type Invocation struct {
	// Mode is the strategy this invocation belongs to.
	Mode Mode `json:"mode"`

	// Dirs are passed to the generator after "--".
	Dirs []string `json:"dirs"`

	// Timeout bounds the run.
	Timeout time.Duration `json:"timeout"`
}

// Plan decides how the generator must run for the given staged records.
// It returns no invocations when nothing under the watched roots changed
// and the generator has no static directories.
func Plan(gen config.Generator, records []model.ChangedFile) (Mode, []Invocation) {
	if model.AnyMoveOrDelete(records) {
		invocations := make([]Invocation, 0, len(gen.Roots))
		for _, root := range gen.Roots {
			dirs := append([]string{root}, gen.StaticDirs...)
			invocations = append(invocations, Invocation{
				Mode:    ModeFullRoot,
				Dirs:    dirs,
				Timeout: gen.RootTimeout.Std(),
			})
		}
		return ModeFullRoot, invocations
	}

	dirs := UniqueDirectories(Filter(records, gen.Roots))
	for _, static := range gen.StaticDirs {
		if !contains(dirs, static) {
			dirs = append(dirs, static)
		}
	}
	if len(dirs) == 0 {
		return ModeDirectories, nil
	}
	return ModeDirectories, []Invocation{{
		Mode:    ModeDirectories,
		Dirs:    dirs,
		Timeout: gen.DirTimeout.Std(),
	}}
}

// Filter keeps the records whose post-change path lies under one of roots.
// A root matches itself and anything below it, but not a sibling that
// merely shares its prefix ("src/app" does not match "src/application").
func Filter(records []model.ChangedFile, roots []string) []model.ChangedFile {
	var out []model.ChangedFile
	for _, r := range records {
		for _, root := range roots {
			if underRoot(r.Target(), root) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// UniqueDirectories returns the sorted, deduplicated set of directories
// containing the records' post-change paths.
func UniqueDirectories(records []model.ChangedFile) []string {
	dirs := model.NewSet()
	for _, r := range records {
		dirs.Add(path.Dir(r.Target()))
	}
	return dirs.Sorted()
}

func underRoot(p, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return true
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

func contains(items []string, item string) bool {
	for _, it := range items {
		if it == item {
			return true
		}
	}
	return false
}
