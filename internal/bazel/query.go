package bazel

import (
	"fmt"
	"path"
	"strings"
)

// Package returns the label of the package rooted at dir ("//dir").
// The workspace root is "//".
func Package(dir string) string {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	return "//" + dir
}

// Universe returns the recursive target pattern for dir ("//dir/...").
func Universe(dir string) string {
	pkg := Package(dir)
	if pkg == "//" {
		return "//..."
	}
	return pkg + "/..."
}

// FileLabel returns the label of a source file relative to the package that
// owns it. file and pkgDir are workspace-relative slash paths, and file must
// live under pkgDir.
//
//	FileLabel("src/main/java/com/glean", "src/main/java/com/glean/util/Foo.java")
//	  == "//src/main/java/com/glean:util/Foo.java"
func FileLabel(pkgDir, file string) (string, error) {
	pkgDir = strings.Trim(path.Clean("/"+pkgDir), "/")
	file = strings.Trim(path.Clean("/"+file), "/")

	rel := file
	if pkgDir != "" {
		prefix := pkgDir + "/"
		if !strings.HasPrefix(file, prefix) {
			return "", fmt.Errorf("file %q is not inside package %q", file, pkgDir)
		}
		rel = strings.TrimPrefix(file, prefix)
	}
	return Package(pkgDir) + ":" + rel, nil
}

// RDeps returns the reverse-dependency query of target within universe.
func RDeps(universe, target string) string {
	return fmt.Sprintf("rdeps(%s, %s)", universe, target)
}

// Kind returns a query that keeps only the rules of expr whose kind matches
// pattern (for example "test").
func Kind(pattern, expr string) string {
	return fmt.Sprintf("kind(%s, %s)", pattern, expr)
}
