package testsync

import (
	"fmt"
	"strings"
)

// Convention maps a source file to its companion test file and back.
//
// With the Java layout:
//
//	src/main/java/com/glean/Foo.java  <->  src/test/java/com/glean/FooTest.java
type Convention struct {
	// SourceRoot is the prefix of the source tree ("src/main/java/").
	SourceRoot string

	// TestRoot is the prefix of the parallel test tree ("src/test/java/").
	TestRoot string

	// Suffix is appended to the source file stem ("Test").
	Suffix string

	// Extension is the file extension both files share (".java").
	Extension string
}

// Validate reports a convention under which a file would be its own test.
func (c Convention) Validate() error {
	if c.SourceRoot == "" || c.TestRoot == "" || c.Extension == "" {
		return fmt.Errorf("source root, test root and extension are required")
	}
	if c.SourceRoot == c.TestRoot && c.Suffix == "" {
		return fmt.Errorf("source and test paths would be identical")
	}
	return nil
}

// TestPathFor returns the test file for src. It reports false when src is
// not a source file under the convention.
func (c Convention) TestPathFor(src string) (string, bool) {
	if !strings.HasPrefix(src, c.SourceRoot) || !strings.HasSuffix(src, c.Extension) {
		return "", false
	}
	rel := strings.TrimPrefix(src, c.SourceRoot)
	stem := strings.TrimSuffix(rel, c.Extension)
	if stem == "" || strings.HasSuffix(stem, "/") {
		return "", false
	}
	return c.TestRoot + stem + c.Suffix + c.Extension, true
}

// SourcePathFor returns the source file test belongs to. It reports false
// when test does not follow the convention.
func (c Convention) SourcePathFor(test string) (string, bool) {
	if !strings.HasPrefix(test, c.TestRoot) || !strings.HasSuffix(test, c.Suffix+c.Extension) {
		return "", false
	}
	rel := strings.TrimPrefix(test, c.TestRoot)
	stem := strings.TrimSuffix(rel, c.Suffix+c.Extension)
	if stem == "" || strings.HasSuffix(stem, "/") {
		return "", false
	}
	return c.SourceRoot + stem + c.Extension, true
}
