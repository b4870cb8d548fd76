package testsync

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/bazel-hooks/internal/model"
)

type fakeStatus struct {
	records []model.ChangedFile
	err     error
}

func (f *fakeStatus) WorkingTreeStatus(context.Context) ([]model.ChangedFile, error) {
	return f.records, f.err
}

const tree = "src/main/java/com/glean/"

func newChecker(records []model.ChangedFile, fsys fstest.MapFS) *Checker {
	return New(javaConvention(), tree, &fakeStatus{records: records}, fsys, nil)
}

func renamed(oldPath, newPath string) model.ChangedFile {
	return model.ChangedFile{Status: model.StatusRenamed, Path: oldPath, NewPath: newPath}
}

func deleted(p string) model.ChangedFile {
	return model.ChangedFile{Status: model.StatusDeleted, Path: p}
}

// TestCheck_RenameWithStaleTest is the canonical case: Foo.java renamed to
// Bar.java while FooTest.java stays behind.
func TestCheck_RenameWithStaleTest(t *testing.T) {
	fsys := fstest.MapFS{
		"src/test/java/com/glean/FooTest.java": {Data: []byte("class FooTest {}")},
	}
	c := newChecker([]model.ChangedFile{
		renamed("src/main/java/com/glean/Foo.java", "src/main/java/com/glean/Bar.java"),
	}, fsys)

	report, err := c.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, []Inconsistency{{
		Kind:      KindRename,
		Source:    "src/main/java/com/glean/Foo.java",
		NewSource: "src/main/java/com/glean/Bar.java",
		Test:      "src/test/java/com/glean/FooTest.java",
		NewTest:   "src/test/java/com/glean/BarTest.java",
	}}, report.Inconsistencies)

	msg := report.String()
	assert.Contains(t, msg, "From: src/main/java/com/glean/Foo.java")
	assert.Contains(t, msg, "To: src/main/java/com/glean/Bar.java")
	assert.Contains(t, msg, "But test file still exists at old location: src/test/java/com/glean/FooTest.java")
	assert.Contains(t, msg, "git mv src/test/java/com/glean/FooTest.java src/test/java/com/glean/BarTest.java")
}

func TestCheck_RenameWithoutTest(t *testing.T) {
	c := newChecker([]model.ChangedFile{
		renamed("src/main/java/com/glean/Foo.java", "src/main/java/com/glean/Bar.java"),
	}, fstest.MapFS{})

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Checked)
	assert.Empty(t, report.String())
}

// TestCheck_RenameWithTestMovedToo verifies that moving the test along
// with its source is consistent.
func TestCheck_RenameWithTestMovedToo(t *testing.T) {
	fsys := fstest.MapFS{
		"src/test/java/com/glean/BarTest.java": {Data: []byte("class BarTest {}")},
	}
	c := newChecker([]model.ChangedFile{
		renamed("src/main/java/com/glean/Foo.java", "src/main/java/com/glean/Bar.java"),
		renamed("src/test/java/com/glean/FooTest.java", "src/test/java/com/glean/BarTest.java"),
	}, fsys)

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, 1, report.Checked, "test tree renames are outside the watched tree")
}

func TestCheck_DeleteWithStaleTest(t *testing.T) {
	fsys := fstest.MapFS{
		"src/test/java/com/glean/proxy/GoneTest.java": {Data: []byte("")},
	}
	c := newChecker([]model.ChangedFile{deleted("src/main/java/com/glean/proxy/Gone.java")}, fsys)

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Inconsistency{{
		Kind:   KindDelete,
		Source: "src/main/java/com/glean/proxy/Gone.java",
		Test:   "src/test/java/com/glean/proxy/GoneTest.java",
	}}, report.Inconsistencies)
	assert.Contains(t, report.String(), "Source file deleted: src/main/java/com/glean/proxy/Gone.java")
	assert.Contains(t, report.String(), "But test file still exists: src/test/java/com/glean/proxy/GoneTest.java")
}

func TestCheck_DeleteWithoutTest(t *testing.T) {
	c := newChecker([]model.ChangedFile{deleted("src/main/java/com/glean/proxy/Gone.java")}, fstest.MapFS{})

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK())
}

// TestCheck_IgnoresUnqualifiedRecords verifies that additions, other trees,
// and other extensions are not counted.
func TestCheck_IgnoresUnqualifiedRecords(t *testing.T) {
	fsys := fstest.MapFS{
		"src/test/java/com/other/FooTest.java": {Data: []byte("")},
	}
	c := newChecker([]model.ChangedFile{
		{Status: model.StatusModified, Path: "src/main/java/com/glean/Foo.java"},
		{Status: model.StatusAdded, Path: "src/main/java/com/glean/New.java"},
		deleted("src/main/java/com/other/Foo.java"),
		deleted("src/main/java/com/glean/BUILD.bazel"),
	}, fsys)

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Checked)
	assert.True(t, report.OK())
}

func TestCheck_MultipleInconsistencies(t *testing.T) {
	fsys := fstest.MapFS{
		"src/test/java/com/glean/ATest.java": {Data: []byte("")},
		"src/test/java/com/glean/BTest.java": {Data: []byte("")},
	}
	c := newChecker([]model.ChangedFile{
		renamed("src/main/java/com/glean/A.java", "src/main/java/com/glean/x/A.java"),
		deleted("src/main/java/com/glean/B.java"),
		deleted("src/main/java/com/glean/C.java"),
	}, fsys)

	report, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	require.Len(t, report.Inconsistencies, 2)
	assert.Equal(t, KindRename, report.Inconsistencies[0].Kind)
	assert.Equal(t, KindDelete, report.Inconsistencies[1].Kind)
}

func TestCheck_StatusError(t *testing.T) {
	c := New(javaConvention(), tree, &fakeStatus{err: errors.New("boom")}, fstest.MapFS{}, nil)

	_, err := c.Check(context.Background())
	require.Error(t, err)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitFailure, cliErr.Code)
}
