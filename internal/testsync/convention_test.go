package testsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func javaConvention() Convention {
	return Convention{
		SourceRoot: "src/main/java/",
		TestRoot:   "src/test/java/",
		Suffix:     "Test",
		Extension:  ".java",
	}
}

func TestConvention_TestPathFor(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		want   string
		wantOK bool
	}{
		{
			name:   "top-level class",
			src:    "src/main/java/com/glean/Foo.java",
			want:   "src/test/java/com/glean/FooTest.java",
			wantOK: true,
		},
		{
			name:   "nested package",
			src:    "src/main/java/com/glean/proxy/filters/helpers/CachedNicResolver.java",
			want:   "src/test/java/com/glean/proxy/filters/helpers/CachedNicResolverTest.java",
			wantOK: true,
		},
		{
			// Only the leading root is substituted, not every occurrence.
			name:   "root text repeated deeper in the path",
			src:    "src/main/java/src/main/java/X.java",
			want:   "src/test/java/src/main/java/XTest.java",
			wantOK: true,
		},
		{name: "outside source root", src: "src/test/java/com/glean/FooTest.java"},
		{name: "wrong extension", src: "src/main/java/com/glean/BUILD.bazel"},
		{name: "bare extension", src: "src/main/java/com/glean/.java"},
		{name: "empty", src: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := javaConvention().TestPathFor(tt.src)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvention_SourcePathFor(t *testing.T) {
	c := javaConvention()

	got, ok := c.SourcePathFor("src/test/java/com/glean/FooTest.java")
	assert.True(t, ok)
	assert.Equal(t, "src/main/java/com/glean/Foo.java", got)

	_, ok = c.SourcePathFor("src/test/java/com/glean/TestUtils.java")
	assert.False(t, ok, "files without the suffix are not tests of a source file")

	_, ok = c.SourcePathFor("src/main/java/com/glean/FooTest.java")
	assert.False(t, ok)

	_, ok = c.SourcePathFor("src/test/java/com/glean/Test.java")
	assert.False(t, ok)
}

// TestConvention_RoundTrip verifies that the two directions are inverses.
func TestConvention_RoundTrip(t *testing.T) {
	c := javaConvention()
	for _, src := range []string{
		"src/main/java/com/glean/proxy/ProxyMain.java",
		"src/main/java/com/glean/proxy/metrics/ProxyMetrics.java",
		"src/main/java/Top.java",
	} {
		test, ok := c.TestPathFor(src)
		assert.True(t, ok, src)
		back, ok := c.SourcePathFor(test)
		assert.True(t, ok, test)
		assert.Equal(t, src, back)
	}
}

func TestConvention_Validate(t *testing.T) {
	assert.NoError(t, javaConvention().Validate())

	same := javaConvention()
	same.TestRoot = same.SourceRoot
	assert.NoError(t, same.Validate(), "a suffix keeps paths distinct in a shared tree")

	same.Suffix = ""
	assert.Error(t, same.Validate())

	assert.Error(t, Convention{}.Validate())
}
