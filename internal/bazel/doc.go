// Package bazel provides the build-tool command interface used by the
// hooks.
//
// The Client runs four command forms:
//
//	bazel run <generator-target> -- <dirs...>
//	bazel query <expression>
//	bazel build <targets...>
//	bazel test <targets...>
//
// query.go builds the label and query expressions the affected-target
// runner needs (package labels, file labels, rdeps and kind filters).
package bazel
