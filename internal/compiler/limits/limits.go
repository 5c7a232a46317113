// Package limits centralizes the resource bounds spec §5 requires every
// stage to enforce inline. Keeping them in one place (rather than scattered
// magic numbers per package, as the teacher sometimes does) makes the
// bounds independently documentable and testable.
package limits

const (
	// MaxFenceBytes bounds a single fenced block body (spec §4.1, §5).
	MaxFenceBytes = 1 << 20 // 1 MiB

	// MaxSourceBytes bounds a single source file, main or imported (spec §5).
	MaxSourceBytes = 8 << 20 // 8 MiB

	// MaxLensChain bounds the number of lenses chained onto one value
	// (spec §4.7, §5).
	MaxLensChain = 32

	// MaxImportDepth bounds the import graph depth (spec §4.3, §5).
	MaxImportDepth = 16

	// MaxImportCount bounds the total number of imports in one compilation
	// (spec §4.3, §5).
	MaxImportCount = 256

	// MaxAnchorDepth is a bound for alias substitution recursion. The anchor
	// resolver does not read it; it stops alias cycles by anchor name instead.
	MaxAnchorDepth = 128

	// MaxIndentLevel is a sanity bound on the indentation stack depth; real
	// FACET documents never approach it, but it keeps a pathological input
	// from growing the stack unboundedly.
	MaxIndentLevel = 256
)
