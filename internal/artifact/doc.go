// Package artifact defines the canonical in-memory representation of
// content harvested from a conversation export.
//
// An Artifact is one extracted unit (a code block, an SVG, a markdown
// fragment, a diagram source) taken from a single conversation turn.
// Records are value-like: once produced by extraction they are never
// mutated in place; stitching and renaming return new records.
//
// The package also provides Store, a SQLite-backed cache used in serve
// mode to hold records between extraction calls so that fragments of
// one logical artifact split across messages can be stitched later.
//
// Thread Safety: Store is safe for concurrent access. Artifact values
// are plain data and safe to share once constructed.
package artifact
