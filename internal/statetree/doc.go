// Package statetree owns the replicated element tree.
//
// Ownership boundary:
// - XML fragment parsing and single-line rendering
// - arena storage with (tag, uuid) lookup
// - structural edits (set attribute, insert subtree, detach subtree)
//
// Tag and attribute names are lower-cased on the way in, so lookups by the
// engine's mixed-case identifiers work after strings.ToLower.
package statetree
