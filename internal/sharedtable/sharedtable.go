// Package sharedtable implements the append-only, handle-indexed tables
// XBIS uses to de-duplicate long text runs: the shared-content table for
// character data and the shared-attribute-value table for attribute
// values. Both sides of the codec use the same structure; the writer also
// consults it to avoid re-emitting a string it has already shared.
package sharedtable

import "fmt"

// Handle is a 1-based index into a Table. Handle 0 never appears in a
// Table; it is the wire-format's "not shared" / "new definition" sentinel.
type Handle uint32

// Table is a ring-free, append-only array of strings, bounded in practice
// only by how many distinct values cross the share-depth threshold in a
// document.
type Table struct {
	depth   int
	entries []string
	index   map[string]Handle
}

// New returns an empty Table using depth as the minimum string length (in
// UTF-8 code points... in practice len() on the Go string, i.e. bytes,
// which for the ASCII-heavy wire strings this codec favors is equivalent)
// eligible for sharing.
func New(depth int) *Table {
	return &Table{depth: depth, index: make(map[string]Handle)}
}

// Eligible reports whether s is long enough to be worth sharing.
func (t *Table) Eligible(s string) bool {
	return len(s) >= t.depth
}

// Lookup returns the handle already assigned to s, if any. Used only by
// the writer, to decide between emitting a reference and a new definition.
func (t *Table) Lookup(s string) (Handle, bool) {
	h, ok := t.index[s]
	return h, ok
}

// Append assigns the next handle to s and returns it. Used by the writer
// when sharing a value for the first time, and by the reader for every
// new-definition it decodes (the reader has no need for Lookup: handle
// order is dictated entirely by the byte stream).
func (t *Table) Append(s string) Handle {
	t.entries = append(t.entries, s)
	h := Handle(len(t.entries))
	t.index[s] = h
	return h
}

// Get returns the string at handle h.
func (t *Table) Get(h Handle) (string, error) {
	if h == 0 || int(h) > len(t.entries) {
		return "", fmt.Errorf("sharedtable: handle %d out of range (have %d entries)", h, len(t.entries))
	}
	return t.entries[h-1], nil
}

// Len reports how many values have been shared so far.
func (t *Table) Len() int {
	return len(t.entries)
}

// Reset clears the table back to empty.
func (t *Table) Reset() {
	t.entries = t.entries[:0]
	for k := range t.index {
		delete(t.index, k)
	}
}
