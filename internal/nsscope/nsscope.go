// Package nsscope implements namespace interning and nesting-scoped
// activation for the XBIS codec. It adapts the teacher's
// internal/stack.Stack — a push/pop stack of per-frame name maps with
// per-entry "used" tracking — to the two namespace bookkeeping jobs this
// spec needs instead of c14n's "what must I re-render" bookkeeping: a
// writer-side pending-declaration accumulator, and a reader/writer-shared
// nesting-scoped activation stack.
package nsscope

import "fmt"

// Namespace is a (prefix, URI) pair, interned once per Table and
// thereafter referred to by pointer identity. The active field is the
// nesting count described in spec.md §3: incremented when an element
// frame opens this namespace's scope, decremented at the matching close.
type Namespace struct {
	Prefix string
	URI    string

	active int
}

// InScope reports whether this namespace is currently active in some open
// element frame.
func (ns *Namespace) InScope() bool {
	return ns != nil && ns.active > 0
}

type key struct{ prefix, uri string }

// Table interns Namespace values by (prefix, URI), assigning each a
// monotonic handle in order of first use. Every Table starts with the two
// pre-interned namespaces spec.md §3 requires at handles 0 and 1.
type Table struct {
	entries []*Namespace
	byKey   map[key]int
	byPtr   map[*Namespace]int
}

// NewTable returns a Table pre-populated with the empty namespace (handle
// 0) and the XML namespace (handle 1).
func NewTable() *Table {
	t := &Table{byKey: make(map[key]int), byPtr: make(map[*Namespace]int)}
	t.Intern("", "")
	t.Intern("xml", "http://www.w3.org/XML/1998/namespace")
	return t
}

// Intern returns the Namespace for (prefix, uri), creating and assigning
// it the next handle if this is the first time the pair has been seen.
func (t *Table) Intern(prefix, uri string) (*Namespace, int) {
	k := key{prefix, uri}
	if i, ok := t.byKey[k]; ok {
		return t.entries[i], i
	}
	ns := &Namespace{Prefix: prefix, URI: uri}
	i := len(t.entries)
	t.entries = append(t.entries, ns)
	t.byKey[k] = i
	t.byPtr[ns] = i
	return ns, i
}

// IndexOf returns the wire index ns was assigned when interned. Used to
// write a namespace reference (for a new element or attribute name
// definition) as a plain value rather than repeating prefix and URI.
func (t *Table) IndexOf(ns *Namespace) (int, bool) {
	i, ok := t.byPtr[ns]
	return i, ok
}

// Lookup returns the Namespace already interned for (prefix, uri), if any,
// without creating a new entry.
func (t *Table) Lookup(prefix, uri string) (*Namespace, bool) {
	i, ok := t.byKey[key{prefix, uri}]
	if !ok {
		return nil, false
	}
	return t.entries[i], true
}

// At returns the Namespace at handle i.
func (t *Table) At(i int) (*Namespace, error) {
	if i < 0 || i >= len(t.entries) {
		return nil, fmt.Errorf("nsscope: namespace index %d out of range (have %d)", i, len(t.entries))
	}
	return t.entries[i], nil
}

// Len reports how many namespaces have been interned, including the two
// pre-interned entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Reset clears the table back to its two pre-interned namespaces.
func (t *Table) Reset() {
	t.entries = nil
	for k := range t.byKey {
		delete(t.byKey, k)
	}
	for k := range t.byPtr {
		delete(t.byPtr, k)
	}
	t.Intern("", "")
	t.Intern("xml", "http://www.w3.org/XML/1998/namespace")
}

// PendingSet accumulates namespaces declared via beginNamespaceMapping
// that have not yet been attached to an element start, exactly the
// "pending array" of spec.md §4.4 step 2.
type PendingSet struct {
	items []*Namespace
}

// Add appends ns to the pending set.
func (p *PendingSet) Add(ns *Namespace) {
	p.items = append(p.items, ns)
}

// Len reports how many namespaces are pending.
func (p *PendingSet) Len() int {
	return len(p.items)
}

// Drain returns the pending namespaces and clears the set, as
// writeElementStart does when it consumes them.
func (p *PendingSet) Drain() []*Namespace {
	items := p.items
	p.items = nil
	return items
}

// Scope is a stack of namespace groups, opened together at an element
// start and closed together — in reverse declaration order — at that
// element's matching end, mirroring the teacher's frame-at-a-time
// Push/Pop discipline in internal/stack.Stack.
type Scope struct {
	frames [][]*Namespace
	active []*Namespace
}

// Open activates nss as a new frame, incrementing each namespace's nesting
// count.
func (s *Scope) Open(nss []*Namespace) {
	for _, ns := range nss {
		ns.active++
	}
	s.frames = append(s.frames, nss)
	s.active = append(s.active, nss...)
}

// Close deactivates the most recently opened frame, decrementing each of
// its namespaces' nesting counts in reverse declaration order, and returns
// the namespaces that were closed.
func (s *Scope) Close() []*Namespace {
	if len(s.frames) == 0 {
		return nil
	}
	n := len(s.frames) - 1
	nss := s.frames[n]
	s.frames = s.frames[:n]
	s.active = s.active[:len(s.active)-len(nss)]
	for i := len(nss) - 1; i >= 0; i-- {
		nss[i].active--
	}
	return nss
}

// Depth reports how many element frames currently have an open namespace
// scope (possibly empty ones).
func (s *Scope) Depth() int {
	return len(s.frames)
}

// Active returns the namespaces currently in scope, outermost first.
func (s *Scope) Active() []*Namespace {
	return s.active
}
