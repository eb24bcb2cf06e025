package xbis

import (
	"io"

	"github.com/jibx/xbis/internal/nametable"
	"github.com/jibx/xbis/internal/nsscope"
	"github.com/jibx/xbis/internal/sharedtable"
	"github.com/jibx/xbis/internal/varint"
	"github.com/jibx/xbis/internal/window"
)

// writerState tracks the writer's position in the IDLE -> IN_DOCUMENT ->
// CLOSED progression of spec.md §4.4. The element sub-states
// (IN_ELEMENT_OPEN / IN_ELEMENT_ATTRS / IN_ELEMENT_CONTENT) live in the
// writerFrame stack instead of a single field, since they're per-frame.
type writerState int

const (
	writerCreated writerState = iota
	writerIdle
	writerInDocument
	writerClosed
)

// writerFrame is the "writer element frame" of spec.md §3: the mark offset
// of the element's lead byte, the byte's value as last written (so a patch
// can OR in a newly-observed flag instead of reconstructing it), and
// whether the attribute list and the content mark are still open.
type writerFrame struct {
	mark      window.Mark
	lead      byte
	markOpen  bool
	attrsOpen bool
}

// Writer encodes a stream of XML parse events as XBIS bytes. It is not
// safe for concurrent use; a Writer returned by CreateChildWriter shares
// its parent's underlying byte writer and the two MUST NOT be driven
// concurrently (spec.md §5).
type Writer struct {
	win *window.Writer

	nsTable *nsscope.Table
	pending nsscope.PendingSet
	scope   nsscope.Scope

	elemNames *nametable.WriterTable
	attrNames *nametable.WriterTable

	sharedContent *sharedtable.Table
	sharedAttr    *sharedtable.Table
	shareDepth    int

	frames []writerFrame
	state  writerState
}

// NewWriter returns a Writer that writes XBIS bytes to w. Callers must
// call Init and WriteXMLDecl before any element or content method.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		win:           window.NewWriter(w),
		nsTable:       nsscope.NewTable(),
		elemNames:     nametable.NewWriterTable(),
		attrNames:     nametable.NewWriterTable(),
		sharedContent: sharedtable.New(shareDepth),
		sharedAttr:    sharedtable.New(shareDepth),
		shareDepth:    shareDepth,
	}
}

// Init writes the stream header (magic, source id, share-depth capability
// byte). It must be called exactly once, before WriteXMLDecl.
func (w *Writer) Init() error {
	if w.state != writerCreated {
		return illegalStatef("init called more than once")
	}
	if _, err := w.win.Write(magic); err != nil {
		return err
	}
	if err := w.win.WriteByte(jibxSourceID); err != nil {
		return err
	}
	if err := w.win.WriteByte(byte(w.shareDepth)); err != nil {
		return err
	}
	w.state = writerIdle
	return nil
}

// WriteXMLDecl emits the document-start node. version, encoding, and
// standalone are accepted for surface parity with the external writer
// interface of spec.md §6 but carry no wire representation: the XBIS core
// records only that a document began, not its declared encoding.
func (w *Writer) WriteXMLDecl(version, encoding string, standalone bool) error {
	if w.state != writerIdle {
		return illegalStatef("writeXMLDecl called outside idle state")
	}
	if err := w.win.WriteByte(nodeTypeDocument); err != nil {
		return err
	}
	w.state = writerInDocument
	return nil
}

// InternNamespace resolves (prefix, uri) to a Namespace, interning it if
// this is the first use, without adding it to the pending-declaration set.
// Use this for a namespace already known to be in scope (the pre-interned
// default and XML namespaces, or one declared earlier in the document);
// use BeginNamespaceMapping to declare a namespace on the wire.
func (w *Writer) InternNamespace(prefix, uri string) *Namespace {
	ns, _ := w.nsTable.Intern(prefix, uri)
	return ns
}

// BeginNamespaceMapping resolves/interns (prefix, uri) and appends it to
// the pending set (spec.md §4.4 step 2). Pending namespaces are emitted as
// declaration records and brought into scope by the next StartTagOpen.
func (w *Writer) BeginNamespaceMapping(prefix, uri string) (*Namespace, error) {
	if w.state != writerInDocument {
		return nil, illegalStatef("beginNamespaceMapping called outside document state")
	}
	ns, _ := w.nsTable.Intern(prefix, uri)
	w.pending.Add(ns)
	return ns, nil
}

// SetNamespaceURIs interns one namespace per URI with an empty prefix (the
// XML namespace URI with the "xml" prefix) and returns the resulting slice
// in order, mirroring the "uris[]" table of spec.md §6 (uris[0] is always
// the empty namespace, uris[1] the XML namespace, so both resolve to a
// fresh Writer's pre-interned entries).
func (w *Writer) SetNamespaceURIs(uris []string) []*Namespace {
	out := make([]*Namespace, len(uris))
	for i, uri := range uris {
		prefix := ""
		if uri == XMLNamespaceURI {
			prefix = XMLNamespacePrefix
		}
		out[i] = w.InternNamespace(prefix, uri)
	}
	return out
}

// beforeChildContent closes the innermost frame's open attribute list (if
// any) and, if that frame's lead byte is still unpatched, patches it to
// set ElementHasChildrenFlag. Every writer method that appends a
// document-child or element-child node calls this first, implementing the
// deferred content-flag back-patch of spec.md §4.4 "why".
func (w *Writer) beforeChildContent() error {
	if w.state != writerInDocument {
		return illegalStatef("write called outside document state")
	}
	if len(w.frames) == 0 {
		return nil
	}
	f := &w.frames[len(w.frames)-1]
	if f.attrsOpen {
		if err := w.win.WriteByte(endOfList); err != nil {
			return err
		}
		f.attrsOpen = false
	}
	if f.markOpen {
		f.lead |= elementHasChildrenFlag
		if err := w.win.Patch(f.mark, f.lead); err != nil {
			return err
		}
		f.markOpen = false
	}
	return nil
}

func (w *Writer) writeNamespaceDecl(ns *Namespace) error {
	if err := w.win.WriteByte(nodeNamespaceDeclFlag); err != nil {
		return err
	}
	if err := varint.WriteString(w.win, ns.Prefix); err != nil {
		return err
	}
	return varint.WriteString(w.win, ns.URI)
}

// StartTagOpen begins an element in namespace ns named local. Attributes
// may follow via AddAttribute; CloseStartTag or CloseEmptyTag ends the
// open-tag phase.
func (w *Writer) StartTagOpen(ns *Namespace, local string) error {
	if err := w.beforeChildContent(); err != nil {
		return err
	}

	pendingNS := w.pending.Drain()
	for _, pns := range pendingNS {
		if err := w.writeNamespaceDecl(pns); err != nil {
			return err
		}
	}
	w.scope.Open(pendingNS)

	var lead byte
	var mark window.Mark
	if handle, ok := w.elemNames.Lookup(ns, local); ok {
		var overflow bool
		lead, overflow = varint.EncodeQuick(nodeElementFlag, elementHandleMask, uint64(handle))
		if err := w.win.WriteByte(lead); err != nil {
			return err
		}
		mark = w.win.MarkLast()
		if overflow {
			if err := varint.WriteValue(w.win, uint64(handle)>>(elementHandleMask.Bits-1)); err != nil {
				return err
			}
		}
	} else {
		lead = nodeElementFlag | elementNewNameFlag
		if err := w.win.WriteByte(lead); err != nil {
			return err
		}
		mark = w.win.MarkLast()
		nsIdx, ok := w.nsTable.IndexOf(ns)
		if !ok {
			return illegalStatef("startTagOpen: namespace not interned by this writer")
		}
		if err := varint.WriteValue(w.win, uint64(nsIdx)); err != nil {
			return err
		}
		if err := varint.WriteString(w.win, local); err != nil {
			return err
		}
		w.elemNames.Define(ns, local)
	}

	w.frames = append(w.frames, writerFrame{mark: mark, lead: lead, markOpen: true})
	return nil
}

// StartTagNamespaces declares nss (with the given prefixes) and opens an
// element in namespace ns named local, in one call. It is equivalent to
// one BeginNamespaceMapping per (prefix, namespace URI) pair followed by
// StartTagOpen.
func (w *Writer) StartTagNamespaces(ns *Namespace, local string, nss []*Namespace, prefixes []string) error {
	for i, declared := range nss {
		prefix := declared.Prefix
		if i < len(prefixes) {
			prefix = prefixes[i]
		}
		if _, err := w.BeginNamespaceMapping(prefix, declared.URI); err != nil {
			return err
		}
	}
	return w.StartTagOpen(ns, local)
}

// AddAttribute appends one attribute record to the currently open start
// tag. It must be called after StartTagOpen and before CloseStartTag or
// CloseEmptyTag.
func (w *Writer) AddAttribute(ns *Namespace, local, value string) error {
	if w.state != writerInDocument || len(w.frames) == 0 {
		return illegalStatef("addAttribute called with no open start tag")
	}
	f := &w.frames[len(w.frames)-1]
	if !f.attrsOpen {
		f.lead |= elementHasAttributesFlag
		if err := w.win.Patch(f.mark, f.lead); err != nil {
			return err
		}
		f.attrsOpen = true
	}

	nameHandle, nameKnown := w.attrNames.Lookup(ns, local)
	shareable := len(value) >= w.shareDepth
	valueHandle, valueShared := sharedtable.Handle(0), false
	if shareable {
		valueHandle, valueShared = w.sharedAttr.Lookup(value)
	}

	var flags byte
	if valueShared {
		flags |= attributeValueRefFlag
	}
	if !nameKnown {
		flags |= attributeNewRefFlag
	}

	quickVal := uint64(0)
	if nameKnown {
		quickVal = uint64(nameHandle)
	}
	lead, overflow := varint.EncodeQuick(flags, attributeHandleMask, quickVal)
	if err := w.win.WriteByte(lead); err != nil {
		return err
	}
	if nameKnown && overflow {
		if err := varint.WriteValue(w.win, quickVal>>(attributeHandleMask.Bits-1)); err != nil {
			return err
		}
	}
	if !nameKnown {
		nsIdx, ok := w.nsTable.IndexOf(ns)
		if !ok {
			return illegalStatef("addAttribute: namespace not interned by this writer")
		}
		if err := varint.WriteValue(w.win, uint64(nsIdx)); err != nil {
			return err
		}
		if err := varint.WriteString(w.win, local); err != nil {
			return err
		}
		w.attrNames.Define(ns, local)
	}

	if valueShared {
		return varint.WriteValue(w.win, uint64(valueHandle))
	}
	if err := varint.WriteString(w.win, value); err != nil {
		return err
	}
	if shareable {
		w.sharedAttr.Append(value)
	}
	return nil
}

// CloseStartTag terminates the open attribute list, if any, readying the
// element for content or an immediate EndTag.
func (w *Writer) CloseStartTag() error {
	if len(w.frames) == 0 {
		return illegalStatef("closeStartTag called with no open start tag")
	}
	f := &w.frames[len(w.frames)-1]
	if f.attrsOpen {
		if err := w.win.WriteByte(endOfList); err != nil {
			return err
		}
		f.attrsOpen = false
	}
	return nil
}

// CloseEmptyTag closes the attribute list (if open) and immediately ends
// the element, asserting that it has no content.
func (w *Writer) CloseEmptyTag() error {
	if err := w.CloseStartTag(); err != nil {
		return err
	}
	return w.EndTag()
}

// EndTag closes the innermost open element: terminates its attribute list
// if still open, terminates its child list with the universal 0 byte, and
// closes the namespaces that were brought into scope at its start.
func (w *Writer) EndTag() error {
	if len(w.frames) == 0 {
		return illegalStatef("endTag called with no open element")
	}
	f := w.frames[len(w.frames)-1]
	if f.attrsOpen {
		if err := w.win.WriteByte(endOfList); err != nil {
			return err
		}
	}
	if err := w.win.WriteByte(endOfList); err != nil {
		return err
	}
	w.frames = w.frames[:len(w.frames)-1]
	w.scope.Close()
	return nil
}

// WriteTextContent emits character data, using the shared-content table
// when s is at least shareDepth long (spec.md §8 property 8).
func (w *Writer) WriteTextContent(s string) error {
	if err := w.beforeChildContent(); err != nil {
		return err
	}
	if len(s) < w.shareDepth {
		if err := w.win.WriteByte(nodePlainTextFlag); err != nil {
			return err
		}
		return varint.WriteString(w.win, s)
	}
	if h, ok := w.sharedContent.Lookup(s); ok {
		lead, overflow := varint.EncodeQuick(nodeTextRefFlag, textRefHandleMask, uint64(h))
		if err := w.win.WriteByte(lead); err != nil {
			return err
		}
		if overflow {
			return varint.WriteValue(w.win, uint64(h)>>(textRefHandleMask.Bits-1))
		}
		return nil
	}
	lead, _ := varint.EncodeQuick(nodeTextRefFlag, textRefHandleMask, 0)
	if err := w.win.WriteByte(lead); err != nil {
		return err
	}
	if err := varint.WriteString(w.win, s); err != nil {
		return err
	}
	w.sharedContent.Append(s)
	return nil
}

// WriteCData emits a CDATA section. Unlike text content, CDATA is always
// written inline: spec.md §4.5's reader table never treats a CDATA payload
// as shareable.
func (w *Writer) WriteCData(s string) error {
	if err := w.beforeChildContent(); err != nil {
		return err
	}
	if err := w.win.WriteByte(nodeTypeCDATA); err != nil {
		return err
	}
	return varint.WriteString(w.win, s)
}

// WriteComment emits a comment node.
func (w *Writer) WriteComment(s string) error {
	return w.writeDiscrete(nodeTypeComment, s)
}

// writeDiscrete handles every discrete node kind whose record is simply a
// type byte followed by a fixed number of inline strings.
func (w *Writer) writeDiscrete(nodeType byte, strs ...string) error {
	if err := w.beforeChildContent(); err != nil {
		return err
	}
	if err := w.win.WriteByte(nodeType); err != nil {
		return err
	}
	for _, s := range strs {
		if err := varint.WriteString(w.win, s); err != nil {
			return err
		}
	}
	return nil
}

// WriteNotation emits a notation declaration (name, public id, system id).
func (w *Writer) WriteNotation(name, publicID, systemID string) error {
	return w.writeDiscrete(nodeTypeNotation, name, publicID, systemID)
}

// WriteExternalEntityDecl emits an external entity declaration (name,
// public id, system id).
func (w *Writer) WriteExternalEntityDecl(name, publicID, systemID string) error {
	return w.writeDiscrete(nodeTypeExternalEntityDecl, name, publicID, systemID)
}

// WriteElementDecl emits a DTD element declaration (name, content model).
func (w *Writer) WriteElementDecl(name, contentModel string) error {
	return w.writeDiscrete(nodeTypeElementDecl, name, contentModel)
}

// WriteSkippedEntity emits a skipped-entity marker.
func (w *Writer) WriteSkippedEntity(name string) error {
	return w.writeDiscrete(nodeTypeSkippedEntity, name)
}

// WriteUnparsedEntity emits an unparsed entity declaration (name, public
// id, system id, notation name).
func (w *Writer) WriteUnparsedEntity(name, publicID, systemID, notationName string) error {
	return w.writeDiscrete(nodeTypeUnparsedEntity, name, publicID, systemID, notationName)
}

// WriteAttributeDecl emits a DTD attribute-list declaration entry (element
// name, attribute name, attribute type, default-value mode, default
// value).
func (w *Writer) WriteAttributeDecl(elementName, attrName, attrType, defaultDecl, defaultValue string) error {
	return w.writeDiscrete(nodeTypeAttributeDecl, elementName, attrName, attrType, defaultDecl, defaultValue)
}

// WriteEntityRef is not implemented by this codec's event surface.
func (w *Writer) WriteEntityRef(name string) error {
	return ErrUnsupportedOperation
}

// WriteDocType is not implemented by this codec's event surface.
func (w *Writer) WriteDocType(name, publicID, systemID string) error {
	return ErrUnsupportedOperation
}

// WritePI is not implemented by this codec's event surface.
func (w *Writer) WritePI(target, data string) error {
	return ErrUnsupportedOperation
}

// Flush writes any buffered bytes to the underlying io.Writer.
func (w *Writer) Flush() error {
	return w.win.Flush()
}

// Close emits the document-end terminator and flushes. All element frames
// must already be closed.
func (w *Writer) Close() error {
	if w.state != writerInDocument {
		return illegalStatef("close called outside document state")
	}
	if len(w.frames) != 0 {
		return illegalStatef("close called with %d open element frame(s)", len(w.frames))
	}
	if err := w.win.WriteByte(endOfList); err != nil {
		return err
	}
	if err := w.win.Flush(); err != nil {
		return err
	}
	w.state = writerClosed
	return nil
}

// Reset clears all per-document dictionaries and scope state, returning
// the Writer to its pre-Init state against the same underlying byte
// writer. Two consecutive Resets, or a Reset on a fresh Writer, are
// no-ops beyond reallocating the (already empty) tables.
func (w *Writer) Reset() {
	w.nsTable = nsscope.NewTable()
	w.pending = nsscope.PendingSet{}
	w.scope = nsscope.Scope{}
	w.elemNames.Reset()
	w.attrNames.Reset()
	w.sharedContent.Reset()
	w.sharedAttr.Reset()
	w.frames = nil
	w.state = writerCreated
}

// CreateChildWriter returns a new Writer sharing this Writer's underlying
// byte writer but with its own dictionaries, pre-populated with one
// namespace per entry in uris, as SetNamespaceURIs does. The parent and the child
// MUST NOT be driven concurrently (spec.md §5).
func (w *Writer) CreateChildWriter(uris []string) *Writer {
	child := &Writer{
		win:           w.win,
		nsTable:       nsscope.NewTable(),
		elemNames:     nametable.NewWriterTable(),
		attrNames:     nametable.NewWriterTable(),
		sharedContent: sharedtable.New(w.shareDepth),
		sharedAttr:    sharedtable.New(w.shareDepth),
		shareDepth:    w.shareDepth,
	}
	child.SetNamespaceURIs(uris)
	return child
}
