package xbis_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jibx/xbis"
)

func newWriter(t *testing.T) (*xbis.Writer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w := xbis.NewWriter(&buf)
	require.NoError(t, w.Init())
	require.NoError(t, w.WriteXMLDecl("1.0", "utf-8", true))
	return w, &buf
}

// S1: empty document.
func TestWriterEmptyDocument(t *testing.T) {
	w, buf := newWriter(t)
	require.NoError(t, w.Close())
	assert.NotEmpty(t, buf.Bytes())
	assert.Equal(t, []byte("XBIS"), buf.Bytes()[:4])
}

// S2: single empty element decodes as StartTag followed directly by EndTag.
func TestWriterSingleEmptyElement(t *testing.T) {
	w, buf := newWriter(t)
	def := w.InternNamespace("", "")

	require.NoError(t, w.StartTagOpen(def, "a"))
	require.NoError(t, w.CloseEmptyTag())
	require.NoError(t, w.Close())

	r := xbis.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, r.Init())

	ev, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, xbis.StartDocument, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, xbis.StartTag, ev)
	name, err := r.GetName()
	require.NoError(t, err)
	assert.Equal(t, "a", name.Local)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, xbis.EndTag, ev)

	ev, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, xbis.EndDocument, ev)
}

// Writing content into an element must patch its lead byte's
// ElementHasChildrenFlag (exercised indirectly: the first "item" is defined
// by name and gets content, the nested second "item" is written as a handle
// reference, and both must still round-trip).
func TestWriterRepeatedElementNameUsesHandle(t *testing.T) {
	w, buf := newWriter(t)
	def := w.InternNamespace("", "")

	require.NoError(t, w.StartTagOpen(def, "item"))
	require.NoError(t, w.StartTagOpen(def, "item"))
	require.NoError(t, w.CloseEmptyTag())
	require.NoError(t, w.CloseEmptyTag())
	require.NoError(t, w.Close())

	r := xbis.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, r.Init())

	var starts, ends int
	for {
		ev, err := r.Next()
		require.NoError(t, err)
		switch ev {
		case xbis.StartTag:
			starts++
			name, err := r.GetName()
			require.NoError(t, err)
			assert.Equal(t, "item", name.Local)
		case xbis.EndTag:
			ends++
		case xbis.EndDocument:
			assert.Equal(t, 2, starts)
			assert.Equal(t, 2, ends)
			return
		}
	}
}

// S4: attribute value sharing — a repeated long value is written once and
// referenced thereafter.
func TestWriterAttributeValueSharing(t *testing.T) {
	w, buf := newWriter(t)
	def := w.InternNamespace("", "")
	const longValue = "this-value-is-long-enough-to-share"
	require.GreaterOrEqual(t, len(longValue), 6)

	require.NoError(t, w.StartTagOpen(def, "r"))
	for i := 0; i < 10; i++ {
		require.NoError(t, w.StartTagOpen(def, "c"))
		require.NoError(t, w.AddAttribute(def, "x", longValue))
		require.NoError(t, w.CloseEmptyTag())
	}
	require.NoError(t, w.EndTag())
	require.NoError(t, w.Close())

	occurrences := bytes.Count(buf.Bytes(), []byte(longValue))
	assert.Equal(t, 1, occurrences, "long attribute value must appear exactly once on the wire")

	r := xbis.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, r.Init())
	var seen int
	for {
		ev, err := r.Next()
		require.NoError(t, err)
		if ev == xbis.EndDocument {
			break
		}
		if ev != xbis.StartTag {
			continue
		}
		name, _ := r.GetName()
		if name.Local != "c" {
			continue
		}
		n, err := r.GetAttributeCount()
		require.NoError(t, err)
		require.Equal(t, 1, n)
		v, err := r.GetAttributeValue(0)
		require.NoError(t, err)
		assert.Equal(t, longValue, v)
		seen++
	}
	assert.Equal(t, 10, seen)
}

func TestWriterIllegalStateBeforeInit(t *testing.T) {
	var buf bytes.Buffer
	w := xbis.NewWriter(&buf)
	err := w.WriteXMLDecl("1.0", "utf-8", true)
	assert.ErrorIs(t, err, xbis.ErrIllegalState)
}

func TestWriterIllegalStateAddAttributeWithNoOpenTag(t *testing.T) {
	w, _ := newWriter(t)
	err := w.AddAttribute(w.InternNamespace("", ""), "x", "y")
	assert.ErrorIs(t, err, xbis.ErrIllegalState)
}

func TestWriterCloseWithOpenFrameFails(t *testing.T) {
	w, _ := newWriter(t)
	require.NoError(t, w.StartTagOpen(w.InternNamespace("", ""), "a"))
	err := w.Close()
	assert.ErrorIs(t, err, xbis.ErrIllegalState)
}

func TestWriterResetIsIdempotent(t *testing.T) {
	w, _ := newWriter(t)
	def := w.InternNamespace("", "")
	require.NoError(t, w.StartTagOpen(def, "a"))
	require.NoError(t, w.CloseEmptyTag())

	w.Reset()
	w.Reset()

	require.NoError(t, w.Init())
	require.NoError(t, w.WriteXMLDecl("1.0", "utf-8", true))
	require.NoError(t, w.Close())
}

// S6: same local name in two namespaces must receive different element
// handles — exercised by forcing a "new element name" definition for both,
// never a clash.
func TestWriterSameLocalNameDifferentNamespaces(t *testing.T) {
	w, buf := newWriter(t)
	nsA, err := w.BeginNamespaceMapping("a", "urn:a")
	require.NoError(t, err)
	require.NoError(t, w.StartTagOpen(nsA, "v"))
	require.NoError(t, w.CloseEmptyTag())

	nsB, err := w.BeginNamespaceMapping("b", "urn:b")
	require.NoError(t, err)
	require.NoError(t, w.StartTagOpen(nsB, "v"))
	require.NoError(t, w.CloseEmptyTag())
	require.NoError(t, w.Close())

	r := xbis.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, r.Init())
	var uris []string
	for {
		ev, err := r.Next()
		require.NoError(t, err)
		if ev == xbis.EndDocument {
			break
		}
		if ev != xbis.StartTag {
			continue
		}
		ns, err := r.GetNamespace()
		require.NoError(t, err)
		uris = append(uris, ns.URI)
	}
	assert.Equal(t, []string{"urn:a", "urn:b"}, uris)
}
