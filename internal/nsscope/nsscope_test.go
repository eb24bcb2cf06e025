package nsscope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jibx/xbis/internal/nsscope"
)

func TestTablePreinternsDefaultAndXML(t *testing.T) {
	tbl := nsscope.NewTable()
	assert.Equal(t, 2, tbl.Len())

	empty, err := tbl.At(0)
	assert.NoError(t, err)
	assert.Equal(t, "", empty.Prefix)
	assert.Equal(t, "", empty.URI)

	xmlns, err := tbl.At(1)
	assert.NoError(t, err)
	assert.Equal(t, "xml", xmlns.Prefix)
	assert.Equal(t, "http://www.w3.org/XML/1998/namespace", xmlns.URI)
}

func TestTableInternIsIdempotent(t *testing.T) {
	tbl := nsscope.NewTable()

	ns1, i1 := tbl.Intern("p", "urn:x")
	ns2, i2 := tbl.Intern("p", "urn:x")

	assert.Same(t, ns1, ns2)
	assert.Equal(t, i1, i2)
	assert.Equal(t, 3, tbl.Len())

	_, ok := tbl.Lookup("p", "urn:x")
	assert.True(t, ok)

	_, ok = tbl.Lookup("q", "urn:y")
	assert.False(t, ok)
}

func TestTableReset(t *testing.T) {
	tbl := nsscope.NewTable()
	tbl.Intern("p", "urn:x")
	assert.Equal(t, 3, tbl.Len())

	tbl.Reset()
	assert.Equal(t, 2, tbl.Len())
	_, ok := tbl.Lookup("p", "urn:x")
	assert.False(t, ok)
}

func TestPendingSet(t *testing.T) {
	var p nsscope.PendingSet
	assert.Equal(t, 0, p.Len())

	ns := &nsscope.Namespace{Prefix: "p", URI: "urn:x"}
	p.Add(ns)
	assert.Equal(t, 1, p.Len())

	drained := p.Drain()
	assert.Equal(t, []*nsscope.Namespace{ns}, drained)
	assert.Equal(t, 0, p.Len())
}

func TestScopeOpenCloseSymmetry(t *testing.T) {
	tbl := nsscope.NewTable()
	p, _ := tbl.Intern("p", "urn:x")

	var scope nsscope.Scope
	assert.False(t, p.InScope())

	scope.Open([]*nsscope.Namespace{p})
	assert.True(t, p.InScope())
	assert.Equal(t, 1, scope.Depth())
	assert.Equal(t, []*nsscope.Namespace{p}, scope.Active())

	closed := scope.Close()
	assert.Equal(t, []*nsscope.Namespace{p}, closed)
	assert.False(t, p.InScope())
	assert.Equal(t, 0, scope.Depth())
	assert.Empty(t, scope.Active())
}

func TestScopeNestedFramesCloseInReverseOrder(t *testing.T) {
	tbl := nsscope.NewTable()
	outer, _ := tbl.Intern("o", "urn:o")
	inner, _ := tbl.Intern("i", "urn:i")

	var scope nsscope.Scope
	scope.Open([]*nsscope.Namespace{outer})
	scope.Open([]*nsscope.Namespace{inner})

	assert.True(t, outer.InScope())
	assert.True(t, inner.InScope())
	assert.Equal(t, 2, scope.Depth())

	scope.Close()
	assert.True(t, outer.InScope())
	assert.False(t, inner.InScope())

	scope.Close()
	assert.False(t, outer.InScope())
	assert.Equal(t, 0, scope.Depth())
}
