// Package xbis implements the core of a binary XML Information Set (XBIS)
// codec: a compact, self-describing wire representation of XML documents
// that replaces angle-bracket syntax with a tagged-byte stream whose
// elements, attributes, namespaces, and recurring text values are
// handle-compressed against dynamically built dictionaries.
//
// Writer consumes a stream of XML parse events and emits XBIS bytes.
// Reader consumes XBIS bytes and produces the same event stream. The two
// are symmetric: Reader.NextToken/Next's event sequence for a document
// written by Writer reproduces that document's events, up to the
// reconciliations documented on Writer and Reader (namespace declarations
// are absorbed into scope rather than re-emitted as events, and whitespace
// between attributes is never inserted because none was ever recorded).
//
// This package covers the codec's core only: the byte-buffer I/O plumbing
// (internal/window), primitive value/string codec (internal/varint), and
// the per-document dictionaries (internal/nametable, internal/sharedtable,
// internal/nsscope) it is built from. Integration with external
// parser/serializer frameworks, schema binding, and CLI tooling are not
// part of this package.
package xbis
