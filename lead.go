package xbis

import "github.com/jibx/xbis/internal/varint"

// Lead-byte bit layout.
//
// spec.md §6 lists nine flag symbols "high to low bits within the first
// lead byte", which cannot all be distinct bits of one 8-bit byte at the
// same time — and doesn't need to be, since §4.3 classifies a byte's
// *kind* from its highest set bit before any lower bit is interpreted.
// This implementation reuses bit positions across the three lead-byte
// kinds (document-child/element-child, element, attribute), exactly the
// way §4.3's "flag families disjoint at the top level, checked in order"
// permits. spec.md §6 leaves the exact positions to the implementation
// ("both sides share the constants"); Non-goals explicitly excludes
// compatibility with any external binary-XML encoding, so there is no
// reference bit layout to match.
//
// Top-level node-kind flags (meaningful on any document-child or
// element-child byte, checked in this order before anything else):
const (
	nodeElementFlag       byte = 1 << 7
	nodePlainTextFlag     byte = 1 << 6
	nodeTextRefFlag       byte = 1 << 5
	nodeNamespaceDeclFlag byte = 1 << 4
)

// Element lead byte: bit 7 is nodeElementFlag (always set); the remaining
// bits are element-specific and only interpreted once bit 7 identifies the
// byte as an element record.
const (
	elementHasAttributesFlag byte = 1 << 6
	elementHasChildrenFlag   byte = 1 << 5
	elementNewNameFlag       byte = 1 << 4
)

// elementHandleMask is the quick-value field for an element-handle
// reference, occupying the low 4 bits of an element lead byte and
// meaningful only when elementNewNameFlag is clear: 3 data bits plus the
// quick-value format's own "more data follows" bit (spec.md §4.1).
var elementHandleMask = varint.Mask{Shift: 0, Bits: 4}

// Attribute record lead byte: bit 7 is attributeValueRefFlag, bit 6 is
// attributeNewRefFlag; neither collides with the top-level flags above
// because an attribute lead byte only ever appears inside an attribute
// list (§4.4 step 4), never at a document-child or element-child
// position.
const (
	attributeValueRefFlag byte = 1 << 7
	attributeNewRefFlag   byte = 1 << 6
)

// attributeHandleMask is the quick-value field for an attribute-name
// handle reference, meaningful only when attributeNewRefFlag is clear: 5
// data bits plus the more-bit. The shared-attribute-value handle that
// follows a set attributeValueRefFlag has no sibling flags to share a byte
// with, so it is written as a plain value (internal/varint.WriteValue)
// rather than a second quick value.
var attributeHandleMask = varint.Mask{Shift: 0, Bits: 6}

// textRefHandleMask is the quick-value field packed into a
// nodeTextRefFlag lead byte's remaining bits: 4 data bits plus the
// more-bit. A decoded value of 0 means "new shared-content definition,
// string follows next"; any other value is a 1-based handle reference,
// matching internal/varint.ReadCharsDef's convention.
var textRefHandleMask = varint.Mask{Shift: 0, Bits: 5}

// Discrete node-type bytes. These occupy 0x01-0x0B, disjoint from 0x00
// (the universal list terminator) and from any byte with a high flag bit
// set (0x10 and above).
const (
	nodeTypeDocument           byte = 0x01
	nodeTypeCDATA              byte = 0x02
	nodeTypeComment            byte = 0x03
	nodeTypePI                 byte = 0x04
	nodeTypeDocType            byte = 0x05
	nodeTypeNotation           byte = 0x06
	nodeTypeExternalEntityDecl byte = 0x07
	nodeTypeElementDecl        byte = 0x08
	nodeTypeSkippedEntity      byte = 0x09
	nodeTypeUnparsedEntity     byte = 0x0A
	nodeTypeAttributeDecl      byte = 0x0B
)

// endOfList is the zero-byte terminator: end of an attribute list, end of
// an element's children, or end of the document-child list. The reader
// treats it as a terminator only where it expects a node or attribute lead
// byte. The value is not unique to terminators: namespace index 0 and the
// length of an empty string are also written as a 0x00 byte inside their
// records.
const endOfList byte = 0x00

// jibxSourceID is the single source-id constant shared between writer and
// reader, identifying this codec's producer dialect in the stream header
// (spec.md §6).
const jibxSourceID byte = 0x01

// magic is the fixed byte sequence that opens every XBIS stream.
var magic = []byte{'X', 'B', 'I', 'S'}

// shareDepth is the default minimum string length (spec.md §3) at which a
// text or attribute value becomes eligible for the shared-value tables.
const shareDepth = 6
