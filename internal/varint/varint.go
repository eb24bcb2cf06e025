// Package varint implements the primitive codecs XBIS lead bytes and
// payloads are built from: the variable-length "value" integer encoding,
// the bit-packed "quick value" that co-locates a small integer with
// caller-chosen flag bits, and length-prefixed string/char-array encoding.
package varint

import (
	"errors"
	"unicode/utf8"

	"github.com/jibx/xbis/internal/sharedtable"
	"github.com/jibx/xbis/internal/window"
)

// ErrOverlong is returned when a value's continuation chain runs longer
// than a uint64 can hold, which can only happen against a corrupt or
// adversarial stream.
var ErrOverlong = errors.New("varint: value too long")

const maxValueBytes = 10 // ceil(64/7)

// WriteValue writes v as a little-endian chain of 7-bit groups, the high
// bit of each byte signalling "more bytes follow".
func WriteValue(w *window.Writer, v uint64) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := w.WriteByte(b); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// ReadValue reads a value written by WriteValue.
func ReadValue(r *window.Reader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < maxValueBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	return 0, ErrOverlong
}

// Mask describes the bit field a quick value occupies within a lead byte:
// Bits wide, starting at bit Shift. The lowest bit of the field is always
// reserved as the "more data follows" signal; the remaining Bits-1 bits
// hold the low bits of the integer.
type Mask struct {
	Shift uint
	Bits  uint
}

func (m Mask) dataBits() uint {
	return m.Bits - 1
}

func (m Mask) maxInline() uint64 {
	return (uint64(1) << m.dataBits()) - 1
}

func (m Mask) fieldWidth() uint64 {
	return (uint64(1) << m.Bits) - 1
}

// EncodeQuick returns the lead byte combining flags (any bits of the byte
// outside m) with v's quick-value encoding, and whether the remainder of v
// must follow as a plain WriteValue continuation.
func EncodeQuick(flags byte, m Mask, v uint64) (lead byte, overflow bool) {
	if v <= m.maxInline() {
		return flags | byte(v<<(m.Shift+1)), false
	}
	low := v & m.maxInline()
	more := uint64(1) << m.Shift
	return flags | byte(low<<(m.Shift+1)) | byte(more), true
}

// WriteQuick writes flags and v packed per m, chaining a plain value for
// any bits that don't fit.
func WriteQuick(w *window.Writer, flags byte, m Mask, v uint64) error {
	lead, overflow := EncodeQuick(flags, m, v)
	if err := w.WriteByte(lead); err != nil {
		return err
	}
	if !overflow {
		return nil
	}
	return WriteValue(w, v>>m.dataBits())
}

// DecodeQuick extracts m's field from an already-read lead byte, returning
// the inline bits and whether a continuation value follows.
func DecodeQuick(lead byte, m Mask) (v uint64, more bool) {
	field := (uint64(lead) >> m.Shift) & m.fieldWidth()
	more = field&1 != 0
	return field >> 1, more
}

// ReadQuickValue finishes decoding a quick value whose lead byte has
// already been consumed by the caller (to classify the node kind).
func ReadQuickValue(r *window.Reader, lead byte, m Mask) (uint64, error) {
	low, more := DecodeQuick(lead, m)
	if !more {
		return low, nil
	}
	rest, err := ReadValue(r)
	if err != nil {
		return 0, err
	}
	return low | (rest << m.dataBits()), nil
}

// WriteString writes s as a value-encoded length followed by its UTF-8
// bytes.
func WriteString(w *window.Writer, s string) error {
	if err := WriteValue(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// ReadString reads a string written by WriteString.
func ReadString(r *window.Reader) (string, error) {
	n, err := ReadValue(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if err := r.ReadFull(buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", errInvalidUTF8
	}
	return string(buf), nil
}

var errInvalidUTF8 = errors.New("varint: invalid utf-8 in string payload")

// ReadCharsDef decodes the shared-content text-ref variant of §4.1: idx is
// the quick-value integer already decoded from the lead byte. idx == 0
// means "new definition", in which case the string that follows is read
// and appended to table; any other value looks up table[idx-1].
func ReadCharsDef(r *window.Reader, table *sharedtable.Table, idx uint64) (string, error) {
	if idx == 0 {
		s, err := ReadString(r)
		if err != nil {
			return "", err
		}
		table.Append(s)
		return s, nil
	}
	return table.Get(sharedtable.Handle(idx))
}
