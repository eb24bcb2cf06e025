package window_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jibx/xbis/internal/window"
)

func TestWriterPatchBeforeFlush(t *testing.T) {
	var buf bytes.Buffer
	w := window.NewWriterSize(&buf, 16)

	assert.NoError(t, w.WriteByte(0x00))
	mark := w.MarkLast()
	assert.NoError(t, w.WriteByte(0x02))
	assert.NoError(t, w.Patch(mark, 0x01))
	assert.NoError(t, w.Flush())

	assert.Equal(t, []byte{0x01, 0x02}, buf.Bytes())
}

func TestWriterPatchAfterFlushFails(t *testing.T) {
	var buf bytes.Buffer
	w := window.NewWriterSize(&buf, 16)

	assert.NoError(t, w.WriteByte(0x00))
	mark := w.MarkLast()
	assert.NoError(t, w.Flush())

	err := w.Patch(mark, 0x01)
	assert.ErrorIs(t, err, window.ErrMarkExpired)
}

func TestWriterAutoFlushInvalidatesEarlierMark(t *testing.T) {
	var buf bytes.Buffer
	w := window.NewWriterSize(&buf, 2)

	assert.NoError(t, w.WriteByte(0x00))
	mark := w.MarkLast()
	assert.NoError(t, w.WriteByte(0x01)) // fills the 2-byte page
	assert.NoError(t, w.WriteByte(0x02)) // triggers an auto-flush of the full page

	err := w.Patch(mark, 0xFF)
	assert.ErrorIs(t, err, window.ErrMarkExpired)
	assert.NoError(t, w.Flush())
	assert.Equal(t, []byte{0x00, 0x01, 0x02}, buf.Bytes())
}

func TestReaderReadAndPeek(t *testing.T) {
	r := window.NewReader(bytes.NewReader([]byte{0x10, 0x20, 0x30}))

	b, err := r.Peek()
	assert.NoError(t, err)
	assert.Equal(t, byte(0x10), b)

	b, err = r.ReadByte()
	assert.NoError(t, err)
	assert.Equal(t, byte(0x10), b)

	buf := make([]byte, 2)
	assert.NoError(t, r.ReadFull(buf))
	assert.Equal(t, []byte{0x20, 0x30}, buf)
}
