// SPDX-License-Identifier: Apache-2.0

package arenabox

import (
	"io"
	"unicode/utf8"
)

// Buffer is a bytes.Buffer-like writer that accumulates bytes in an arena.
// It implements io.Writer, io.StringWriter, io.ByteWriter and io.ReaderFrom.
// Str freezes the bytes written so far into a Str handle.
type Buffer struct {
	alloc   Allocator
	buf     Slice[byte]
	frozen  int         // bytes handed out by Str; never rewritten in place
	readBuf Slice[byte] // intermediate buffer for ReadFrom
}

// NewBuffer creates a new Buffer writing into a's arena.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{alloc: a}
}

// Write implements io.Writer interface.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.buf = AppendSlice(b.alloc, b.buf, p...)
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = AppendSlice(b.alloc, b.buf, c)
	return nil
}

// WriteRune writes the UTF-8 encoding of r to the buffer.
func (b *Buffer) WriteRune(r rune) (n int, err error) {
	var tmp [utf8.UTFMax]byte
	n = utf8.EncodeRune(tmp[:], r)
	b.buf = AppendSlice(b.alloc, b.buf, tmp[:n]...)
	return n, nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	if len(s) == 0 {
		return 0, nil
	}
	b.buf = AppendSlice(b.alloc, b.buf, []byte(s)...)
	return len(s), nil
}

// WriteStr appends a string that already lives in the arena.
func (b *Buffer) WriteStr(s Str) (n int, err error) {
	return b.WriteString(b.alloc.arena().UnsafeString(s))
}

// WriteTo writes the buffer's contents to w. Unlike bytes.Buffer it does not
// drain the buffer.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if b.Len() == 0 {
		return 0, nil
	}
	m, err := w.Write(b.Bytes())
	return int64(m), err
}

// Bytes returns the bytes written so far. The slice points into the arena
// and is valid until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	if b.buf.Len() == 0 {
		return []byte{}
	}
	return LoadSlice(b.alloc, b.buf)
}

// String returns a copy of the buffer's contents as a string.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Str returns the buffer's contents as an arena string without copying.
// Later writes do not change the returned Str.
func (b *Buffer) Str() Str {
	if b.buf.Len() == 0 {
		return Str{}
	}
	b.frozen = b.buf.Len()
	return Str{b.buf.span}
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int {
	return b.buf.Len()
}

// Cap returns the capacity of the buffer's current arena allocation.
func (b *Buffer) Cap() int {
	return b.buf.Cap()
}

// Reset resets the buffer to be empty. Strs handed out earlier stay intact.
func (b *Buffer) Reset() {
	b.buf = Slice[byte]{}
	b.frozen = 0
}

// Truncate discards all but the first n bytes from the buffer.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.buf.Len() {
		panic("arenabox: truncation out of range")
	}
	if n < b.frozen {
		// bytes past n belong to a Str, move the prefix to a fresh allocation
		b.buf = NewSlice(b.alloc, b.Bytes()[:n]...)
		b.frozen = 0
		return
	}
	b.buf.n = uint32(n)
}

// ReadFrom implements io.ReaderFrom interface.
// It reads data from r until EOF or error, writing it to the buffer.
// The intermediate read buffer is allocated from the arena.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	if b.readBuf.IsZero() {
		const readBufferSize = 4 * 1024 // 4KB read buffer
		b.readBuf = MakeSlice[byte](b.alloc, readBufferSize, readBufferSize)
	}
	tmp := LoadSlice(b.alloc, b.readBuf)
	for {
		nr, er := r.Read(tmp)
		if nr > 0 {
			if _, ew := b.Write(tmp[:nr]); ew != nil {
				return n, ew
			}
			n += int64(nr)
		}
		if er != nil {
			if er == io.EOF {
				break
			}
			return n, er
		}
	}
	return n, nil
}
