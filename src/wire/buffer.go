package wire

import "errors"

// ErrBufferFull is returned when an encoding does not fit in the buffer it
// is being written into.
var ErrBufferFull = errors.New("buffer full")

// Buffer is a fixed-capacity byte buffer. It never grows: writes past its
// capacity fail with ErrBufferFull and leave the buffer truncated at the
// capacity.
type Buffer struct {
	data []byte
	n    int
}

// NewBuffer returns an empty buffer able to hold size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Write appends p, failing with ErrBufferFull if it does not fit entirely.
func (b *Buffer) Write(p []byte) (int, error) {
	n := copy(b.data[b.n:], p)
	b.n += n
	if n < len(p) {
		return n, ErrBufferFull
	}
	return n, nil
}

func (b *Buffer) WriteByte(c byte) error {
	if b.n >= len(b.data) {
		return ErrBufferFull
	}
	b.data[b.n] = c
	b.n++
	return nil
}

// Bytes returns the used part of the buffer. The slice aliases the buffer
// storage and is only valid until the next write or Reset.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Storage returns the whole backing array, for reading a datagram into.
func (b *Buffer) Storage() []byte {
	return b.data
}

// SetLen marks the first n bytes of the storage as used.
func (b *Buffer) SetLen(n int) {
	if n < 0 || n > len(b.data) {
		panic("wire: buffer length out of range")
	}
	b.n = n
}

func (b *Buffer) Len() int { return b.n }
func (b *Buffer) Cap() int { return len(b.data) }

// Reset empties the buffer without releasing its storage.
func (b *Buffer) Reset() {
	b.n = 0
}
