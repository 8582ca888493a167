package wire

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// ErrMalformed is returned for datagrams that are not valid MessagePack or
// do not follow the message layout.
var ErrMalformed = errors.New("malformed packet")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Reader decodes MessagePack values from a byte slice. Binary blobs are
// returned in place, aliasing the slice handed to Reset. A decoded Link and
// its hash arrays live in the Reader and are only valid until the next
// Reset.
type Reader struct {
	data []byte
	r    bytes.Reader
	dec  *msgpack.Decoder

	link     Link
	provided [MaxHashes]uint32
	tracked  [MaxHashes]uint32
}

func NewReader(data []byte) *Reader {
	rd := &Reader{}
	rd.Reset(data)
	return rd
}

// Reset starts decoding data from the beginning.
func (rd *Reader) Reset(data []byte) {
	rd.data = data
	rd.r.Reset(data)
	if rd.dec == nil {
		rd.dec = msgpack.NewDecoder(&rd.r)
	} else {
		rd.dec.Reset(&rd.r)
	}
}

// Remaining is the number of bytes not yet consumed.
func (rd *Reader) Remaining() int {
	return rd.r.Len()
}

func (rd *Reader) wrap(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return malformed("truncated %s", what)
	}
	return malformed("bad %s: %v", what, err)
}

// PeekNil reports whether the next value is nil, consuming it if so.
func (rd *Reader) PeekNil() (bool, error) {
	c, err := rd.dec.PeekCode()
	if err != nil {
		return false, rd.wrap("value", err)
	}
	if c != msgpcode.Nil {
		return false, nil
	}
	if err := rd.dec.DecodeNil(); err != nil {
		return false, rd.wrap("nil", err)
	}
	return true, nil
}

// ExpectMap reads a map header of at most max entries. A nil value is
// accepted and reported as isNil.
func (rd *Reader) ExpectMap(max int) (n int, isNil bool, err error) {
	n, err = rd.dec.DecodeMapLen()
	if err != nil {
		return 0, false, rd.wrap("map", err)
	}
	if n < 0 {
		return 0, true, nil
	}
	if n > max {
		return 0, false, malformed("map of %d entries exceeds %d", n, max)
	}
	return n, false, nil
}

// ExpectArray reads an array header of at most max elements. A nil value
// is accepted and reported as isNil.
func (rd *Reader) ExpectArray(max int) (n int, isNil bool, err error) {
	n, err = rd.dec.DecodeArrayLen()
	if err != nil {
		return 0, false, rd.wrap("array", err)
	}
	if n < 0 {
		return 0, true, nil
	}
	if n > max {
		return 0, false, malformed("array of %d elements exceeds %d", n, max)
	}
	return n, false, nil
}

func (rd *Reader) ExpectU8() (uint8, error) {
	v, err := rd.dec.DecodeUint64()
	if err != nil {
		return 0, rd.wrap("u8", err)
	}
	if v > 0xff {
		return 0, malformed("u8 out of range: %d", v)
	}
	return uint8(v), nil
}

func (rd *Reader) ExpectU32() (uint32, error) {
	v, err := rd.dec.DecodeUint64()
	if err != nil {
		return 0, rd.wrap("u32", err)
	}
	if v > 0xffffffff {
		return 0, malformed("u32 out of range: %d", v)
	}
	return uint32(v), nil
}

// ExpectString reads a string of at most max bytes.
func (rd *Reader) ExpectString(max int) (string, error) {
	b, err := rd.inPlace("string")
	if err != nil {
		return "", err
	}
	if len(b) > max {
		return "", malformed("string of %d bytes exceeds %d", len(b), max)
	}
	return string(b), nil
}

// ExpectBin reads a binary blob without copying it. The returned slice
// aliases the reader's input and is capped so appending to it never writes
// into the rest of the datagram.
func (rd *Reader) ExpectBin() ([]byte, error) {
	return rd.inPlace("bin")
}

func (rd *Reader) inPlace(what string) ([]byte, error) {
	n, err := rd.dec.DecodeBytesLen()
	if err != nil {
		return nil, rd.wrap(what, err)
	}
	if n < 0 {
		return nil, nil
	}
	if n > rd.r.Len() {
		return nil, malformed("truncated %s", what)
	}
	off := len(rd.data) - rd.r.Len()
	if _, err := rd.r.Seek(int64(n), io.SeekCurrent); err != nil {
		return nil, rd.wrap(what, err)
	}
	return rd.data[off : off+n : off+n], nil
}

// Skip discards the next value, whatever its type.
func (rd *Reader) Skip() error {
	if err := rd.dec.Skip(); err != nil {
		return rd.wrap("value", err)
	}
	return nil
}
