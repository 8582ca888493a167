package wire

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const maxDepth = 8

var errFraming = errors.New("unbalanced container framing")

type frame struct {
	remaining int
}

// Writer encodes MessagePack values into a Buffer. Errors are sticky: once
// a write fails every later call is a no-op and Finish reports the first
// error, so encoders can be written without checking every call.
//
// Containers are framed explicitly. StartMap/StartArray declare how many
// elements follow and FinishMap/FinishArray check that exactly that many
// were written.
type Writer struct {
	buf   *Buffer
	enc   *msgpack.Encoder
	err   error
	stack [maxDepth]frame
	depth int
}

// NewWriter returns a writer that encodes into buf, which is reset first.
func NewWriter(buf *Buffer) *Writer {
	w := &Writer{}
	w.Reset(buf)
	return w
}

// Reset discards any state and starts encoding into buf from the beginning.
func (w *Writer) Reset(buf *Buffer) {
	buf.Reset()
	w.buf = buf
	if w.enc == nil {
		w.enc = msgpack.NewEncoder(buf)
	} else {
		w.enc.Reset(buf)
	}
	w.err = nil
	w.depth = 0
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// element accounts for one value written into the innermost open container.
func (w *Writer) element() {
	if w.depth == 0 {
		return
	}
	top := &w.stack[w.depth-1]
	if top.remaining == 0 {
		w.fail(fmt.Errorf("%w: too many elements", errFraming))
		return
	}
	top.remaining--
}

func (w *Writer) push(elements int) {
	if w.depth == maxDepth {
		w.fail(fmt.Errorf("%w: nesting too deep", errFraming))
		return
	}
	w.stack[w.depth] = frame{remaining: elements}
	w.depth++
}

func (w *Writer) pop(kind string) {
	if w.err != nil {
		return
	}
	if w.depth == 0 {
		w.fail(fmt.Errorf("%w: finish %s without start", errFraming, kind))
		return
	}
	if left := w.stack[w.depth-1].remaining; left != 0 {
		w.fail(fmt.Errorf("%w: %s finished with %d elements missing", errFraming, kind, left))
		return
	}
	w.depth--
}

func (w *Writer) StartMap(entries int) {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeMapLen(entries))
	w.push(2 * entries)
}

func (w *Writer) FinishMap() { w.pop("map") }

func (w *Writer) StartArray(elements int) {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeArrayLen(elements))
	w.push(elements)
}

func (w *Writer) FinishArray() { w.pop("array") }

func (w *Writer) WriteU8(v uint8) {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeUint(uint64(v)))
}

func (w *Writer) WriteU32(v uint32) {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeUint(uint64(v)))
}

func (w *Writer) WriteString(s string) {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeString(s))
}

// WriteBin writes b as a binary blob. A nil slice is written as an empty
// blob, not as nil.
func (w *Writer) WriteBin(b []byte) {
	if w.err != nil {
		return
	}
	if b == nil {
		b = []byte{}
	}
	w.element()
	w.fail(w.enc.EncodeBytes(b))
}

func (w *Writer) WriteNil() {
	if w.err != nil {
		return
	}
	w.element()
	w.fail(w.enc.EncodeNil())
}

// Finish returns the number of bytes used in the buffer, or the first error
// encountered while writing. Open containers are an error.
func (w *Writer) Finish() (int, error) {
	if w.err == nil && w.depth != 0 {
		w.fail(fmt.Errorf("%w: %d containers left open", errFraming, w.depth))
	}
	if w.err != nil {
		return 0, w.err
	}
	return w.buf.Len(), nil
}
