package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	contents []Content
	links    []Link
	stopAt   int
}

func (r *recorder) HandleContent(c Content) error {
	r.contents = append(r.contents, c)
	if r.stopAt > 0 && len(r.contents) == r.stopAt {
		return errors.New("stop")
	}
	return nil
}

func (r *recorder) HandleLink(l *Link) error {
	r.links = append(r.links, *l)
	return nil
}

func TestKeepaliveIsNil(t *testing.T) {
	buf := NewBuffer(16)
	w := NewWriter(buf)
	EncodeKeepalive(w)
	n, err := w.Finish()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []byte{0xc0}, buf.Bytes())

	var rec recorder
	require.NoError(t, DecodePacket(NewReader(buf.Bytes()), &rec))
	require.Empty(t, rec.contents)
	require.Empty(t, rec.links)
}

func TestContentInPlace(t *testing.T) {
	buf := NewBuffer(64)
	w := NewWriter(buf)
	EncodeContent(w, 0xDEADBEEF, []byte("hello"))
	_, err := w.Finish()
	require.NoError(t, err)

	data := buf.Bytes()
	var rec recorder
	require.NoError(t, DecodePacket(NewReader(data), &rec))
	require.Len(t, rec.contents, 1)
	require.Equal(t, uint32(0xDEADBEEF), rec.contents[0].Hash)
	require.Equal(t, []byte("hello"), rec.contents[0].Blob)

	// The blob aliases the datagram.
	data[len(data)-1] = 'O'
	require.Equal(t, []byte("hellO"), rec.contents[0].Blob)
	require.Equal(t, len(rec.contents[0].Blob), cap(rec.contents[0].Blob))
}

func TestLinkEncoding(t *testing.T) {
	buf := NewBuffer(128)
	w := NewWriter(buf)
	EncodeLink(w, &Link{Name: "alice", Tracked: []uint32{1, 0x10000}, Provided: []uint32{}})
	_, err := w.Finish()
	require.NoError(t, err)

	var rec recorder
	require.NoError(t, DecodePacket(NewReader(buf.Bytes()), &rec))
	require.Len(t, rec.links, 1)
	l := rec.links[0]
	require.True(t, l.HasName)
	require.Equal(t, "alice", l.Name)
	require.Equal(t, []uint32{1, 0x10000}, l.Tracked)
	require.NotNil(t, l.Provided)
	require.Empty(t, l.Provided)

	w.Reset(buf)
	EncodeLink(w, &Link{Name: "bob", Provided: []uint32{7}})
	_, err = w.Finish()
	require.NoError(t, err)
	rec = recorder{}
	require.NoError(t, DecodePacket(NewReader(buf.Bytes()), &rec))
	require.Nil(t, rec.links[0].Tracked)
	require.Equal(t, []uint32{7}, rec.links[0].Provided)
}

func TestLinkHashesUseReaderStorage(t *testing.T) {
	encode := func(l *Link) []byte {
		buf := NewBuffer(256)
		w := NewWriter(buf)
		EncodeLink(w, l)
		_, err := w.Finish()
		require.NoError(t, err)
		// Skip the packet map header and the group code.
		return buf.Bytes()[2:]
	}
	first := encode(&Link{Provided: []uint32{1, 2, 3}, Tracked: []uint32{}})
	second := encode(&Link{Provided: []uint32{9}})

	rd := NewReader(first)
	l, err := DecodeLinkGroup(rd)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, l.Provided)
	require.NotNil(t, l.Tracked)
	require.Empty(t, l.Tracked)
	require.Equal(t, MaxHashes, cap(l.Provided))
	require.Equal(t, MaxHashes, cap(l.Tracked))
	provided := l.Provided

	rd.Reset(second)
	l, err = DecodeLinkGroup(rd)
	require.NoError(t, err)
	require.Equal(t, []uint32{9}, l.Provided)
	require.Nil(t, l.Tracked)
	require.Same(t, &provided[0], &l.Provided[0])
}

func TestBufferFull(t *testing.T) {
	buf := NewBuffer(8)
	w := NewWriter(buf)
	EncodeContent(w, 42, make([]byte, 16))
	_, err := w.Finish()
	require.ErrorIs(t, err, ErrBufferFull)
}

func TestWriterFraming(t *testing.T) {
	w := NewWriter(NewBuffer(32))
	w.StartArray(2)
	w.WriteU8(1)
	w.FinishArray()
	_, err := w.Finish()
	require.ErrorIs(t, err, errFraming)

	w.Reset(NewBuffer(32))
	w.StartMap(1)
	w.WriteU8(1)
	_, err = w.Finish()
	require.ErrorIs(t, err, errFraming)
}

// handcrafted encodes a datagram without the framing checks of Writer.
func handcrafted(t *testing.T, fn func(w *Writer)) []byte {
	buf := NewBuffer(256)
	w := &Writer{}
	w.Reset(buf)
	fn(w)
	require.NoError(t, w.err)
	return append([]byte(nil), buf.Bytes()...)
}

func TestMalformed(t *testing.T) {
	tests := map[string][]byte{
		"garbage": {0xc1},
		"truncated": handcrafted(t, func(w *Writer) {
			EncodeContent(w, 9, []byte("abc"))
		})[:6],
		"zero hash": handcrafted(t, func(w *Writer) {
			EncodeContent(w, 0, []byte("abc"))
		}),
		"empty blob": handcrafted(t, func(w *Writer) {
			EncodeContent(w, 9, nil)
		}),
		"unknown group": handcrafted(t, func(w *Writer) {
			w.StartMap(1)
			w.WriteU8(0x11)
			w.WriteNil()
			w.FinishMap()
		}),
		"too many groups": handcrafted(t, func(w *Writer) {
			w.StartMap(3)
			for i := 0; i < 3; i++ {
				w.WriteU8(GroupContent)
				w.WriteNil()
			}
			w.FinishMap()
		}),
		"long name": handcrafted(t, func(w *Writer) {
			EncodeLink(w, &Link{Name: string(make([]byte, MaxNameSize+1))})
		}),
		"zero tracked hash": handcrafted(t, func(w *Writer) {
			EncodeLink(w, &Link{Name: "x", Tracked: []uint32{3, 0}})
		}),
		"unknown link data": handcrafted(t, func(w *Writer) {
			w.StartMap(1)
			w.WriteU8(GroupLink)
			w.StartMap(1)
			w.WriteU8(0x01)
			w.WriteNil()
			w.FinishMap()
			w.FinishMap()
		}),
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var rec recorder
			err := DecodePacket(NewReader(data), &rec)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestContentStopsAtFirstBadEntry(t *testing.T) {
	data := handcrafted(t, func(w *Writer) {
		w.StartMap(1)
		w.WriteU8(GroupContent)
		w.StartMap(3)
		w.WriteU32(1)
		w.WriteBin([]byte("a"))
		w.WriteU32(0)
		w.WriteBin([]byte("b"))
		w.WriteU32(3)
		w.WriteBin([]byte("c"))
		w.FinishMap()
		w.FinishMap()
	})
	var rec recorder
	require.ErrorIs(t, DecodePacket(NewReader(data), &rec), ErrMalformed)
	require.Len(t, rec.contents, 1)
	require.Equal(t, uint32(1), rec.contents[0].Hash)
}

func TestHandlerErrorStopsDecoding(t *testing.T) {
	data := handcrafted(t, func(w *Writer) {
		w.StartMap(1)
		w.WriteU8(GroupContent)
		w.StartMap(2)
		w.WriteU32(1)
		w.WriteBin([]byte("a"))
		w.WriteU32(2)
		w.WriteBin([]byte("b"))
		w.FinishMap()
		w.FinishMap()
	})
	rec := recorder{stopAt: 1}
	err := DecodePacket(NewReader(data), &rec)
	require.EqualError(t, err, "stop")
	require.Len(t, rec.contents, 1)
}
