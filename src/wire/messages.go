// Package wire implements the datagram encoding shared by uccn nodes.
//
// A datagram is either a bare nil, used as a keepalive, or a map of at most
// two groups keyed by a one byte group code:
//
//	GroupContent: {hash: bin, ...}
//	GroupLink:    {DataNodeName: str, DataProvided: [hash...], DataTracked: [hash...]}
package wire

const (
	GroupContent uint8 = 0xA5
	GroupLink    uint8 = 0x5A

	DataNodeName uint8 = 0x8C
	DataProvided uint8 = 0x4D
	DataTracked  uint8 = 0xD4

	// MaxGroups is the number of distinct groups a datagram may carry.
	MaxGroups = 2
	// MaxLinkData is the number of distinct entries a link group may carry.
	MaxLinkData = 3
)

const (
	// MaxNameSize bounds node names, in bytes.
	MaxNameSize = 32
	// MaxHashes bounds the hash arrays and content maps of a datagram.
	MaxHashes = 32
)

// Link is the content of a link group. Name is the sender's node name.
// Provided lists hashes the sender provides and Tracked lists hashes the
// sender tracks; a nil slice means the entry is absent, which is different
// from an empty one.
type Link struct {
	Name     string
	HasName  bool
	Provided []uint32
	Tracked  []uint32
}

// Content is a single entry of a content group.
type Content struct {
	Hash uint32
	Blob []byte
}

// EncodeKeepalive writes a keepalive datagram.
func EncodeKeepalive(w *Writer) {
	w.WriteNil()
}

// EncodeContent writes a datagram carrying a single content entry.
func EncodeContent(w *Writer, hash uint32, blob []byte) {
	w.StartMap(1)
	w.WriteU8(GroupContent)
	w.StartMap(1)
	w.WriteU32(hash)
	w.WriteBin(blob)
	w.FinishMap()
	w.FinishMap()
}

// EncodeLink writes a datagram carrying a single link group. The name is
// always included.
func EncodeLink(w *Writer, l *Link) {
	w.StartMap(1)
	w.WriteU8(GroupLink)
	entries := 1
	if l.Tracked != nil {
		entries++
	}
	if l.Provided != nil {
		entries++
	}
	w.StartMap(entries)
	w.WriteU8(DataNodeName)
	w.WriteString(l.Name)
	if l.Tracked != nil {
		w.WriteU8(DataTracked)
		writeHashes(w, l.Tracked)
	}
	if l.Provided != nil {
		w.WriteU8(DataProvided)
		writeHashes(w, l.Provided)
	}
	w.FinishMap()
	w.FinishMap()
}

func writeHashes(w *Writer, hashes []uint32) {
	w.StartArray(len(hashes))
	for _, h := range hashes {
		w.WriteU32(h)
	}
	w.FinishArray()
}

// PacketHandler receives the groups of a datagram as they are decoded.
// Content entries are delivered one at a time, in wire order; an error
// returned by the handler stops decoding and is returned to the caller.
type PacketHandler interface {
	HandleContent(c Content) error
	HandleLink(l *Link) error
}

// DecodePacket decodes a whole datagram, dispatching its groups to h.
// Keepalives decode to nothing. Effects of groups and content entries that
// were handled before a malformed part are not undone.
func DecodePacket(r *Reader, h PacketHandler) error {
	groups, isNil, err := r.ExpectMap(MaxGroups)
	if err != nil {
		return err
	}
	if isNil {
		return nil
	}
	for i := 0; i < groups; i++ {
		code, err := r.ExpectU8()
		if err != nil {
			return err
		}
		switch code {
		case GroupContent:
			err = DecodeContentGroup(r, h.HandleContent)
		case GroupLink:
			var l *Link
			if l, err = DecodeLinkGroup(r); err == nil {
				err = h.HandleLink(l)
			}
		default:
			err = malformed("unknown group 0x%02X", code)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DecodeContentGroup decodes the body of a content group, calling fn for
// every entry. Entries with a zero hash or an empty blob are malformed.
func DecodeContentGroup(r *Reader, fn func(Content) error) error {
	n, isNil, err := r.ExpectMap(MaxHashes)
	if err != nil || isNil {
		return err
	}
	for i := 0; i < n; i++ {
		hash, err := r.ExpectU32()
		if err != nil {
			return err
		}
		if hash == 0 {
			return malformed("missing content hash")
		}
		blob, err := r.ExpectBin()
		if err != nil {
			return err
		}
		if len(blob) == 0 {
			return malformed("missing content blob for 0x%08X", hash)
		}
		if err := fn(Content{Hash: hash, Blob: blob}); err != nil {
			return err
		}
	}
	return nil
}

// DecodeLinkGroup decodes the body of a link group. Unlike content, a link
// group is decoded whole before anything acts on it. The result is stored
// in r and is overwritten by the next link group r decodes.
func DecodeLinkGroup(r *Reader) (*Link, error) {
	l := &r.link
	*l = Link{}
	n, isNil, err := r.ExpectMap(MaxLinkData)
	if err != nil || isNil {
		return l, err
	}
	for i := 0; i < n; i++ {
		code, err := r.ExpectU8()
		if err != nil {
			return l, err
		}
		switch code {
		case DataNodeName:
			if l.Name, err = r.ExpectString(MaxNameSize); err != nil {
				return l, err
			}
			l.HasName = true
		case DataProvided:
			if l.Provided, err = readHashes(r, r.provided[:0]); err != nil {
				return l, err
			}
		case DataTracked:
			if l.Tracked, err = readHashes(r, r.tracked[:0]); err != nil {
				return l, err
			}
		default:
			return l, malformed("unknown link data 0x%02X", code)
		}
	}
	return l, nil
}

// readHashes appends a hash array to dst, which must have room for
// MaxHashes entries. A nil array gives a nil slice.
func readHashes(r *Reader, dst []uint32) ([]uint32, error) {
	n, isNil, err := r.ExpectArray(MaxHashes)
	if err != nil {
		return nil, err
	}
	if isNil {
		return nil, nil
	}
	for i := 0; i < n; i++ {
		h, err := r.ExpectU32()
		if err != nil {
			return nil, err
		}
		if h == 0 {
			return nil, malformed("missing resource hash")
		}
		dst = append(dst, h)
	}
	return dst, nil
}
