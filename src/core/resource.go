package core

import (
	"fmt"

	"github.com/uccn-net/uccn-go/src/wire"
)

// Hash returns the identifier of a resource path on the wire: the djb2 hash
// of its bytes.
func Hash(path string) uint32 {
	h := uint32(5381)
	for i := 0; i < len(path); i++ {
		h = h*33 + uint32(path[i])
	}
	return h
}

// Resource is a named content channel. It is immutable once built and is
// referenced, not copied, by the nodes it is registered with.
type Resource struct {
	path  string
	hash  uint32
	codec codec
}

// NewResource returns a resource whose content is raw bytes, sent as is.
// Content posted to it must be a []byte and tracker callbacks receive a
// []byte.
func NewResource(path string) (*Resource, error) {
	return newResource(path, rawData{})
}

// NewRecord returns a resource whose content is a typed record converted
// to and from bytes by ts. Tracker callbacks receive the instance returned
// by ts.Allocate, reused for every delivery.
func NewRecord(path string, ts TypeSupport) (*Resource, error) {
	if ts == nil {
		return nil, fmt.Errorf("%w: record %q has no type support", ErrResource, path)
	}
	return newResource(path, record{ts: ts})
}

func newResource(path string, c codec) (*Resource, error) {
	switch {
	case path == "":
		return nil, fmt.Errorf("%w: empty resource path", ErrResource)
	case len(path) > MaxResourcePathSize:
		return nil, fmt.Errorf("%w: resource path %q is longer than %d bytes", ErrResource, path, MaxResourcePathSize)
	}
	return &Resource{path: path, hash: Hash(path), codec: c}, nil
}

func (r *Resource) Path() string { return r.path }
func (r *Resource) Hash() uint32 { return r.hash }

// IsRecord reports whether the resource carries typed records rather than
// raw bytes.
func (r *Resource) IsRecord() bool {
	_, ok := r.codec.(record)
	return ok
}

func (r *Resource) String() string {
	return fmt.Sprintf("%s#%08x", r.path, r.hash)
}

// TypeSupport converts the records of one type to and from bytes.
// Serialize writes into a fixed-size buffer and must fail, rather than
// truncate, when the record does not fit.
type TypeSupport interface {
	Allocate() interface{}
	Serialize(content interface{}, blob *wire.Buffer) error
	Deserialize(blob []byte, content interface{}) error
}

// codec is the pack/unpack capability of a resource. It is implemented by
// rawData and record only.
type codec interface {
	pack(content interface{}, staging *wire.Buffer) ([]byte, error)
	unpack(blob []byte, instance *interface{}) (interface{}, error)
}

type rawData struct{}

func (rawData) pack(content interface{}, _ *wire.Buffer) ([]byte, error) {
	b, ok := content.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: raw content must be []byte, not %T", ErrResource, content)
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrResource)
	}
	if len(b) > MaxContentSize {
		return nil, fmt.Errorf("%w: %d bytes of content, at most %d fit", ErrCapacityExceeded, len(b), MaxContentSize)
	}
	return b, nil
}

func (rawData) unpack(blob []byte, _ *interface{}) (interface{}, error) {
	return blob, nil
}

type record struct {
	ts TypeSupport
}

func (r record) pack(content interface{}, staging *wire.Buffer) ([]byte, error) {
	staging.Reset()
	if err := r.ts.Serialize(content, staging); err != nil {
		return nil, fmt.Errorf("error serializing record: %w", err)
	}
	if staging.Len() == 0 {
		return nil, fmt.Errorf("%w: record serialized to nothing", ErrResource)
	}
	return staging.Bytes(), nil
}

func (r record) unpack(blob []byte, instance *interface{}) (interface{}, error) {
	if *instance == nil {
		if *instance = r.ts.Allocate(); *instance == nil {
			return nil, fmt.Errorf("%w: record allocation failed", ErrResource)
		}
	}
	if err := r.ts.Deserialize(blob, *instance); err != nil {
		return nil, fmt.Errorf("error deserializing record: %w", err)
	}
	return *instance, nil
}
