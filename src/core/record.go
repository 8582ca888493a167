package core

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/uccn-net/uccn-go/src/wire"
)

type msgpackTypeSupport[T any] struct{}

// MsgpackTypeSupport returns a TypeSupport that encodes records of type T
// as MessagePack. Tracker callbacks receive a *T; Post accepts a T or a *T.
func MsgpackTypeSupport[T any]() TypeSupport {
	return msgpackTypeSupport[T]{}
}

func (msgpackTypeSupport[T]) Allocate() interface{} {
	return new(T)
}

func (msgpackTypeSupport[T]) Serialize(content interface{}, blob *wire.Buffer) error {
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(blob)
	return enc.Encode(content)
}

func (msgpackTypeSupport[T]) Deserialize(blob []byte, content interface{}) error {
	return msgpack.Unmarshal(blob, content)
}
