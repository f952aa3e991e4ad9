package codec

import (
	"encoding"
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// This package implements the canonical binary encoding of dex state objects using the protobuf wire format.
// Fields are written in ascending field number order and zero values are omitted, matching proto3 so that
// equal objects always produce equal bytes.

// Encoder appends protobuf wire fields to an internal buffer
type Encoder struct {
	buf []byte
}

// NewEncoder() returns an empty encoder
func NewEncoder() *Encoder { return &Encoder{} }

// PutUint64() writes a varint field, omitted when zero
func (e *Encoder) PutUint64(num protowire.Number, v uint64) {
	if v == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.VarintType)
	e.buf = protowire.AppendVarint(e.buf, v)
}

// PutBool() writes a boolean field, omitted when false
func (e *Encoder) PutBool(num protowire.Number, v bool) {
	if v {
		e.PutUint64(num, 1)
	}
}

// PutBytes() writes a length delimited field, omitted when empty
func (e *Encoder) PutBytes(num protowire.Number, v []byte) {
	if len(v) == 0 {
		return
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, v)
}

// PutRepeatedBytes() writes every element of a repeated bytes field, empty elements included
func (e *Encoder) PutRepeatedBytes(num protowire.Number, v [][]byte) {
	for _, b := range v {
		e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
		e.buf = protowire.AppendBytes(e.buf, b)
	}
}

// PutString() writes a string field, omitted when empty
func (e *Encoder) PutString(num protowire.Number, v string) { e.PutBytes(num, []byte(v)) }

// PutMessage() writes a nested object as a length delimited field
// NOTE: unlike scalar fields an empty nested object is still written so repeated entries keep their count
func (e *Encoder) PutMessage(num protowire.Number, m encoding.BinaryMarshaler) error {
	bz, err := m.MarshalBinary()
	if err != nil {
		return err
	}
	e.buf = protowire.AppendTag(e.buf, num, protowire.BytesType)
	e.buf = protowire.AppendBytes(e.buf, bz)
	return nil
}

// Encoded() returns the bytes written so far
func (e *Encoder) Encoded() []byte { return e.buf }

// Field is a single decoded wire field
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	varint uint64
	bytes  []byte
}

// Uint64() returns the varint value of the field
func (f *Field) Uint64() uint64 { return f.varint }

// Bool() returns the varint value of the field as a boolean
func (f *Field) Bool() bool { return f.varint != 0 }

// Bytes() returns a copy of the length delimited value of the field
func (f *Field) Bytes() []byte {
	out := make([]byte, len(f.bytes))
	copy(out, f.bytes)
	return out
}

// String() returns the length delimited value of the field as a string
func (f *Field) String() string { return string(f.bytes) }

// Message() decodes the length delimited value of the field into a nested object
func (f *Field) Message(m encoding.BinaryUnmarshaler) error { return m.UnmarshalBinary(f.bytes) }

// ErrWireType is returned when a known field arrives with an unexpected wire type
var ErrWireType = errors.New("unexpected wire type")

// Decode() walks the wire fields of bz calling fn for each varint or length delimited field
// unknown wire types are skipped
func Decode(bz []byte, fn func(f *Field) error) error {
	for len(bz) > 0 {
		num, typ, n := protowire.ConsumeTag(bz)
		if n < 0 {
			return protowire.ParseError(n)
		}
		bz = bz[n:]
		f := &Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(bz)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(bz)
		default:
			if n = protowire.ConsumeFieldValue(num, typ, bz); n < 0 {
				return protowire.ParseError(n)
			}
			bz = bz[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		bz = bz[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}
