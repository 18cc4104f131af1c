// Package wire implements the TLV (type, length, value) codec that every
// user-visible protocol in this module (console log, service registry,
// shell) is built on top of, plus the closed ProtocolError taxonomy those
// decoders raise.
package wire

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// ProtocolError is the closed error taxonomy for wire decoding, separate
// from the kernel-side kernerr.Errno taxonomy.
type ProtocolError struct {
	Kind  ProtocolErrorKind
	Field string
	Byte  byte // only meaningful for UnknownMessageType
}

// ProtocolErrorKind enumerates the wire-level failure modes.
type ProtocolErrorKind int

const (
	TruncatedHeader ProtocolErrorKind = iota + 1
	TruncatedValue
	InvalidLength
	MissingField
	DuplicateField
	InvalidUtf8
	UnknownMessageType
	InvalidValue
)

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case TruncatedHeader:
		return "wire: truncated header"
	case TruncatedValue:
		return "wire: truncated value"
	case InvalidLength:
		return fmt.Sprintf("wire: invalid length for field %q", e.Field)
	case MissingField:
		return fmt.Sprintf("wire: missing field %q", e.Field)
	case DuplicateField:
		return fmt.Sprintf("wire: duplicate field %q", e.Field)
	case InvalidUtf8:
		return fmt.Sprintf("wire: invalid utf-8 in field %q", e.Field)
	case UnknownMessageType:
		return fmt.Sprintf("wire: unknown message type 0x%02x", e.Byte)
	case InvalidValue:
		return fmt.Sprintf("wire: invalid value for field %q", e.Field)
	default:
		return "wire: protocol error"
	}
}

func errTruncatedHeader() error { return &ProtocolError{Kind: TruncatedHeader} }
func errTruncatedValue() error  { return &ProtocolError{Kind: TruncatedValue} }

// ErrMissingField, ErrDuplicateField, ErrInvalidLength, ErrInvalidUtf8, and
// ErrInvalidValue build field-labeled ProtocolError values.
func ErrMissingField(field string) error   { return &ProtocolError{Kind: MissingField, Field: field} }
func ErrDuplicateField(field string) error { return &ProtocolError{Kind: DuplicateField, Field: field} }
func ErrInvalidLength(field string) error  { return &ProtocolError{Kind: InvalidLength, Field: field} }
func ErrInvalidUtf8(field string) error    { return &ProtocolError{Kind: InvalidUtf8, Field: field} }
func ErrInvalidValue(field string) error   { return &ProtocolError{Kind: InvalidValue, Field: field} }
func ErrUnknownMessageType(b byte) error {
	return &ProtocolError{Kind: UnknownMessageType, Byte: b}
}

// Record is one decoded TLV field: its type id and raw value bytes.
type Record struct {
	Type  uint16
	Value []byte
}

// Decode splits buf into a sequence of TLV records. A truncated header or
// value aborts decoding with TruncatedHeader/TruncatedValue.
func Decode(buf []byte) ([]Record, error) {
	var out []Record
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, errTruncatedHeader()
		}
		typ := binary.LittleEndian.Uint16(buf[0:2])
		length := binary.LittleEndian.Uint16(buf[2:4])
		buf = buf[4:]
		if int(length) > len(buf) {
			return nil, errTruncatedValue()
		}
		out = append(out, Record{Type: typ, Value: buf[:length]})
		buf = buf[length:]
	}
	return out, nil
}

// Encoder accumulates TLV records into a byte stream.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Put appends a length-prefixed record of the given type.
func (e *Encoder) Put(typ uint16, value []byte) {
	var hdr [4]byte
	binary.LittleEndian.PutUint16(hdr[0:2], typ)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(value)))
	e.buf = append(e.buf, hdr[:]...)
	e.buf = append(e.buf, value...)
}

// PutU8 appends a single-byte field.
func (e *Encoder) PutU8(typ uint16, v uint8) { e.Put(typ, []byte{v}) }

// PutU32 appends a little-endian 4-byte field.
func (e *Encoder) PutU32(typ uint16, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.Put(typ, b[:])
}

// PutString appends a UTF-8 text field.
func (e *Encoder) PutString(typ uint16, v string) { e.Put(typ, []byte(v)) }

// Bytes returns the accumulated wire bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// FieldU8 extracts an exactly-1-byte record, or InvalidLength.
func FieldU8(r Record, field string) (uint8, error) {
	if len(r.Value) != 1 {
		return 0, ErrInvalidLength(field)
	}
	return r.Value[0], nil
}

// FieldU32 extracts an exactly-4-byte little-endian record, or InvalidLength.
func FieldU32(r Record, field string) (uint32, error) {
	if len(r.Value) != 4 {
		return 0, ErrInvalidLength(field)
	}
	return binary.LittleEndian.Uint32(r.Value), nil
}

// FieldString extracts a UTF-8 text record, or InvalidUtf8.
func FieldString(r Record, field string) (string, error) {
	if !utf8.Valid(r.Value) {
		return "", ErrInvalidUtf8(field)
	}
	return string(r.Value), nil
}
