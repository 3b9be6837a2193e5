// Package utils carries the binary read/write helpers shared by the wire
// codec. Everything is big-endian, per RFC 7011.
package utils

import (
	"bytes"
	"encoding/binary"
	"io"
)

// BinaryDecoder reads each destination in order from the payload. Supported
// destinations are pointers to unsigned integers and byte slices; a short
// buffer yields io.ErrUnexpectedEOF with nothing guaranteed about the
// partially filled destinations.
func BinaryDecoder(payload *bytes.Buffer, dests ...interface{}) error {
	for _, dest := range dests {
		if err := binaryReadOne(payload, dest); err != nil {
			return err
		}
	}
	return nil
}

func binaryReadOne(payload *bytes.Buffer, dest interface{}) error {
	switch d := dest.(type) {
	case *byte:
		v, err := payload.ReadByte()
		if err != nil {
			return io.ErrUnexpectedEOF
		}
		*d = v
	case *uint16:
		if payload.Len() < 2 {
			return io.ErrUnexpectedEOF
		}
		*d = binary.BigEndian.Uint16(payload.Next(2))
	case *uint32:
		if payload.Len() < 4 {
			return io.ErrUnexpectedEOF
		}
		*d = binary.BigEndian.Uint32(payload.Next(4))
	case *uint64:
		if payload.Len() < 8 {
			return io.ErrUnexpectedEOF
		}
		*d = binary.BigEndian.Uint64(payload.Next(8))
	case []byte:
		if payload.Len() < len(d) {
			return io.ErrUnexpectedEOF
		}
		copy(d, payload.Next(len(d)))
	default:
		return binary.Read(payload, binary.BigEndian, dest)
	}
	return nil
}

// DecodeUNumber widens a big-endian field of 1, 2, 4 or 8 bytes (or any
// other width up to 8) into a uint64. Schema-driven decode uses this for
// counters whose declared length varies by template.
func DecodeUNumber(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func WriteU8(buf *bytes.Buffer, v uint8) error {
	return buf.WriteByte(v)
}

func WriteU16(buf *bytes.Buffer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := buf.Write(b[:])
	return err
}

func WriteU32(buf *bytes.Buffer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := buf.Write(b[:])
	return err
}

func WriteU64(buf *bytes.Buffer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := buf.Write(b[:])
	return err
}
