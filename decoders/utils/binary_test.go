package utils

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryDecoder(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1, 0x12, 0x34, 0xde, 0xad, 0xbe, 0xef, 0, 0, 0, 0, 0, 0, 0, 42, 0xaa, 0xbb})
	var (
		b   byte
		u16 uint16
		u32 uint32
		u64 uint64
	)
	raw := make([]byte, 2)
	require.NoError(t, BinaryDecoder(buf, &b, &u16, &u32, &u64, raw))
	assert.Equal(t, byte(1), b)
	assert.Equal(t, uint16(0x1234), u16)
	assert.Equal(t, uint32(0xdeadbeef), u32)
	assert.Equal(t, uint64(42), u64)
	assert.Equal(t, []byte{0xaa, 0xbb}, raw)
}

func TestBinaryDecoderShort(t *testing.T) {
	buf := bytes.NewBuffer([]byte{1})
	var u32 uint32
	err := BinaryDecoder(buf, &u32)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestDecodeUNumber(t *testing.T) {
	assert.Equal(t, uint64(0x42), DecodeUNumber([]byte{0x42}))
	assert.Equal(t, uint64(0x1234), DecodeUNumber([]byte{0x12, 0x34}))
	assert.Equal(t, uint64(0xdeadbeef), DecodeUNumber([]byte{0xde, 0xad, 0xbe, 0xef}))
	assert.Zero(t, DecodeUNumber(nil))
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteU8(&buf, 7))
	require.NoError(t, WriteU16(&buf, 4739))
	require.NoError(t, WriteU32(&buf, 1<<31))
	require.NoError(t, WriteU64(&buf, 1<<62))

	var (
		b   byte
		u16 uint16
		u32 uint32
		u64 uint64
	)
	require.NoError(t, BinaryDecoder(&buf, &b, &u16, &u32, &u64))
	assert.Equal(t, byte(7), b)
	assert.Equal(t, uint16(4739), u16)
	assert.Equal(t, uint32(1<<31), u32)
	assert.Equal(t, uint64(1<<62), u64)
}
