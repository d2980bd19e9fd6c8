package wasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUint32(t *testing.T) {
	tests := []struct {
		in  uint32
		out []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{624485, []byte{0xe5, 0x8e, 0x26}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.out, EncodeUint32(tc.in))
	}
}

func TestDecodeUint32(t *testing.T) {
	tests := []struct {
		in  []byte
		out uint32
		n   uint64
	}{
		{[]byte{0x00}, 0, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0xe5, 0x8e, 0x26}, 624485, 3},
	}
	for _, tc := range tests {
		v, n, err := DecodeUint32(bytes.NewReader(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.out, v)
		assert.Equal(t, tc.n, n)
	}
}

func TestEncodeInt32(t *testing.T) {
	tests := []struct {
		in  int32
		out []byte
	}{
		{0, []byte{0x00}},
		{-1, []byte{0x7f}},
		{-129, []byte{0xff, 0x7e}},
		{127, []byte{0xff, 0x00}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.out, EncodeInt32(tc.in))
	}
}

func TestDecodeInt32(t *testing.T) {
	tests := []struct {
		in  []byte
		out int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0xff, 0x7e}, -129},
		{[]byte{0xff, 0x00}, 127},
	}
	for _, tc := range tests {
		v, _, err := DecodeInt32(bytes.NewReader(tc.in))
		require.NoError(t, err)
		assert.Equal(t, tc.out, v)
	}
}

func TestEncodeDecodeUint64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 1 << 33, ^uint64(0)}
	for _, v := range values {
		enc := EncodeUint64(v)
		got, n, err := DecodeUint64(bytes.NewReader(enc))
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, uint64(len(enc)), n)
	}
}

func TestEncodeDecodeInt64RoundTrip(t *testing.T) {
	values := []int64{0, -1, 1, -129, 127, -1 << 40, 1<<62 - 1}
	for _, v := range values {
		enc := EncodeInt64(v)
		got, n, err := DecodeInt64(bytes.NewReader(enc))
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Equal(t, uint64(len(enc)), n)
	}
}

func TestDecodeInt33AsInt64(t *testing.T) {
	enc := EncodeInt64(-1)
	v, _, err := DecodeInt33AsInt64(bytes.NewReader(enc))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestDecodeUint32OverflowsOnTooManyBits(t *testing.T) {
	// Five bytes (four with the continuation bit) encoding 2^32, a value that
	// needs more than 32 bits.
	_, _, err := DecodeUint32(bytes.NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x10}))
	assert.Error(t, err)
}
