package wasm

import (
	"fmt"
	"io"
)

// LEB128 encoding/decoding for the integer forms the WASM binary format
// uses: unsigned for indices/counts/vector lengths, signed for constants and
// type-section relative indices that may be negative (s33 in the spec, here
// decoded straight to int64 since Go has no 33-bit integer type).
//
// Grounded on tetratelabs-wazero's wasm/leb128 package: same function names,
// same Decode signature (value, bytes consumed, error), same byte encodings.

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte { return EncodeUint64(uint64(v)) }

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte { return EncodeInt64(int64(v)) }

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// DecodeUint32 reads an unsigned LEB128 value no wider than 32 bits,
// returning the value, the number of bytes consumed, and an error if the
// encoding overflows or the reader runs out before a terminating byte.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	v, n, err := decodeUint(r, 32)
	return uint32(v), n, err
}

// DecodeUint64 reads an unsigned LEB128 value no wider than 64 bits.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	return decodeUint(r, 64)
}

func decodeUint(r io.ByteReader, bits int) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var n uint64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("wasm: leb128: %w", err)
		}
		n++
		if shift >= uint(bits) && (b&0x7f) != 0 {
			return 0, n, fmt.Errorf("wasm: leb128: overflows %d bits", bits)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if bits < 64 && result>>uint(bits) != 0 {
				return 0, n, fmt.Errorf("wasm: leb128: overflows %d bits", bits)
			}
			return result, n, nil
		}
		shift += 7
		if shift >= maxVarintLen64*7 {
			return 0, n, fmt.Errorf("wasm: leb128: too many continuation bytes")
		}
	}
}

// DecodeInt32 reads a signed LEB128 value no wider than 32 bits.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := decodeInt(r, 32)
	if err != nil {
		return 0, n, err
	}
	if v < -(1<<31) || v >= 1<<31 {
		return 0, n, fmt.Errorf("wasm: leb128: value %d overflows 32 bits", v)
	}
	return int32(v), n, nil
}

// DecodeInt64 reads a signed LEB128 value no wider than 64 bits.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeInt(r, 64)
}

// DecodeInt33AsInt64 reads a signed LEB128 value no wider than 33 bits,
// returned widened to int64. Used for the type section's relative supertype
// references, which the spec defines as s33.
func DecodeInt33AsInt64(r io.ByteReader) (int64, uint64, error) {
	return decodeInt(r, 33)
}

func decodeInt(r io.ByteReader, bits int) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	var b byte
	var err error
	for {
		b, err = r.ReadByte()
		if err != nil {
			return 0, n, fmt.Errorf("wasm: leb128: %w", err)
		}
		n++
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= maxVarintLen64*7 {
			return 0, n, fmt.Errorf("wasm: leb128: too many continuation bytes")
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}
