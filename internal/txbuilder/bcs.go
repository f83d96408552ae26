package txbuilder

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// =============================================================================
// BCS encoding of pure arguments
// =============================================================================

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// EncodeU16 encodes a little-endian u16.
func EncodeU16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// EncodeU64 encodes a little-endian u64.
func EncodeU64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

// EncodeU128 encodes a little-endian u128. Negative values and values above
// 2^128-1 are rejected.
func EncodeU128(v *big.Int) ([]byte, error) {
	if v == nil || v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return nil, fmt.Errorf("value %v out of u128 range", v)
	}
	be := v.FillBytes(make([]byte, 16))
	out := make([]byte, 16)
	for i := range be {
		out[15-i] = be[i]
	}
	return out, nil
}

// EncodeBool encodes a bool as a single byte.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeBytes encodes a vector<u8> as a ULEB128 length followed by the bytes.
func EncodeBytes(v []byte) []byte {
	out := EncodeULEB128(uint64(len(v)))
	return append(out, v...)
}

// EncodeString encodes a Move String, which has the vector<u8> layout.
func EncodeString(s string) []byte {
	return EncodeBytes([]byte(s))
}

// EncodeULEB128 encodes an unsigned LEB128 integer.
func EncodeULEB128(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
