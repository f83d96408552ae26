// Package codec decodes the byte-level and JSON encodings found in ledger object fields.
package codec

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodeVectorBytes decodes a vector<u8> field rendered either as a base64 string
// or as a JSON array of byte values. Strings with a 0x prefix are decoded as hex.
func DecodeVectorBytes(raw json.RawMessage) ([]byte, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, fmt.Errorf("decode vector string: %w", err)
		}
		return decodeByteString(s)
	case '[':
		var values []json.Number
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("decode vector array: %w", err)
		}
		out := make([]byte, len(values))
		for i, v := range values {
			n, err := v.Int64()
			if err != nil || n < 0 || n > 255 {
				return nil, fmt.Errorf("vector element %d out of byte range: %s", i, v)
			}
			out[i] = byte(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported vector encoding")
}

func decodeByteString(value string) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		return hex.DecodeString(trimmed[2:])
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(trimmed)
}

// DecodeVectorString decodes a vector<u8> field to UTF-8 text.
// Absent input yields "". A string that is not valid base64 or hex is returned as-is;
// an unreadable array yields "". Invalid UTF-8 sequences become U+FFFD.
func DecodeVectorString(raw json.RawMessage) string {
	b, err := DecodeVectorBytes(raw)
	if err != nil {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
		return ""
	}
	return BytesToString(b)
}

// BytesToString converts bytes to a string, replacing invalid UTF-8.
func BytesToString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// EncodeVectorString returns the UTF-8 bytes of s for a vector<u8> argument.
func EncodeVectorString(s string) []byte {
	return []byte(s)
}
