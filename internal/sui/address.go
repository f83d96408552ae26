package sui

import "strings"

// AddressLength is the hex length of a normalized Sui address, without the 0x prefix.
const AddressLength = 64

// NormalizeAddress lower-cases value, strips 0x and left-pads to 64 hex digits.
// Values that are not hex, or too long, are returned trimmed but otherwise as given.
func NormalizeAddress(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	hexPart := strings.ToLower(trimmed)
	hexPart = strings.TrimPrefix(hexPart, "0x")
	if hexPart == "" || len(hexPart) > AddressLength || !isHex(hexPart) {
		return trimmed
	}
	return "0x" + strings.Repeat("0", AddressLength-len(hexPart)) + hexPart
}

// IsValidAddress reports whether value is a 0x-prefixed address of at most 64 hex digits.
func IsValidAddress(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if !strings.HasPrefix(v, "0x") {
		return false
	}
	v = v[2:]
	return v != "" && len(v) <= AddressLength && isHex(v)
}

func isHex(s string) bool {
	for _, c := range s {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') {
			continue
		}
		return false
	}
	return true
}
