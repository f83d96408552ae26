package txbuilder

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns a hex blake2b-256 digest of the serialized request.
// Identical requests have identical fingerprints.
func Fingerprint(req *Request) (string, error) {
	data, err := req.JSON()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
