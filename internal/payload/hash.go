package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed payload identity. The version suffix
// leaves room for an algorithm migration without colliding hashes.
const DomainPayload = "moments/payload/v1"

// hashWithDomain computes SHA-256 over domain + 0x00 + data. The null
// separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash computes the content hash of canonical payload bytes.
func Hash(canonical []byte) string {
	return hashWithDomain(DomainPayload, canonical)
}

// HashValue canonicalizes v and hashes it. Returns an error when v cannot
// be canonically marshaled.
func HashValue(v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("HashValue: failed to marshal: %w", err)
	}
	return Hash(data), nil
}
