package models

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// StableID derives a deterministic 12-character identifier from the given
// natural fields. The same inputs always yield the same identifier, which
// is what makes cross-run deduplication and upsert targeting work without
// external state. The digest is identity material, not a secret, so a
// short MD5 prefix is sufficient.
func StableID(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "-")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))[:12]
}

// PseudonymizeField replaces a personal-data value with its SHA-256 hex
// digest. Empty input yields an empty digest so absent fields stay NULL
// in the warehouse.
//
// The digest is deliberately salt-free: the same plaintext must hash to
// the same value across runs so that repeated partner submissions collapse
// to one pseudonym and re-runs stay idempotent. The trade-off is that
// known candidate values can be confirmed by hashing them; an audited
// erasure procedure exists for removal requests.
func PseudonymizeField(value string) string {
	if value == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
