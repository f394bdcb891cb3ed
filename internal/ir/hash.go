package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainCondition = "sqlcond/condition/v1"
	DomainStatement = "sqlcond/stmt/v1"
	DomainMigration = "sqlcond/migration/v1"
)

// Checksum computes a SHA-256 hex digest with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func Checksum(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ValueChecksum hashes the canonical encoding of v under the given domain.
func ValueChecksum(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ValueChecksum: failed to marshal: %w", err)
	}
	return Checksum(domain, canonical), nil
}
