package ingestion

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the blake2b-256 hex digest of cleaned content. It is
// the de-duplication key of the corpus.
func Fingerprint(content string) string {
	sum := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
