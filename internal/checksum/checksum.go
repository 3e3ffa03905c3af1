// Package checksum provides content hashing for change detection.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fingerprint derives a single digest for a whole corpus from per-file
// checksums, independent of map iteration order. Two corpora with identical
// file contents produce identical fingerprints, so a no-op rebuild can be
// skipped.
func Fingerprint(files map[string]string) string {
	lines := make([]string, 0, len(files))
	for path, sum := range files {
		lines = append(lines, path+":"+sum)
	}
	sort.Strings(lines)
	return Sum([]byte(strings.Join(lines, "\n")))
}
