package cloud

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashPrefix identifies the digest algorithm in content hashes.
const HashPrefix = "sha256:"

// ContentHash computes the content identifier for a blob:
// "sha256:" + lowercase hex of the SHA-256 digest. Two blobs with identical
// bytes always share one hash, which is what makes asset deduplication and
// the remote exists-check correct.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// ValidContentHash reports whether s has the expected algorithm prefix and a
// full-length lowercase hex digest. Used to reject malformed hashes before
// they reach the cache or the wire.
func ValidContentHash(s string) bool {
	if !strings.HasPrefix(s, HashPrefix) {
		return false
	}
	digest := s[len(HashPrefix):]
	if len(digest) != sha256.Size*2 {
		return false
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
