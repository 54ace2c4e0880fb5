// Package merkle computes the merkle root commitment for an ordered list
// of transactions.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Root returns the hex encoded merkle root for the ordered list of values.
// Each value is hashed from its canonical JSON form, then adjacent pairs of
// hex digests are concatenated and hashed again until a single digest
// remains. When a level holds an odd count, the last digest is paired with
// itself. An empty list commits to the hash of the empty byte string.
func Root[T any](values []T) (string, error) {
	if len(values) == 0 {
		return EmptyRoot(), nil
	}

	hashes := make([]string, len(values))
	for i, value := range values {
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("marshal value: %w", err)
		}
		sum := sha256.Sum256(data)
		hashes[i] = hex.EncodeToString(sum[:])
	}

	for len(hashes) > 1 {
		level := make([]string, 0, (len(hashes)+1)/2)

		for i := 0; i < len(hashes); i += 2 {
			combined := hashes[i] + hashes[i]
			if i+1 < len(hashes) {
				combined = hashes[i] + hashes[i+1]
			}

			sum := sha256.Sum256([]byte(combined))
			level = append(level, hex.EncodeToString(sum[:]))
		}

		hashes = level
	}

	return hashes[0], nil
}

// EmptyRoot returns the root committing to an empty transaction list, the
// hash of the empty byte string.
func EmptyRoot() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}
