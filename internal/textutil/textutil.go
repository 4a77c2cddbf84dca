package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// HashBytes computes a SHA-256 hex hash of data, used to recognize map files already ingested.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ParseVector parses a whitespace separated "x y z" value such as an entity origin.
func ParseVector(s string) ([3]float32, error) {
	var v [3]float32
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return v, fmt.Errorf("vector %q: want 3 components, got %d", s, len(fields))
	}
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return v, fmt.Errorf("vector %q: component %d: %w", s, i, err)
		}
		v[i] = float32(n)
	}
	return v, nil
}
