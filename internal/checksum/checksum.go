package checksum

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// DomainSnapshot separates snapshot digests from any other use of the hash.
// The version suffix allows a future algorithm change.
const DomainSnapshot = "tallykeep/snapshot/v1"

// Sum returns the hex digest of already-canonical bytes.
// Format: xxhash64(domain + 0x00 + data), 16 lowercase hex characters.
func Sum(canonical []byte) string {
	d := xxhash.New()
	_, _ = d.WriteString(DomainSnapshot)
	_, _ = d.Write([]byte{0x00})
	_, _ = d.Write(canonical)
	return fmt.Sprintf("%016x", d.Sum64())
}

// OfJSON canonicalizes a JSON document and returns its digest.
func OfJSON(raw []byte) (string, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return Sum(canonical), nil
}

// Of serializes v and returns its digest.
func Of(v any) (string, error) {
	canonical, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return Sum(canonical), nil
}

// Verify reports whether raw hashes to want.
func Verify(raw []byte, want string) (bool, error) {
	got, err := OfJSON(raw)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

// MustOf is like Of but panics on error.
// Use only in tests or when v is known to be serializable.
func MustOf(v any) string {
	sum, err := Of(v)
	if err != nil {
		panic(err)
	}
	return sum
}

// Short returns the first n characters of a digest for display.
func Short(sum string, n int) string {
	if n <= 0 || n >= len(sum) {
		return sum
	}
	return sum[:n]
}
