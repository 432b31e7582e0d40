// Package checksum computes integrity digests over serialized snapshots.
//
// The digest is xxhash64 over a canonical JSON rendering of the payload,
// prefixed with a versioned domain string. It is NOT cryptographic: it guards
// against accidental corruption (truncated files, bad copies, hand edits),
// not against tampering. Anyone can recompute it.
//
// Canonical rendering makes the digest independent of key order, whitespace
// and Unicode normalization, so a document that is re-indented or produced by
// another serializer still verifies:
//   - object keys sorted by UTF-16 code units
//   - no insignificant whitespace, no HTML escaping
//   - strings NFC-normalized
//   - numbers emitted as their original JSON literal
package checksum
