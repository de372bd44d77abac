// Package crypto exposes the digest primitives used to seal a store's
// geometry.
//
// Contents
//
//   - Incremental BLAKE2b-256 digests over typed records (Digest)
//   - Short hex fingerprints for display/logging (Fingerprint)
//
// Records are written with fixed-width little-endian numbers and
// length-prefixed strings, so two encodings of the same geometry always hash
// the same.
package crypto
