// Package canon provides deterministic binary encoding and content
// hashing for engine data structures.
//
// All integrity features of the engine (AST content hashes, cache
// checksums, cache key hashes) are built on the same two primitives:
// canonical CBOR encoding and BLAKE2b-128. Keeping them in one place
// guarantees that two subsystems never disagree about what the
// canonical bytes of a value are.
package canon

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// DigestSize is the size in bytes of all content hashes produced by
// this package (BLAKE2b-128).
const DigestSize = 16

// Digest is a BLAKE2b-128 content hash.
type Digest [DigestSize]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string {
	return fmt.Sprintf("%x", d[:])
}

// IsZero reports whether the digest is the all-zero value.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

var encMode cbor.EncMode

func init() {
	// Canonical options sort map keys and force shortest-form integers,
	// so the same value always encodes to the same bytes.
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("canon: failed to create CBOR encoder: %v", err))
	}
	encMode = mode
}

// Encode produces the canonical CBOR encoding of v.
func Encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Hash computes the BLAKE2b-128 digest of the canonical encoding of v.
func Hash(v any) (Digest, error) {
	data, err := Encode(v)
	if err != nil {
		return Digest{}, err
	}
	return HashBytes(data), nil
}

// HashBytes computes the BLAKE2b-128 digest of raw bytes.
func HashBytes(data []byte) Digest {
	hasher, err := blake2b.New(DigestSize, nil)
	if err != nil {
		// blake2b only errors on invalid key/size arguments, both fixed here.
		panic(fmt.Sprintf("canon: blake2b init: %v", err))
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
