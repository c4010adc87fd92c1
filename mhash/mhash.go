// Package mhash provides the fixed-seed, non-cryptographic string hash the
// rest of ftsearch relies on for its dictionary layout. Two engines opened
// against the same base directory must agree on a token's hash, so the seed
// is a hardcoded constant, never caller-configurable in production use.
package mhash

import "github.com/spaolacci/murmur3"

// Algorithm selects the hash width used for a segment's dictionary.
type Algorithm uint8

const (
	// Algorithm32 uses a 32-bit hash; segments built with it carry a 12-byte
	// header and 20-byte dictionary entries.
	Algorithm32 Algorithm = 32
	// Algorithm64 uses a 64-bit hash; segments built with it carry a 16-byte
	// header (with an explicit hash-width tag) and 28-byte dictionary entries.
	// This is the default.
	Algorithm64 Algorithm = 64
)

// DefaultSeed is the fixed MurmurHash3 seed used unless a caller injects a
// custom Hash implementation. It is schema, not configuration: changing it
// desynchronizes lookups against an existing base directory.
const DefaultSeed uint32 = 0x12345678

// Hash computes token hashes for a given algorithm and seed. Implementations
// must be deterministic and stable across processes.
type Hash interface {
	// Sum32 returns the 32-bit hash of token.
	Sum32(token string) uint32
	// Sum64 returns the 64-bit hash of token.
	Sum64(token string) uint64
	// Algorithm reports which width this implementation is meant to back.
	Algorithm() Algorithm
}

// murmur is the reference Hash backed by github.com/spaolacci/murmur3: a
// seeded, collision-resistant-enough, non-cryptographic string hash.
type murmur struct {
	seed uint32
	alg  Algorithm
}

// New32 returns the default 32-bit hash with the fixed seed.
func New32() Hash { return murmur{seed: DefaultSeed, alg: Algorithm32} }

// New64 returns the default 64-bit hash with the fixed seed.
func New64() Hash { return murmur{seed: DefaultSeed, alg: Algorithm64} }

// New returns the default hash for the requested algorithm.
func New(alg Algorithm) Hash {
	if alg == Algorithm32 {
		return New32()
	}
	return New64()
}

// newWithSeed is exposed only to tests that need to assert seed sensitivity;
// production callers must use New/New32/New64.
func newWithSeed(alg Algorithm, seed uint32) Hash {
	return murmur{seed: seed, alg: alg}
}

func (m murmur) Sum32(token string) uint32 {
	return murmur3.Sum32WithSeed([]byte(token), m.seed)
}

func (m murmur) Sum64(token string) uint64 {
	return murmur3.Sum64WithSeed([]byte(token), m.seed)
}

func (m murmur) Algorithm() Algorithm { return m.alg }
