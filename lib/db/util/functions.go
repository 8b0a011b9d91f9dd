package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// Seeds
// --------------------------------------------------------------------------

// GenerateSeed returns a random seed, falling back to the clock if crypto/rand fails
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hashing
// --------------------------------------------------------------------------

// UintKey is the hashed form of a string key
type UintKey uint64

// Bucket maps the key onto one of n buckets. The low bits are skipped since
// they are the most likely to collide for short keys.
func (k UintKey) Bucket(n int) int {
	if n <= 1 {
		return 0
	}
	return int((uint64(k) >> 7) % uint64(n))
}

// Hasher hashes strings with FNV-1a mixed with a fixed seed
type Hasher struct {
	seed uint64
}

// NewHasher returns a hasher with a random seed. Hashes are only stable
// for the lifetime of the hasher.
func NewHasher() Hasher {
	return Hasher{seed: GenerateSeed()}
}

// NewSeededHasher returns a hasher whose hashes are stable across processes
func NewSeededHasher(seed uint64) Hasher {
	return Hasher{seed: seed}
}

// Key hashes s
func (h Hasher) Key(s string) UintKey {
	return HashString(s, h.seed)
}

// HashString hashes s with FNV-1a, starting from the offset basis xor seed
func HashString(s string, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	hash := uint64(offset64) ^ seed
	for i := 0; i < len(s); i++ {
		hash = (hash ^ uint64(s[i])) * prime64
	}
	return UintKey(hash)
}
