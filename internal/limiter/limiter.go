// Package limiter throttles failed session joins per client so short codes
// cannot be enumerated quickly.
package limiter

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Limiter controls join attempts and temporary lockouts keyed by a hashed client address.
type Limiter interface {
	// Allow reports whether a join is currently allowed and optional retry-after.
	Allow(ctx context.Context, key []byte) (bool, time.Duration, error)
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, key []byte) (bool, time.Duration, error)
}

// Hasher derives stable limiter keys from client addresses without storing them raw.
type Hasher struct{ key []byte }

// NewHasher returns a keyed BLAKE2b-256 hasher; key may be empty and at most 64 bytes.
func NewHasher(key []byte) (*Hasher, error) {
	if len(key) > blake2b.Size {
		return nil, fmt.Errorf("limiter: hash key longer than %d bytes", blake2b.Size)
	}
	return &Hasher{key: append([]byte(nil), key...)}, nil
}

// Hash returns the 32-byte key for addr. The port is ignored so reconnecting
// from a new source port maps to the same key.
func (h *Hasher) Hash(addr string) []byte {
	host := addr
	if hst, _, err := net.SplitHostPort(addr); err == nil {
		host = hst
	}
	m, _ := blake2b.New256(h.key) // key length checked in NewHasher
	_, _ = m.Write([]byte(host))
	return m.Sum(nil)
}

// Policy holds the sliding window and lockout parameters.
type Policy struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}
