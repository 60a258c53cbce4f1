package limiter

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process limiter used when no database is configured.
type Memory struct {
	mu        sync.Mutex
	policy    Policy
	now       func() time.Time
	recs      map[string]*memRecord
	lastSweep time.Time
}

type memRecord struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{policy: p, now: time.Now, recs: make(map[string]*memRecord)}
}

// Allow reports whether a join is currently allowed.
func (m *Memory) Allow(_ context.Context, key []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[string(key)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); r.blockedUntil.After(now) {
		return false, r.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Failure counts a failed attempt within the window and blocks at the threshold.
func (m *Memory) Failure(_ context.Context, key []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweepLocked(now)
	r, ok := m.recs[string(key)]
	if !ok || m.expired(r, now) {
		r = &memRecord{}
		m.recs[string(key)] = r
	}
	r.fails++
	r.updatedAt = now
	if r.fails < m.policy.MaxFails {
		return false, 0, nil
	}
	r.blockedUntil = now.Add(m.policy.BlockFor)
	return true, m.policy.BlockFor, nil
}

// expired reports whether r no longer counts toward a block.
func (m *Memory) expired(r *memRecord, now time.Time) bool {
	return now.Sub(r.updatedAt) > m.policy.Window && !r.blockedUntil.After(now)
}

// sweepLocked drops expired records at most once per window.
func (m *Memory) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < m.policy.Window {
		return
	}
	m.lastSweep = now
	for k, r := range m.recs {
		if m.expired(r, now) {
			delete(m.recs, k)
		}
	}
}
