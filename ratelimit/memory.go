package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket is one client's token budget.
type bucket struct {
	capacity   int
	available  int
	window     time.Duration
	lastRefill time.Time
}

// refill adds the tokens earned since the last refill.
func (b *bucket) refill(now time.Time) {
	if b.window <= 0 || b.capacity <= 0 {
		return
	}
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	earned := int(float64(b.capacity) * float64(elapsed) / float64(b.window))
	if earned <= 0 {
		return
	}
	b.available += earned
	if b.available > b.capacity {
		b.available = b.capacity
	}
	b.lastRefill = now
}

// nextToken reports how long until one token refills.
func (b *bucket) nextToken() time.Duration {
	if b.capacity <= 0 {
		return time.Second
	}
	return b.window / time.Duration(b.capacity)
}

// MemoryLimiter is a local token-bucket limiter keyed by client. When
// constructed with default capacity, buckets are created lazily on
// first use, which is how the API middleware admits new clients.
// Safe for concurrent use.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	nowFunc func() time.Time

	defaultCapacity int
	defaultWindow   time.Duration
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithDefaultCapacity makes unknown clients start with this budget
// instead of being rejected.
func WithDefaultCapacity(capacity int, window time.Duration) MemoryOption {
	return func(m *MemoryLimiter) {
		m.defaultCapacity = capacity
		m.defaultWindow = window
	}
}

// withNowFunc substitutes the clock in tests.
func withNowFunc(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		m.nowFunc = now
	}
}

// NewMemoryLimiter creates an in-memory limiter.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	m := &MemoryLimiter{
		buckets: make(map[string]*bucket),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCapacity configures one client's budget.
func (m *MemoryLimiter) SetCapacity(client string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if capacity <= 0 || window <= 0 {
		delete(m.buckets, client)
		return
	}
	if b, ok := m.buckets[client]; ok {
		b.capacity = capacity
		b.window = window
		if b.available > capacity {
			b.available = capacity
		}
		return
	}
	m.buckets[client] = &bucket{
		capacity:   capacity,
		available:  capacity,
		window:     window,
		lastRefill: m.nowFunc(),
	}
}

// GetCapacity returns the client's current budget.
func (m *MemoryLimiter) GetCapacity(client string) *Capacity {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[client]
	if !ok {
		return nil
	}
	b.refill(m.nowFunc())
	return &Capacity{
		Client:    client,
		Available: b.available,
		Total:     b.capacity,
		Window:    b.window,
	}
}

// TryAcquire takes one token without blocking.
func (m *MemoryLimiter) TryAcquire(client string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	b := m.bucketFor(client)
	if b == nil {
		return false
	}
	b.refill(m.nowFunc())
	if b.available <= 0 {
		return false
	}
	b.available--
	return true
}

// Acquire blocks until a token is available or ctx ends.
func (m *MemoryLimiter) Acquire(ctx context.Context, client string) error {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		b := m.bucketFor(client)
		if b == nil {
			m.mu.Unlock()
			return ErrClientUnknown
		}
		b.refill(m.nowFunc())
		if b.available > 0 {
			b.available--
			m.mu.Unlock()
			return nil
		}
		wait := b.nextToken()
		m.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Close shuts down the limiter.
func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.buckets = make(map[string]*bucket)
	return nil
}

// bucketFor returns the client's bucket, creating one from the
// defaults when lazy admission is configured. Caller holds the lock.
func (m *MemoryLimiter) bucketFor(client string) *bucket {
	if b, ok := m.buckets[client]; ok {
		return b
	}
	if m.defaultCapacity <= 0 || m.defaultWindow <= 0 {
		return nil
	}
	b := &bucket{
		capacity:   m.defaultCapacity,
		available:  m.defaultCapacity,
		window:     m.defaultWindow,
		lastRefill: m.nowFunc(),
	}
	m.buckets[client] = b
	return b
}
