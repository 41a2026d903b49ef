package cache

import (
	"context"
	"errors"
	"sync"
)

// Sink receives the dependency keys that must be invalidated after a tree
// mutation commits.
type Sink interface {
	Touch(ctx context.Context, keys []string) error
}

var _ Sink = Nop{}

// Nop drops every key.
type Nop struct{}

func (Nop) Touch(ctx context.Context, keys []string) error {
	return nil
}

var _ Sink = (*Memory)(nil)

// Memory records touched keys in order; it backs tests and single process
// deployments.
type Memory struct {
	mu      sync.Mutex
	touched []string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Touch(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.touched = append(m.touched, keys...)
	return nil
}

// Keys returns every key touched so far.
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.touched...)
}

// Contains reports whether key was touched.
func (m *Memory) Contains(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range m.touched {
		if k == key {
			return true
		}
	}
	return false
}

// Reset forgets the touched keys.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.touched = nil
}

var _ Sink = Multi(nil)

// Multi fans keys out to several sinks. Every sink is called; the errors are
// joined.
type Multi []Sink

func (m Multi) Touch(ctx context.Context, keys []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Touch(ctx, keys); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
