package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Load when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// ErrLocked is returned by Acquire while another unexpired lease holds the key.
var ErrLocked = errors.New("storage: key is locked")

// Store is a durable key/value surface holding serialized chat histories.
// Writers are not coordinated: the last Save for a key wins.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Locker grants short exclusive leases on a key so that writers in different
// processes do not interleave turns on one history. A lease expires after ttl
// even if it is never released.
type Locker interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) error
	Release(ctx context.Context, key, owner string) error
}

// Memory is an in-process Store, used by tests and the "memory" backend.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	leases map[string]lease
}

type lease struct {
	owner   string
	expires time.Time
}

var _ Locker = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte), leases: make(map[string]lease)}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Acquire(_ context.Context, key, owner string, ttl time.Duration) error {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[key]; ok && now.Before(l.expires) {
		return ErrLocked
	}
	m.leases[key] = lease{owner: owner, expires: now.Add(ttl)}
	return nil
}

// Release drops the lease if owner still holds it.
func (m *Memory) Release(_ context.Context, key, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leases[key]; ok && l.owner == owner {
		delete(m.leases, key)
	}
	return nil
}
