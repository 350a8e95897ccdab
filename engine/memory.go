package engine

import (
	"sync"
	"time"
)

// memoryEntry stores the preferred engine for a key with a TTL.
type memoryEntry struct {
	engineName string
	expiresAt  time.Time
}

// Memory remembers which engine last worked for each source. Entries expire
// after the configured TTL so a source that unblocks plain HTTP again gets
// rediscovered, and are pruned periodically.
type Memory struct {
	store sync.Map // key (string) -> *memoryEntry
	ttl   time.Duration
	done  chan struct{}
}

// NewMemory creates a Memory with the given TTL and starts a background
// goroutine that prunes expired entries every 10 minutes.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns the remembered engine name for key, or "" if absent/expired.
func (m *Memory) Get(key string) string {
	val, ok := m.store.Load(key)
	if !ok {
		return ""
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.store.Delete(key)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for key.
func (m *Memory) Set(key, engineName string) {
	m.store.Store(key, &memoryEntry{
		engineName: engineName,
		expiresAt:  time.Now().Add(m.ttl),
	})
}

// Delete removes the memory for key (e.g. after the remembered engine fails).
func (m *Memory) Delete(key string) {
	m.store.Delete(key)
}

// Stop terminates the background cleanup goroutine.
func (m *Memory) Stop() {
	close(m.done)
}

// cleanupLoop prunes expired entries every 10 minutes.
func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			now := time.Now()
			m.store.Range(func(key, value any) bool {
				entry := value.(*memoryEntry)
				if now.After(entry.expiresAt) {
					m.store.Delete(key)
				}
				return true
			})
		}
	}
}
