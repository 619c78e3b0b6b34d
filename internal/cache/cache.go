// Package cache holds in-process caches and their expiry housekeeping.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"vogon/internal/log"
)

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	// Purge drops every entry.
	Purge()
	Size() int
}

// Expirer is a cache that can drop its expired entries on demand.
type Expirer interface {
	CleanExpired() int
}

// Manager sweeps registered caches on an interval.
type Manager struct {
	mu      sync.Mutex
	caches  []Expirer
	stop    chan struct{}
	stopped chan struct{}
}

func NewManager() *Manager {
	return &Manager{}
}

// Register adds c to the sweep. Safe to call while the sweep runs.
func (m *Manager) Register(c Expirer) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup sweeps every interval until Stop. A second call is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.stopped = make(chan struct{})
	go m.sweep(interval, m.stop, m.stopped)
}

func (m *Manager) sweep(interval time.Duration, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				slog.Debug("Expired cache entries removed",
					log.FieldComponent, log.ComponentCache,
					log.FieldCount, n)
			}
		case <-stop:
			return
		}
	}
}

// CleanNow sweeps every cache once and returns the number of dropped entries.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Expirer(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the sweep and waits for it. Safe to call more than once.
func (m *Manager) Stop() {
	m.mu.Lock()
	stop, stopped := m.stop, m.stopped
	m.stop, m.stopped = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-stopped
}
