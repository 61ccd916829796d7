// internal/session/manager.go
//
// In-memory registry of live form sessions.
//
// Context
// -------
// The HTTP surface maps a session id to its Controller.  Sessions are cheap
// but unbounded visitors are not, so the Manager caps the set with an LRU
// and runs a background evictor that drops sessions idle longer than
// idleTTL.  Every eviction closes the controller (stopping its banner
// timer and subscriber channels) and updates Prometheus counters.
//
// Notes
// -----
//   - Get refreshes recency; an active visitor is never idle-evicted.
//   - Close stops the evictor and closes every remaining controller.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/neurion/internal/cache"
	"github.com/yanizio/neurion/internal/metrics"
)

// Static defaults.  Override through ManagerOptions.
const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultMaxEntries    = 10_000
	DefaultEvictInterval = time.Minute
)

// ErrNotFound is returned for unknown or evicted session ids.
var ErrNotFound = errors.New("session: not found")

// ManagerOptions tune a Manager.  Zero values select the defaults.
type ManagerOptions struct {
	IdleTTL       time.Duration
	MaxEntries    int
	EvictInterval time.Duration
	SuccessDelay  time.Duration
	Logger        *zap.SugaredLogger
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Manager owns every live Controller.
type Manager struct {
	sub     Submitter
	opts    ManagerOptions
	log     *zap.SugaredLogger
	now     func() time.Time
	newID   func() string
	mu      sync.Mutex
	lru     *cache.LRU[string, *entry]
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
}

// NewManager constructs a Manager and starts the background evictor.
func NewManager(sub Submitter, opts ManagerOptions) *Manager {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.EvictInterval <= 0 {
		opts.EvictInterval = DefaultEvictInterval
	}
	log := opts.Logger
	if log == nil {
		log = zap.S()
	}

	m := &Manager{
		sub:   sub,
		opts:  opts,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
		stop:  make(chan struct{}),
	}
	m.lru = cache.New[string, *entry](opts.MaxEntries, func(id string, e *entry) {
		e.ctrl.Close()
		m.log.Infow("session evicted (LRU pressure)", "session", id)
		metrics.SessionEvictTotal.Inc()
		metrics.ActiveSessions.Dec()
	})

	m.stopped.Add(1)
	go m.evictLoop()
	return m
}

// Create registers a fresh Controller and returns its id.
func (m *Manager) Create() (string, *Controller) {
	id := m.newID()
	ctrl := NewController(m.sub, Options{SuccessDelay: m.opts.SuccessDelay})

	m.mu.Lock()
	m.lru.Add(id, &entry{ctrl: ctrl, lastSeen: m.now()})
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return id, ctrl
}

// Get returns the Controller for id and refreshes its recency.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// Delete closes and forgets id.  Unknown ids are ignored.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	e, ok := m.lru.Remove(id)
	m.mu.Unlock()

	if ok {
		e.ctrl.Close()
		metrics.ActiveSessions.Dec()
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lru.Len()
}

// Close stops the evictor and closes all sessions.  Idempotent.
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.stop)
		m.stopped.Wait()

		m.mu.Lock()
		defer m.mu.Unlock()
		for _, id := range m.lru.Keys() {
			if e, ok := m.lru.Remove(id); ok {
				e.ctrl.Close()
				metrics.ActiveSessions.Dec()
			}
		}
	})
}

// -----------------------------------------------------------------------------
// Eviction
// -----------------------------------------------------------------------------

func (m *Manager) evictLoop() {
	defer m.stopped.Done()

	t := time.NewTicker(m.opts.EvictInterval)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.evictIdle()
		}
	}
}

// evictIdle walks from the least recently used end and stops at the first
// session that is still fresh.
func (m *Manager) evictIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int
	for {
		id, e, ok := m.lru.Oldest()
		if !ok {
			break
		}
		idle := now.Sub(e.lastSeen)
		if idle <= m.opts.IdleTTL {
			break
		}
		m.lru.Remove(id)
		e.ctrl.Close()
		m.log.Infow("session evicted", "session", id, "idle", idle.Truncate(time.Second))
		metrics.SessionEvictTotal.Inc()
		metrics.ActiveSessions.Dec()
		n++
	}
	return n
}
