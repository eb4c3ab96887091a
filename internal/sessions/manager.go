package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"recruitment-backend/internal/generation"
	"recruitment-backend/internal/shared/metrics"
	"recruitment-backend/internal/shared/telemetry"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTTL            = 30 * time.Minute
	defaultPersistTimeout = 3 * time.Second
)

// Options configures a Manager.
type Options struct {
	Backend           generation.Backend
	Store             Store
	TTL               time.Duration
	SweepInterval     time.Duration
	NotificationLimit int
	Now               func() time.Time
}

type environment struct {
	ctx               context.Context
	backend           generation.Backend
	store             Store
	ttl               time.Duration
	persistTimeout    time.Duration
	notificationLimit int
	now               func() time.Time
}

// Manager owns the live sessions of this process.
type Manager struct {
	env    *environment
	sweep  time.Duration
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// lifecycle orders resume against Delete so a deleted session is never
	// rebuilt from its snapshot.
	lifecycle sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager constructs a Manager. Call Start to run the idle sweeper.
func NewManager(opts Options) *Manager {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.TTL / 4
		if opts.SweepInterval < time.Second {
			opts.SweepInterval = time.Second
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		env: &environment{
			ctx:               ctx,
			backend:           opts.Backend,
			store:             opts.Store,
			ttl:               opts.TTL,
			persistTimeout:    defaultPersistTimeout,
			notificationLimit: opts.NotificationLimit,
			now:               opts.Now,
		},
		sweep:    opts.SweepInterval,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Start runs the idle sweeper until Close.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-m.env.ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(m.env.ctx)
			}
		}
	}()
}

// Create mounts a new page on the job specs tab.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.env.now().UTC()
	s := newSession(uuid.NewString(), now, m.env)

	s.mu.Lock()
	s.mountLocked(TabJobSpecs)
	s.persistLocked(ctx)
	s.mu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		s.close()
		return nil, ErrNotFound
	}
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetSessionsActive(n)
	telemetry.Info("session.created", map[string]any{"session_id": s.id})
	return s, nil
}

// Get returns a live session, resuming it from the store when this process
// does not hold it. Every successful Get counts as activity.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrNotFound
	}
	if ok {
		s.touch()
		return s, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return m.resume(ctx, id)
}

func (m *Manager) resume(ctx context.Context, id string) (*Session, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	snap, err := m.env.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	tab, err := ParseTab(string(snap.Tab))
	if err != nil {
		tab = TabJobSpecs
	}
	s := newSession(id, snap.CreatedAt, m.env)
	s.mu.Lock()
	s.mountLocked(tab)
	if err := s.restoreLocked(snap); err != nil {
		telemetry.Warn("session.restore_failed", map[string]any{"session_id": id, "error": err})
	}
	s.mu.Unlock()

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		s.close()
		existing.touch()
		return existing, nil
	}
	if m.closed {
		m.mu.Unlock()
		s.close()
		return nil, ErrNotFound
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SetSessionsActive(n)
	telemetry.Info("session.resumed", map[string]any{"session_id": id, "tab": string(tab)})
	return s, nil
}

// Delete tears the session down and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if ok {
		s.close()
		metrics.SetSessionsActive(n)
	} else if _, err := m.env.store.Load(ctx, id); err != nil {
		return err
	}
	if err := m.env.store.Delete(ctx, id); err != nil {
		return err
	}
	telemetry.Info("session.deleted", map[string]any{"session_id": id})
	return nil
}

// Sweep tears down sessions idle for longer than the TTL and prunes expired
// snapshots. It returns the number of sessions removed.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.env.now()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.idleSince()) >= m.env.ttl {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
		if err := m.env.store.Delete(ctx, s.id); err != nil {
			telemetry.Warn("session.delete_failed", map[string]any{"session_id": s.id, "error": err})
		}
		telemetry.Info("session.expired", map[string]any{"session_id": s.id})
	}
	if p, ok := m.env.store.(Pruner); ok {
		if _, err := p.DeleteExpired(ctx, now); err != nil {
			telemetry.Warn("session.prune_failed", map[string]any{"error": err})
		}
	}
	if len(expired) > 0 {
		metrics.SetSessionsActive(n)
	}
	return len(expired)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweeper and tears down every live session. Snapshots are
// kept so another process can resume them.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	// Flows are closed before the shared context is cancelled so pending
	// generations are discarded rather than settled as failures.
	for _, s := range all {
		s.close()
	}
	m.cancel()
	m.wg.Wait()
	metrics.SetSessionsActive(0)
}
