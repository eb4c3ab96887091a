// Package sessions hosts mounted pages. Each page keeps exactly one flow
// mounted for its active tab and persists a snapshot after every change.
package sessions

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"recruitment-backend/internal/flow"
	"recruitment-backend/internal/interview"
	"recruitment-backend/internal/jobspec"
	"recruitment-backend/internal/notify"
	"recruitment-backend/internal/shared/telemetry"
)

// Tab selects the mounted flow.
type Tab string

const (
	TabJobSpecs   Tab = "job-specs"
	TabInterviews Tab = "interviews"
	TabAbout      Tab = "about"
)

var (
	ErrInvalidTab = errors.New("invalid tab")
	// ErrWrongTab is returned when a flow is addressed that is not mounted.
	ErrWrongTab = errors.New("flow not mounted on the active tab")
)

// ParseTab validates a tab name.
func ParseTab(raw string) (Tab, error) {
	switch t := Tab(strings.TrimSpace(raw)); t {
	case TabJobSpecs, TabInterviews, TabAbout:
		return t, nil
	default:
		return "", ErrInvalidTab
	}
}

// View is the client-facing session state.
type View struct {
	ID                   string           `json:"id"`
	Tab                  Tab              `json:"tab"`
	JobSpec              *jobspec.State   `json:"jobSpec,omitempty"`
	Interview            *interview.State `json:"interview,omitempty"`
	PendingNotifications int              `json:"pendingNotifications"`
	CreatedAt            time.Time        `json:"createdAt"`
	LastSeenAt           time.Time        `json:"lastSeenAt"`
}

// Session is one mounted page.
type Session struct {
	id        string
	createdAt time.Time
	env       *environment
	queue     *notify.Queue
	life      *flow.Lifetime

	mu        sync.Mutex
	closed    bool
	tab       Tab
	lastSeen  time.Time
	jobSpec   *jobspec.Flow
	interview *interview.Flow
}

func newSession(id string, createdAt time.Time, env *environment) *Session {
	return &Session{
		id:        id,
		createdAt: createdAt,
		env:       env,
		queue:     notify.NewQueue(env.notificationLimit),
		life:      flow.NewLifetime(env.ctx),
		lastSeen:  env.now(),
	}
}

func (s *Session) ID() string { return s.id }

// Tab returns the active tab.
func (s *Session) Tab() Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// JobSpec returns the mounted job spec flow.
func (s *Session) JobSpec() (*jobspec.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNotFound
	}
	if s.jobSpec == nil {
		return nil, ErrWrongTab
	}
	return s.jobSpec, nil
}

// Interview returns the mounted interview flow.
func (s *Session) Interview() (*interview.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNotFound
	}
	if s.interview == nil {
		return nil, ErrWrongTab
	}
	return s.interview, nil
}

// SwitchTab unmounts the current flow, cancelling its pending generation,
// and mounts a fresh flow for tab. Selecting the active tab is a no-op.
func (s *Session) SwitchTab(ctx context.Context, tab Tab) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return View{}, ErrNotFound
	}
	if tab == s.tab {
		return s.viewLocked(), nil
	}
	from := s.tab
	s.unmountLocked()
	s.mountLocked(tab)
	s.persistLocked(ctx)
	telemetry.Info("session.tab_switched", map[string]any{
		"session_id": s.id,
		"from":       string(from),
		"to":         string(tab),
	})
	return s.viewLocked(), nil
}

// Notifications drains queued notifications.
func (s *Session) Notifications() []notify.Notification {
	return s.queue.Drain()
}

// View returns the session state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:                   s.id,
		Tab:                  s.tab,
		PendingNotifications: s.queue.Len(),
		CreatedAt:            s.createdAt,
		LastSeenAt:           s.lastSeen,
	}
	if s.jobSpec != nil {
		st := s.jobSpec.State()
		v.JobSpec = &st
	}
	if s.interview != nil {
		st := s.interview.State()
		v.Interview = &st
	}
	return v
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		Tab:       s.tab,
		CreatedAt: s.createdAt,
		UpdatedAt: s.env.now().UTC(),
	}
	if s.jobSpec != nil {
		st := s.jobSpec.Snapshot()
		snap.JobSpec = &st
	}
	if s.interview != nil {
		st := s.interview.Snapshot()
		snap.Interview = &st
	}
	return snap
}

func (s *Session) mountLocked(tab Tab) {
	s.tab = tab
	fields := map[string]any{"session_id": s.id}
	switch tab {
	case TabJobSpecs:
		s.jobSpec = jobspec.New(s.life.Context(), jobspec.Options{
			Backend:  s.env.backend,
			Notifier: s.queue,
			OnChange: func(jobspec.State) { s.persist() },
			Fields:   fields,
		})
	case TabInterviews:
		s.interview = interview.New(s.life.Context(), interview.Options{
			Backend:  s.env.backend,
			Notifier: s.queue,
			OnChange: func(interview.State) { s.persist() },
			Fields:   fields,
		})
	}
}

func (s *Session) unmountLocked() {
	if s.jobSpec != nil {
		s.jobSpec.Close()
		s.jobSpec = nil
	}
	if s.interview != nil {
		s.interview.Close()
		s.interview = nil
	}
}

// restoreLocked applies a snapshot to the freshly mounted flow.
func (s *Session) restoreLocked(snap Snapshot) error {
	switch {
	case s.jobSpec != nil && snap.JobSpec != nil:
		return s.jobSpec.Restore(*snap.JobSpec)
	case s.interview != nil && snap.Interview != nil:
		return s.interview.Restore(*snap.Interview)
	}
	return nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.env.now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// persist runs from flow change callbacks, outside the flow lock.
func (s *Session) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.persistLocked(context.Background())
}

func (s *Session) persistLocked(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.env.persistTimeout)
	defer cancel()
	if err := s.env.store.Save(ctx, s.snapshotLocked(), s.env.ttl); err != nil {
		telemetry.Warn("session.persist_failed", map[string]any{
			"session_id": s.id,
			"error":      err,
		})
	}
}

// close tears the session down. Pending generations are cancelled and their
// results discarded.
func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.unmountLocked()
	s.mu.Unlock()
	s.life.Close()
}
