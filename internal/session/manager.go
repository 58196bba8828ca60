package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ManagerOptions struct {
	// Session is the template every new session is built from.
	Session Config
	// NewUploader gives each session its own single-flight uploader.
	NewUploader func() Uploader
	IdleTimeout time.Duration
}

// Manager is the registry of live sessions.
type Manager struct {
	opts   ManagerOptions
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.Session.Logger == nil {
		opts.Session.Logger = zap.NewNop()
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	return &Manager{
		opts:     opts,
		logger:   opts.Session.Logger,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	cfg := m.opts.Session
	if m.opts.NewUploader != nil {
		cfg.Uploader = m.opts.NewUploader()
	}

	s := New(uuid.New().String(), cfg)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Info("session created", zap.String("session", s.ID()))
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Remove(ctx context.Context, id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.Close(ctx)
	m.logger.Info("session removed", zap.String("session", id))
	return true
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions that have been idle longer than the idle timeout and
// have no outstanding work. It returns the number removed.
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		view := s.Snapshot()
		if view.Busy || view.State != StateIdle {
			continue
		}
		if now.Sub(s.LastActive()) < m.opts.IdleTimeout {
			continue
		}
		expired = append(expired, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close(ctx)
		m.logger.Debug("session expired", zap.String("session", s.ID()))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := m.Sweep(ctx, now); n > 0 {
				m.logger.Info("expired idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}
}
