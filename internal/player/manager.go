package player

import (
	"context"
	"sync"
	"time"

	"github.com/pot-code/learning-gateway/internal/domain"
	"github.com/pot-code/learning-gateway/internal/infrastructure/logging"
	"github.com/pot-code/learning-gateway/internal/infrastructure/metrics"
	"github.com/pot-code/learning-gateway/internal/infrastructure/uuid"
	"go.uber.org/zap"
)

// Manager registry of open player sessions
type Manager struct {
	Loader   Loader
	Platform Platform
	Recorder Recorder
	UUID     uuid.Generator
	Metrics  *metrics.Metrics
	TTL      time.Duration // idle sessions older than this are swept, 0 keeps them forever

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager ...
func NewManager(
	Loader Loader,
	Platform Platform,
	Recorder Recorder,
	UUID uuid.Generator,
	Metrics *metrics.Metrics,
	TTL time.Duration,
) *Manager {
	return &Manager{
		Loader:   Loader,
		Platform: Platform,
		Recorder: Recorder,
		UUID:     UUID,
		Metrics:  Metrics,
		TTL:      TTL,
		sessions: make(map[string]*Session),
	}
}

// Open create a session for the course and run its first load
func (m *Manager) Open(ctx context.Context, userID, courseID string) (*Session, *Snapshot, error) {
	id, err := m.UUID.Generate()
	if err != nil {
		return nil, nil, err
	}
	s := newSession(id, userID, courseID, m.Loader, m.Platform, m.Recorder, m.Metrics)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.Metrics.SessionOpened()

	snap, err := s.Load(ctx)
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Debug("player session loaded with error",
			zap.String("session.id", id), zap.String("course.id", courseID), zap.Error(err))
	}
	if snap == nil {
		snap = s.Snapshot()
	}
	return s, snap, nil
}

// Get session owned by userID
func (m *Manager) Get(id, userID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, domain.ErrNoSuchSession
	}
	return s, nil
}

// Close tear down a session owned by userID
func (m *Manager) Close(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		m.mu.Unlock()
		return domain.ErrNoSuchSession
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	s.Close(ctx)
	m.Metrics.SessionClosed()
	return nil
}

// Len number of open sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep close sessions idle since before now - TTL, returns how many were closed
func (m *Manager) Sweep(ctx context.Context, now time.Time) int {
	if m.TTL <= 0 {
		return 0
	}
	deadline := now.Add(-m.TTL)

	var idle []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(deadline) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close(ctx)
		m.Metrics.SessionClosed()
	}
	return len(idle)
}

// Run sweep idle sessions every interval until ctx is done, then close everything left
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	logger := logging.ExtractLoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			if n := m.Sweep(ctx, now); n > 0 {
				logger.Debug("closed idle player sessions", zap.Int("count", n))
			}
		case <-ctx.Done():
			m.Shutdown(context.Background())
			return
		}
	}
}

// Shutdown close every session
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
		m.Metrics.SessionClosed()
	}
}
