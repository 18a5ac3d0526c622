package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/answer-engine/internal/repositories"
)

// SessionManager owns the live sessions of this process.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	tests    repositories.TestRepository
	deps     SessionDeps
	logger   *slog.Logger
	ops      *ServiceLogger
}

func NewSessionManager(tests repositories.TestRepository, deps SessionDeps, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		tests:    tests,
		deps:     deps,
		logger:   logger,
		ops:      NewServiceLogger(logger, LogConfig{Service: "answer-engine", Component: "sessions"}),
	}
}

// Start opens a session on an active test.
func (m *SessionManager) Start(ctx context.Context, testID string) (session *Session, err error) {
	op := m.ops.WithOperation(ctx, "start_session", testID)
	defer func() {
		var sessionID string
		if session != nil {
			sessionID = session.ID()
		}
		op.LogResult(sessionID, err)
	}()

	test, err := m.tests.GetByID(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to load test %s: %w", testID, err)
	}
	if !test.IsActive {
		return nil, ErrTestInactive
	}

	session, err = StartSession(ctx, test, m.deps, SessionOptions{
		OnComplete: func(attemptID string, score float64, passed bool) {
			m.logger.Info("Attempt graded",
				"test_id", testID,
				"attempt_id", attemptID,
				"score", score,
				"passed", passed)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	return session, nil
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close abandons a session.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.Close()
	return nil
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// EvictionPolicy bounds how long sessions stay in memory. Zero durations
// disable the matching rule.
type EvictionPolicy struct {
	// IdleTTL closes sessions nobody used or watched for this long, unless
	// their countdown is running or a submission is in flight.
	IdleTTL time.Duration
	// Retention keeps a graded session around this long so the learner can
	// still read the result.
	Retention time.Duration
	Interval  time.Duration
}

// RunEviction sweeps on every interval until ctx is done.
func (m *SessionManager) RunEviction(ctx context.Context, policy EvictionPolicy) {
	if policy.Interval <= 0 || (policy.IdleTTL <= 0 && policy.Retention <= 0) {
		m.logger.Info("Session eviction disabled")
		return
	}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(ctx, now, policy)
		}
	}
}

// Sweep closes every session the policy says is done with at now and
// returns how many it closed.
func (m *SessionManager) Sweep(ctx context.Context, now time.Time, policy EvictionPolicy) int {
	m.mu.RLock()
	candidates := make(map[string]*Session, len(m.sessions))
	for id, session := range m.sessions {
		candidates[id] = session
	}
	m.mu.RUnlock()

	evicted := 0
	for id, session := range candidates {
		reason := evictionReason(ctx, session, now, policy)
		if reason == "" {
			continue
		}

		m.mu.Lock()
		current, ok := m.sessions[id]
		if ok && current == session {
			delete(m.sessions, id)
		}
		m.mu.Unlock()
		if !ok || current != session {
			continue
		}

		session.Close()
		evicted++
		m.logger.Info("Session evicted", "session_id", id, "test_id", session.Test().ID, "reason", reason)
	}
	return evicted
}

func evictionReason(ctx context.Context, session *Session, now time.Time, policy EvictionPolicy) string {
	activity, err := session.activity(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return "closed"
		}
		return ""
	}

	switch {
	case policy.Retention > 0 && !activity.finishedAt.IsZero() && now.Sub(activity.finishedAt) >= policy.Retention:
		return "submitted"
	case policy.IdleTTL > 0 && activity.watchers == 0 && !activity.busy && now.Sub(activity.lastActive) >= policy.IdleTTL:
		return "idle"
	}
	return ""
}

// CloseAll tears every session down, used on shutdown.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, session := range m.sessions {
		sessions = append(sessions, session)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(session)
	}
	wg.Wait()

	m.logger.Info("Closed all sessions", "count", len(sessions))
}
