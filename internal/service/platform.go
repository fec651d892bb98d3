package service

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Platform is the host environment the service keeps in sync: it knows who is
// online and reacts to a completed reload.
type Platform interface {
	OnlinePlayers() []uuid.UUID
	IsOnline(id uuid.UUID) bool
	// PropagateSync runs once per sync pass after users were reloaded.
	// An error aborts that pass.
	PropagateSync(ctx context.Context) error
}

// sessionTracker is implemented by platforms that learn presence from logins.
type sessionTracker interface {
	Join(id uuid.UUID)
	Leave(id uuid.UUID)
}

// Interface guard
var (
	_ Platform       = (*Sessions)(nil)
	_ sessionTracker = (*Sessions)(nil)
)

// Sessions is the built-in Platform, fed by login and logout calls.
type Sessions struct {
	logger *slog.Logger

	mu       sync.RWMutex
	online   map[uuid.UUID]time.Time
	lastSync time.Time
}

func NewSessions(logger *slog.Logger) *Sessions {
	return &Sessions{logger: logger, online: make(map[uuid.UUID]time.Time)}
}

func (s *Sessions) Join(id uuid.UUID) {
	s.mu.Lock()
	s.online[id] = time.Now()
	s.mu.Unlock()
}

func (s *Sessions) Leave(id uuid.UUID) {
	s.mu.Lock()
	delete(s.online, id)
	s.mu.Unlock()
}

func (s *Sessions) IsOnline(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.online[id]
	return ok
}

func (s *Sessions) OnlinePlayers() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Keys(s.online))
}

func (s *Sessions) PropagateSync(context.Context) error {
	s.mu.Lock()
	s.lastSync = time.Now()
	n := len(s.online)
	s.mu.Unlock()

	s.logger.Debug("SYNC_PROPAGATED", "online", n)
	return nil
}

// LastSync is the time of the last completed propagation.
func (s *Sessions) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}
