package service

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/scheduler"
	"github.com/webitel/player-sync-service/internal/storage"
	"github.com/webitel/player-sync-service/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	users       *registry.Users
	events      *event.Dispatcher
	sessions    *Sessions
	storage     *storage.Storage
	housekeeper *Housekeeper
	manager     *UserManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testLogger()

	f := &fixture{
		users:    registry.NewUsers(),
		events:   event.NewDispatcher(logger, scheduler.Inline{}),
		sessions: NewSessions(logger),
	}
	f.storage = storage.New(memory.New(), f.users, f.events, logger)
	if err := f.storage.Init(context.Background()); err != nil {
		t.Fatalf("init storage: %v", err)
	}
	f.housekeeper = NewHousekeeper(f.users, f.events, f.sessions, logger, 0)
	f.manager = NewUserManager(f.storage, f.users, f.events, f.sessions, f.housekeeper, logger, nil)
	return f
}

// countingLoader is a UserLoader that only counts calls.
type countingLoader struct {
	UserLoader
	all   atomic.Int32
	users int
	err   error
}

func (l *countingLoader) LoadAllUsers(context.Context) (int, error) {
	l.all.Add(1)
	return l.users, l.err
}

type countingPlatform struct {
	*Sessions
	propagated atomic.Int32
	err        error
}

func (p *countingPlatform) PropagateSync(context.Context) error {
	p.propagated.Add(1)
	return p.err
}
