// Package storage persists user records and uuid/username mappings behind a
// narrow backend contract, with a facade that keeps the in-memory user
// registry and the event dispatcher in step with every load and save.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/domain/registry"
)

// Storage is the facade used by the rest of the service.
type Storage struct {
	impl   Implementation
	users  *registry.Users
	events *event.Dispatcher
	logger *slog.Logger
}

func New(impl Implementation, users *registry.Users, events *event.Dispatcher, logger *slog.Logger) *Storage {
	return &Storage{impl: impl, users: users, events: events, logger: logger}
}

func (s *Storage) Name() string { return s.impl.Name() }

func (s *Storage) Implementation() Implementation { return s.impl }

// Implementations unwraps split storage into its backends.
func (s *Storage) Implementations() []Implementation {
	impl := s.impl
	if l, ok := impl.(*loggingMiddleware); ok {
		impl = l.next
	}
	if split, ok := impl.(*Split); ok {
		return split.Implementations()
	}
	return []Implementation{impl}
}

func (s *Storage) Init(ctx context.Context) error {
	if err := s.impl.Init(ctx); err != nil {
		return fmt.Errorf("storage: init %s: %w", s.impl.Name(), err)
	}
	return nil
}

func (s *Storage) Shutdown(ctx context.Context) error {
	if err := s.impl.Shutdown(ctx); err != nil {
		s.logger.Error("STORAGE_SHUTDOWN_FAILED", "backend", s.impl.Name(), "err", err)
		return err
	}
	return nil
}

func (s *Storage) Meta(ctx context.Context) model.StorageMetadata {
	return s.impl.Meta(ctx)
}

// LoadUser refreshes the user from its stored record, creating it in memory
// if needed, and writes the audited record back.
func (s *Storage) LoadUser(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	rec, err := s.impl.LoadUser(ctx, id)
	if err != nil {
		return nil, err
	}

	u := s.users.GetOrMake(id, username)
	if rec != nil && rec.Username != "" {
		u.SetUsername(rec.Username, true)
	}

	if err := s.impl.SaveUser(ctx, RecordOf(u)); err != nil {
		return nil, err
	}

	s.events.DispatchUserLoaded(ctx, u)
	return u, nil
}

func (s *Storage) LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*model.User, error) {
	recs, err := s.impl.LoadUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	res := make(map[uuid.UUID]*model.User, len(ids))
	for _, id := range ids {
		u := s.users.GetOrMake(id, "")
		if rec := recs[id]; rec != nil && rec.Username != "" {
			u.SetUsername(rec.Username, true)
		}
		res[id] = u
		s.events.DispatchUserLoaded(ctx, u)
	}
	return res, nil
}

func (s *Storage) SaveUser(ctx context.Context, u *model.User) error {
	return s.impl.SaveUser(ctx, RecordOf(u))
}

func (s *Storage) UniqueUsers(ctx context.Context) ([]uuid.UUID, error) {
	return s.impl.UniqueUsers(ctx)
}

func (s *Storage) SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	res, err := s.impl.SavePlayerData(ctx, id, username)
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.events.DispatchPlayerDataSaved(ctx, id, username, res)
	}
	return res, nil
}

func (s *Storage) DeletePlayerData(ctx context.Context, id uuid.UUID) error {
	return s.impl.DeletePlayerData(ctx, id)
}

func (s *Storage) PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error) {
	return s.impl.PlayerUniqueID(ctx, username)
}

func (s *Storage) PlayerName(ctx context.Context, id uuid.UUID) (string, error) {
	return s.impl.PlayerName(ctx, id)
}
