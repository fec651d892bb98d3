// Package memory is a process-local backend, used for single-node setups and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Interface guard
var _ storage.Implementation = (*Storage)(nil)

type Storage struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]string
	players map[uuid.UUID]string // lowercased usernames
}

func New() *Storage {
	return &Storage{
		users:   make(map[uuid.UUID]string),
		players: make(map[uuid.UUID]string),
	}
}

func (s *Storage) Name() string { return storage.TypeMemory.DisplayName() }

func (s *Storage) Init(context.Context) error     { return nil }
func (s *Storage) Shutdown(context.Context) error { return nil }

func (s *Storage) Meta(context.Context) model.StorageMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var size int64
	for _, name := range s.users {
		size += 16 + int64(len(name))
	}
	for _, name := range s.players {
		size += 16 + int64(len(name))
	}
	return model.StorageMetadata{Name: s.Name(), SizeBytes: size}.WithConnected(true)
}

func (s *Storage) LoadUser(_ context.Context, id uuid.UUID) (*storage.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &storage.UserRecord{ID: id, Username: name}, nil
}

func (s *Storage) LoadUsers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*storage.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make(map[uuid.UUID]*storage.UserRecord, len(ids))
	for _, id := range ids {
		if name, ok := s.users[id]; ok {
			res[id] = &storage.UserRecord{ID: id, Username: name}
		}
	}
	return res, nil
}

func (s *Storage) SaveUser(_ context.Context, rec storage.UserRecord) error {
	s.mu.Lock()
	s.users[rec.ID] = rec.Username
	s.mu.Unlock()
	return nil
}

func (s *Storage) UniqueUsers(context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Storage) SavePlayerData(_ context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	username = strings.ToLower(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.players[id]
	s.players[id] = username

	res := model.DetermineBaseResult(username, old)

	var conflicting []uuid.UUID
	for other, name := range s.players {
		if other != id && name == username {
			conflicting = append(conflicting, other)
		}
	}
	if len(conflicting) > 0 {
		res = res.WithOtherUniqueIDs(conflicting)
	}
	return res, nil
}

func (s *Storage) DeletePlayerData(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.players, id)
	s.mu.Unlock()
	return nil
}

func (s *Storage) PlayerUniqueID(_ context.Context, username string) (uuid.UUID, error) {
	username = strings.ToLower(username)

	s.mu.RLock()
	defer s.mu.RUnlock()

	// lowest id wins so repeated lookups are stable
	var matches []uuid.UUID
	for id, name := range s.players {
		if name == username {
			matches = append(matches, id)
		}
	}
	if len(matches) == 0 {
		return uuid.Nil, storage.ErrNotFound
	}
	slices.SortFunc(matches, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return matches[0], nil
}

func (s *Storage) PlayerName(_ context.Context, id uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.players[id]
	if !ok || name == "" || name == "null" {
		return "", storage.ErrNotFound
	}
	return name, nil
}
