package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/storage"
)

var ErrInvalidUsername = errors.New("service: invalid username")

const (
	loadBatchSize   = 100
	loadConcurrency = 4
)

// UserLoader reloads users from storage into memory.
type UserLoader interface {
	LoadUser(ctx context.Context, id uuid.UUID, username string) (*model.User, error)
	// LoadAllUsers reloads every loaded or online user and reports how many.
	LoadAllUsers(ctx context.Context) (int, error)
}

// Interface guard
var _ UserLoader = (*UserManager)(nil)

// UserManager owns the loaded-user registry and the login flow.
type UserManager struct {
	storage     *storage.Storage
	users       *registry.Users
	events      *event.Dispatcher
	platform    Platform
	housekeeper *Housekeeper
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

func NewUserManager(
	st *storage.Storage,
	users *registry.Users,
	events *event.Dispatcher,
	platform Platform,
	housekeeper *Housekeeper,
	logger *slog.Logger,
	m *metrics.Metrics,
) *UserManager {
	return &UserManager{
		storage:     st,
		users:       users,
		events:      events,
		platform:    platform,
		housekeeper: housekeeper,
		logger:      logger,
		metrics:     m,
	}
}

func (m *UserManager) GetOrMake(id uuid.UUID, username string) *model.User {
	return m.users.GetOrMake(id, username)
}

func (m *UserManager) GetIfLoaded(id uuid.UUID) (*model.User, bool) { return m.users.GetIfLoaded(id) }

func (m *UserManager) GetByUsername(name string) (*model.User, bool) {
	return m.users.GetByUsername(name)
}

func (m *UserManager) IsLoaded(id uuid.UUID) bool { return m.users.IsLoaded(id) }

func (m *UserManager) All() map[uuid.UUID]*model.User { return m.users.All() }

func (m *UserManager) Unload(id uuid.UUID) {
	m.users.Unload(id)
	m.metrics.SetLoadedUsers(m.users.Len())
}

func (m *UserManager) LoadUser(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	u, err := m.storage.LoadUser(ctx, id, username)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}
	m.metrics.SetLoadedUsers(m.users.Len())
	return u, nil
}

// LoadAllUsers reloads loaded and online users in batches, several batches at once.
// [CONCURRENCY_OPTIMIZATION] errgroup cancels the remaining batches on the first failure.
func (m *UserManager) LoadAllUsers(ctx context.Context) (int, error) {
	ids := m.users.IDs()
	for _, id := range m.platform.OnlinePlayers() {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for batch := range slices.Chunk(ids, loadBatchSize) {
		g.Go(func() error {
			_, err := m.storage.LoadUsers(gCtx, batch)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("load all users: %w", err)
	}

	m.metrics.SetLoadedUsers(m.users.Len())
	return len(ids), nil
}

// ProcessLogin records the player's identity, reports conflicting ids,
// announces first logins and loads the user.
func (m *UserManager) ProcessLogin(ctx context.Context, id uuid.UUID, username string) (*model.User, *model.PlayerSaveResult, error) {
	if !model.IsValidUsernameLenient(username) {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidUsername, username)
	}
	m.housekeeper.RegisterUsage(id)

	res, err := m.storage.SavePlayerData(ctx, id, username)
	if err != nil {
		return nil, nil, fmt.Errorf("save player data %s: %w", id, err)
	}

	if res.Includes(model.OtherUniqueIDsPresentForUsername) {
		m.logger.Warn("USERNAME_CLAIMED_BY_OTHER_IDS",
			"user_id", id,
			"username", username,
			"other_ids", res.OtherUniqueIDs(),
		)
	}
	if res.Includes(model.CleanInsert) {
		m.events.DispatchFirstLogin(ctx, id, username)
	}

	u, err := m.LoadUser(ctx, id, username)
	if err != nil {
		return nil, res, err
	}
	if s, ok := m.platform.(sessionTracker); ok {
		s.Join(id)
	}
	return u, res, nil
}

// ProcessLogout keeps the user around for the housekeeper retention window.
func (m *UserManager) ProcessLogout(id uuid.UUID) {
	m.housekeeper.RegisterUsage(id)
	if s, ok := m.platform.(sessionTracker); ok {
		s.Leave(id)
	}
}
