package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// loggingMiddleware implements [DECORATOR_PATTERN] to add observability
// to a backend without touching its logic.
type loggingMiddleware struct {
	next   Implementation
	logger *slog.Logger
}

// NewLoggingMiddleware creates a logging decorator for a backend.
func NewLoggingMiddleware(next Implementation, logger *slog.Logger) Implementation {
	return &loggingMiddleware{next: next, logger: logger.With("backend", next.Name())}
}

// observe logs failures at warn and successes at debug, with timing.
func (m *loggingMiddleware) observe(op string, start time.Time, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "duration_ms", time.Since(start).Milliseconds())
	if err != nil && !errors.Is(err, ErrNotFound) {
		m.logger.Warn("STORAGE_OP_FAILED", append(attrs, "err", err)...)
		return
	}
	m.logger.Debug("STORAGE_OP_COMPLETED", attrs...)
}

func (m *loggingMiddleware) Name() string { return m.next.Name() }

func (m *loggingMiddleware) Init(ctx context.Context) error {
	start := time.Now()
	err := m.next.Init(ctx)
	if err != nil {
		m.logger.Error("STORAGE_INIT_FAILED", "err", err)
	} else {
		m.logger.Info("STORAGE_READY", "duration_ms", time.Since(start).Milliseconds())
	}
	return err
}

func (m *loggingMiddleware) Shutdown(ctx context.Context) error {
	err := m.next.Shutdown(ctx)
	m.observe("shutdown", time.Now(), err)
	return err
}

func (m *loggingMiddleware) Meta(ctx context.Context) model.StorageMetadata {
	return m.next.Meta(ctx)
}

func (m *loggingMiddleware) LoadUser(ctx context.Context, id uuid.UUID) (*UserRecord, error) {
	start := time.Now()
	rec, err := m.next.LoadUser(ctx, id)
	m.observe("load_user", start, err, "user_id", id)
	return rec, err
}

func (m *loggingMiddleware) LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*UserRecord, error) {
	start := time.Now()
	recs, err := m.next.LoadUsers(ctx, ids)
	m.observe("load_users", start, err, "count", len(ids))
	return recs, err
}

func (m *loggingMiddleware) SaveUser(ctx context.Context, rec UserRecord) error {
	start := time.Now()
	err := m.next.SaveUser(ctx, rec)
	m.observe("save_user", start, err, "user_id", rec.ID)
	return err
}

func (m *loggingMiddleware) UniqueUsers(ctx context.Context) ([]uuid.UUID, error) {
	start := time.Now()
	ids, err := m.next.UniqueUsers(ctx)
	m.observe("unique_users", start, err)
	return ids, err
}

func (m *loggingMiddleware) SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	start := time.Now()
	res, err := m.next.SavePlayerData(ctx, id, username)
	m.observe("save_player_data", start, err, "user_id", id, "username", username)
	return res, err
}

func (m *loggingMiddleware) DeletePlayerData(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := m.next.DeletePlayerData(ctx, id)
	m.observe("delete_player_data", start, err, "user_id", id)
	return err
}

func (m *loggingMiddleware) PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error) {
	start := time.Now()
	id, err := m.next.PlayerUniqueID(ctx, username)
	m.observe("player_unique_id", start, err, "username", username)
	return id, err
}

func (m *loggingMiddleware) PlayerName(ctx context.Context, id uuid.UUID) (string, error) {
	start := time.Now()
	name, err := m.next.PlayerName(ctx, id)
	m.observe("player_name", start, err, "user_id", id)
	return name, err
}
