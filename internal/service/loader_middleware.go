package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/model"
)

// [DECORATOR] timing and failure logging around a UserLoader
type loaderMiddleware struct {
	next   UserLoader
	logger *slog.Logger
}

// NewLoaderMiddleware wraps next with debug timing and error logs.
func NewLoaderMiddleware(next UserLoader, logger *slog.Logger) UserLoader {
	return &loaderMiddleware{next: next, logger: logger}
}

func (m *loaderMiddleware) LoadUser(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	start := time.Now()
	u, err := m.next.LoadUser(ctx, id, username)
	if err != nil {
		m.logger.Error("USER_LOAD_FAILED", "user_id", id, "err", err)
		return nil, err
	}
	m.logger.Debug("USER_LOADED", "user_id", id, "duration", time.Since(start))
	return u, nil
}

func (m *loaderMiddleware) LoadAllUsers(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := m.next.LoadAllUsers(ctx)
	if err != nil {
		m.logger.Error("USERS_LOAD_FAILED", "err", err, "duration", time.Since(start))
		return 0, err
	}
	m.logger.Debug("USERS_LOADED", "count", n, "duration", time.Since(start))
	return n, nil
}
