package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// ErrNotFound is returned by lookups that have no matching record.
var ErrNotFound = errors.New("storage: not found")

// UserRecord is the persisted part of a user.
type UserRecord struct {
	ID       uuid.UUID
	Username string // empty when unknown
}

func RecordOf(u *model.User) UserRecord {
	name, _ := u.Username()
	return UserRecord{ID: u.ID(), Username: name}
}

// Implementation is the narrow contract every backend provides.
// Init and Shutdown are idempotent. All other operations propagate backend
// failures to the caller.
type Implementation interface {
	Name() string
	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Meta(ctx context.Context) model.StorageMetadata

	// [USER] category

	// LoadUser returns nil, nil when no record exists.
	LoadUser(ctx context.Context, id uuid.UUID) (*UserRecord, error)
	LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*UserRecord, error)
	SaveUser(ctx context.Context, rec UserRecord) error
	UniqueUsers(ctx context.Context) ([]uuid.UUID, error)

	// [UUID] category

	// SavePlayerData upserts the (id, username) mapping. Other ids already
	// mapped to the username are reported, never removed.
	SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error)
	DeletePlayerData(ctx context.Context, id uuid.UUID) error
	PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error)
	PlayerName(ctx context.Context, id uuid.UUID) (string, error)
}
