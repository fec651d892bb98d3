// Package sqlstore is the gorm backend shared by sqlite, mysql, mariadb and postgresql.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/storage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Interface guard
var _ storage.Implementation = (*Storage)(nil)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// batchSize bounds the IN clause of multi-user loads.
const batchSize = 500

type userRow struct {
	UUID      string `gorm:"column:uuid;primaryKey;size:36"`
	Username  string `gorm:"column:username;size:16;not null;default:''"`
	UpdatedAt time.Time
}

type playerRow struct {
	UUID     string `gorm:"column:uuid;primaryKey;size:36"`
	Username string `gorm:"column:username;size:16;not null"`
}

type Storage struct {
	db     *gorm.DB
	typ    storage.Type
	prefix string

	usersTable   string
	playersTable string
}

// New binds the backend to an open connection. The connection is owned by
// the caller and is not closed by Shutdown.
func New(db *gorm.DB, typ storage.Type, prefix string) (*Storage, error) {
	if !validPrefix.MatchString(prefix) {
		return nil, fmt.Errorf("sqlstore: invalid table prefix %q", prefix)
	}
	return &Storage{
		db:           db,
		typ:          typ,
		prefix:       prefix,
		usersTable:   prefix + "users",
		playersTable: prefix + "players",
	}, nil
}

func (s *Storage) Name() string { return s.typ.DisplayName() }

// Init creates missing tables and the username index.
func (s *Storage) Init(ctx context.Context) error {
	db := s.db.WithContext(ctx)

	if err := db.Table(s.usersTable).AutoMigrate(&userRow{}); err != nil {
		return fmt.Errorf("sqlstore: migrate %s: %w", s.usersTable, err)
	}
	if err := db.Table(s.playersTable).AutoMigrate(&playerRow{}); err != nil {
		return fmt.Errorf("sqlstore: migrate %s: %w", s.playersTable, err)
	}

	idx := s.prefix + "players_username"
	if !db.Table(s.playersTable).Migrator().HasIndex(&playerRow{}, idx) {
		if err := db.Exec(fmt.Sprintf("CREATE INDEX %s ON %s (username)", idx, s.playersTable)).Error; err != nil {
			return fmt.Errorf("sqlstore: create index %s: %w", idx, err)
		}
	}
	return nil
}

func (s *Storage) Shutdown(context.Context) error { return nil }

func (s *Storage) Meta(ctx context.Context) model.StorageMetadata {
	meta := model.StorageMetadata{
		Name:    s.Name(),
		Details: map[string]string{
			s.detailKey("dialect"):      s.db.Dialector.Name(),
			s.detailKey("table_prefix"): s.prefix,
		},
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return meta.WithConnected(false)
	}

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		return meta.WithConnected(false)
	}
	meta.PingMillis = time.Since(start).Milliseconds()
	meta = meta.WithConnected(true)

	for name, table := range map[string]string{"users": s.usersTable, "players": s.playersTable} {
		var n int64
		if err := s.db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			meta.Details[s.detailKey(name+"_error")] = err.Error()
			continue
		}
		meta.Details[s.detailKey(name)] = fmt.Sprint(n)
	}
	return meta
}

// detailKey scopes a metadata key to this backend so split storage over two
// SQL databases keeps both sets of counts.
func (s *Storage) detailKey(name string) string { return string(s.typ) + "." + name }

// upsert inserts row or, when the uuid is already present, overwrites columns.
func (s *Storage) upsert(tx *gorm.DB, table string, row any, columns ...string) error {
	return tx.Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uuid"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

func (s *Storage) LoadUser(ctx context.Context, id uuid.UUID) (*storage.UserRecord, error) {
	var row userRow
	err := s.db.WithContext(ctx).Table(s.usersTable).Where("uuid = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: load user %s: %w", id, err)
	}
	return &storage.UserRecord{ID: id, Username: row.Username}, nil
}

func (s *Storage) LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*storage.UserRecord, error) {
	res := make(map[uuid.UUID]*storage.UserRecord, len(ids))

	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, id.String())
		}

		var rows []userRow
		if err := s.db.WithContext(ctx).Table(s.usersTable).Where("uuid IN ?", keys).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("sqlstore: load users: %w", err)
		}
		for _, row := range rows {
			id, err := uuid.Parse(row.UUID)
			if err != nil {
				continue
			}
			res[id] = &storage.UserRecord{ID: id, Username: row.Username}
		}
	}
	return res, nil
}

func (s *Storage) SaveUser(ctx context.Context, rec storage.UserRecord) error {
	row := userRow{UUID: rec.ID.String(), Username: rec.Username, UpdatedAt: time.Now().UTC()}
	if err := s.upsert(s.db.WithContext(ctx), s.usersTable, &row, "username", "updated_at"); err != nil {
		return fmt.Errorf("sqlstore: save user %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Storage) UniqueUsers(ctx context.Context) ([]uuid.UUID, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Table(s.usersTable).Distinct().Pluck("uuid", &keys).Error; err != nil {
		return nil, fmt.Errorf("sqlstore: unique users: %w", err)
	}
	return parseIDs(keys), nil
}

func (s *Storage) SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	username = strings.ToLower(username)
	key := id.String()

	var (
		oldUsername string
		conflicting []string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// [CONCURRENCY] the pre-read only classifies the outcome, the write is a
		// single upsert.
		var existing []playerRow
		if err := tx.Table(s.playersTable).Where("uuid = ?", key).Limit(1).Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) > 0 {
			oldUsername = existing[0].Username
		}
		if oldUsername != username {
			if err := s.upsert(tx, s.playersTable, &playerRow{UUID: key, Username: username}, "username"); err != nil {
				return err
			}
		}

		return tx.Table(s.playersTable).
			Where("username = ? AND uuid <> ?", username, key).
			Pluck("uuid", &conflicting).Error
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: save player data %s: %w", id, err)
	}

	res := model.DetermineBaseResult(username, oldUsername)
	if len(conflicting) > 0 {
		res = res.WithOtherUniqueIDs(parseIDs(conflicting))
	}
	return res, nil
}

func (s *Storage) DeletePlayerData(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Table(s.playersTable).Where("uuid = ?", id.String()).Delete(&playerRow{}).Error
	if err != nil {
		return fmt.Errorf("sqlstore: delete player data %s: %w", id, err)
	}
	return nil
}

func (s *Storage) PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error) {
	var keys []string
	err := s.db.WithContext(ctx).Table(s.playersTable).
		Where("username = ?", strings.ToLower(username)).
		Order("uuid").Limit(1).
		Pluck("uuid", &keys).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlstore: player unique id: %w", err)
	}
	if len(keys) == 0 {
		return uuid.Nil, storage.ErrNotFound
	}
	id, err := uuid.Parse(keys[0])
	if err != nil {
		return uuid.Nil, fmt.Errorf("sqlstore: stored uuid %q: %w", keys[0], err)
	}
	return id, nil
}

func (s *Storage) PlayerName(ctx context.Context, id uuid.UUID) (string, error) {
	var names []string
	err := s.db.WithContext(ctx).Table(s.playersTable).
		Where("uuid = ?", id.String()).Limit(1).
		Pluck("username", &names).Error
	if err != nil {
		return "", fmt.Errorf("sqlstore: player name: %w", err)
	}
	if len(names) == 0 || names[0] == "" || names[0] == "null" {
		return "", storage.ErrNotFound
	}
	return names[0], nil
}

func parseIDs(keys []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(keys))
	for _, k := range keys {
		if id, err := uuid.Parse(k); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
