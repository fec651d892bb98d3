// Package redisstore keeps users and player mappings in Redis hashes and sets.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Interface guard
var _ storage.Implementation = (*Storage)(nil)

// Key layout, relative to the prefix:
//
//	users             set of user ids
//	user:<uuid>       hash {username, updated}
//	player:<uuid>     string, lowercased username
//	username:<name>   set of player ids
type Storage struct {
	rdb    redis.UniversalClient
	prefix string
}

type Option func(*Storage)

func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = strings.Trim(prefix, ":") }
}

func New(rdb redis.UniversalClient, opts ...Option) *Storage {
	s := &Storage{rdb: rdb, prefix: "playersync"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

func (s *Storage) Name() string { return storage.TypeRedis.DisplayName() }

func (s *Storage) Init(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisstore: ping: %w", err)
	}
	return nil
}

func (s *Storage) Shutdown(context.Context) error { return nil }

func (s *Storage) Meta(ctx context.Context) model.StorageMetadata {
	meta := model.StorageMetadata{
		Name:    s.Name(),
		Details: map[string]string{"redis.prefix": s.prefix},
	}

	start := time.Now()
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return meta.WithConnected(false)
	}
	meta.PingMillis = time.Since(start).Milliseconds()
	meta = meta.WithConnected(true)

	if n, err := s.rdb.SCard(ctx, s.key("users")).Result(); err == nil {
		meta.Details["redis.users"] = strconv.FormatInt(n, 10)
	}
	return meta
}

func (s *Storage) LoadUser(ctx context.Context, id uuid.UUID) (*storage.UserRecord, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key("user", id.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: load user %s: %w", id, err)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return &storage.UserRecord{ID: id, Username: vals["username"]}, nil
}

func (s *Storage) LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*storage.UserRecord, error) {
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.key("user", id.String()))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: load users: %w", err)
	}

	res := make(map[uuid.UUID]*storage.UserRecord, len(ids))
	for i, cmd := range cmds {
		vals := cmd.Val()
		if len(vals) == 0 {
			continue
		}
		res[ids[i]] = &storage.UserRecord{ID: ids[i], Username: vals["username"]}
	}
	return res, nil
}

func (s *Storage) SaveUser(ctx context.Context, rec storage.UserRecord) error {
	id := rec.ID.String()
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key("user", id), "username", rec.Username, "updated", time.Now().UnixMilli())
		pipe.SAdd(ctx, s.key("users"), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: save user %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Storage) UniqueUsers(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := s.rdb.SMembers(ctx, s.key("users")).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: unique users: %w", err)
	}
	return parseIDs(keys), nil
}

func (s *Storage) SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	username = strings.ToLower(username)
	key := id.String()

	oldUsername, err := s.rdb.Get(ctx, s.key("player", key)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: save player data %s: %w", id, err)
	}

	var members *redis.StringSliceCmd
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if oldUsername != "" && oldUsername != username {
			pipe.SRem(ctx, s.key("username", oldUsername), key)
		}
		pipe.Set(ctx, s.key("player", key), username, 0)
		pipe.SAdd(ctx, s.key("username", username), key)
		members = pipe.SMembers(ctx, s.key("username", username))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisstore: save player data %s: %w", id, err)
	}

	res := model.DetermineBaseResult(username, oldUsername)
	others := slices.DeleteFunc(parseIDs(members.Val()), func(other uuid.UUID) bool { return other == id })
	if len(others) > 0 {
		res = res.WithOtherUniqueIDs(others)
	}
	return res, nil
}

func (s *Storage) DeletePlayerData(ctx context.Context, id uuid.UUID) error {
	key := id.String()
	name, err := s.rdb.Get(ctx, s.key("player", key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redisstore: delete player data %s: %w", id, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, s.key("username", name), key)
		pipe.Del(ctx, s.key("player", key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: delete player data %s: %w", id, err)
	}
	return nil
}

func (s *Storage) PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error) {
	keys, err := s.rdb.SMembers(ctx, s.key("username", strings.ToLower(username))).Result()
	if err != nil {
		return uuid.Nil, fmt.Errorf("redisstore: player unique id: %w", err)
	}
	ids := parseIDs(keys)
	if len(ids) == 0 {
		return uuid.Nil, storage.ErrNotFound
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids[0], nil
}

func (s *Storage) PlayerName(ctx context.Context, id uuid.UUID) (string, error) {
	name, err := s.rdb.Get(ctx, s.key("player", id.String())).Result()
	if errors.Is(err, redis.Nil) || name == "" || name == "null" {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redisstore: player name: %w", err)
	}
	return name, nil
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
