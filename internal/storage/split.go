package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// Interface guard
var _ Implementation = (*Split)(nil)

// Split routes each record category to its own backend.
type Split struct {
	logger   *slog.Logger
	backends map[Type]Implementation
	routes   map[SplitType]Type
	order    []Type
}

// NewSplit requires a backend for every routed category.
func NewSplit(logger *slog.Logger, backends map[Type]Implementation, routes map[SplitType]Type) (*Split, error) {
	for _, cat := range []SplitType{SplitUser, SplitUUID} {
		t, ok := routes[cat]
		if !ok {
			return nil, fmt.Errorf("storage: split: no method for category %q", cat)
		}
		if _, ok := backends[t]; !ok {
			return nil, fmt.Errorf("storage: split: category %q routed to %s which is not configured", cat, t)
		}
	}

	order := make([]Type, 0, len(backends))
	for t := range backends {
		order = append(order, t)
	}
	slices.Sort(order)

	return &Split{logger: logger, backends: backends, routes: routes, order: order}, nil
}

func (s *Split) implFor(cat SplitType) Implementation {
	return s.backends[s.routes[cat]]
}

// Implementations lists the distinct backends in a stable order.
func (s *Split) Implementations() []Implementation {
	res := make([]Implementation, 0, len(s.order))
	for _, t := range s.order {
		res = append(res, s.backends[t])
	}
	return res
}

func (s *Split) Name() string { return "Split Storage" }

// Init initializes every backend, even after a failure, and reports all failures together.
func (s *Split) Init(ctx context.Context) error {
	var errs []error
	for _, t := range s.order {
		if err := s.backends[t].Init(ctx); err != nil {
			s.logger.Error("SPLIT_BACKEND_INIT_FAILED", "backend", t, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage: split: one of the backends failed to init: %w", errors.Join(errs...))
	}
	return nil
}

func (s *Split) Shutdown(ctx context.Context) error {
	var errs []error
	for _, t := range s.order {
		if err := s.backends[t].Shutdown(ctx); err != nil {
			s.logger.Error("SPLIT_BACKEND_SHUTDOWN_FAILED", "backend", t, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Split) Meta(ctx context.Context) model.StorageMetadata {
	var meta model.StorageMetadata
	for _, t := range s.order {
		meta = meta.Combine(s.backends[t].Meta(ctx))
	}
	return meta
}

func (s *Split) LoadUser(ctx context.Context, id uuid.UUID) (*UserRecord, error) {
	return s.implFor(SplitUser).LoadUser(ctx, id)
}

func (s *Split) LoadUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*UserRecord, error) {
	return s.implFor(SplitUser).LoadUsers(ctx, ids)
}

func (s *Split) SaveUser(ctx context.Context, rec UserRecord) error {
	return s.implFor(SplitUser).SaveUser(ctx, rec)
}

func (s *Split) UniqueUsers(ctx context.Context) ([]uuid.UUID, error) {
	return s.implFor(SplitUser).UniqueUsers(ctx)
}

func (s *Split) SavePlayerData(ctx context.Context, id uuid.UUID, username string) (*model.PlayerSaveResult, error) {
	return s.implFor(SplitUUID).SavePlayerData(ctx, id, username)
}

func (s *Split) DeletePlayerData(ctx context.Context, id uuid.UUID) error {
	return s.implFor(SplitUUID).DeletePlayerData(ctx, id)
}

func (s *Split) PlayerUniqueID(ctx context.Context, username string) (uuid.UUID, error) {
	return s.implFor(SplitUUID).PlayerUniqueID(ctx, username)
}

func (s *Split) PlayerName(ctx context.Context, id uuid.UUID) (string, error) {
	return s.implFor(SplitUUID).PlayerName(ctx, id)
}
