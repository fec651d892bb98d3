package storagetest

import (
	"context"
	"sync/atomic"

	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Failing wraps a backend and fails Init with Err when set.
type Failing struct {
	storage.Implementation
	Label     string
	Err       error
	InitCalls atomic.Int32
	Closed    atomic.Int32
}

func (f *Failing) Name() string { return f.Label }

func (f *Failing) Init(ctx context.Context) error {
	f.InitCalls.Add(1)
	if f.Err != nil {
		return f.Err
	}
	return f.Implementation.Init(ctx)
}

func (f *Failing) Shutdown(ctx context.Context) error {
	f.Closed.Add(1)
	return f.Implementation.Shutdown(ctx)
}

func (f *Failing) Meta(ctx context.Context) model.StorageMetadata {
	m := f.Implementation.Meta(ctx)
	m.Name = f.Label
	return m
}
