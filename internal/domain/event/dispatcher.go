package event

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

// Handler observes informational events. It runs on the dispatcher executor.
type Handler func(ctx context.Context, ev Eventer)

// PreSyncObserver decides synchronously whether a sync pass may proceed.
type PreSyncObserver func(ctx context.Context) (proceed bool)

// UnloadObserver decides synchronously whether a user may be unloaded.
type UnloadObserver func(ctx context.Context, user *model.User) (allow bool)

// Dispatcher is the in-process observer registry.
type Dispatcher struct {
	logger *slog.Logger
	exec   scheduler.Executor

	seq      atomic.Uint64
	mu       sync.RWMutex
	handlers map[EventKind]map[uint64]Handler
	preSync  map[uint64]PreSyncObserver
	unload   map[uint64]UnloadObserver
}

func NewDispatcher(logger *slog.Logger, exec scheduler.Executor) *Dispatcher {
	if exec == nil {
		exec = scheduler.Inline{}
	}
	return &Dispatcher{
		logger:   logger,
		exec:     exec,
		handlers: make(map[EventKind]map[uint64]Handler),
		preSync:  make(map[uint64]PreSyncObserver),
		unload:   make(map[uint64]UnloadObserver),
	}
}

// Subscribe registers h for kind and returns a function that removes it.
func (d *Dispatcher) Subscribe(kind EventKind, h Handler) (unsubscribe func()) {
	id := d.seq.Add(1)

	d.mu.Lock()
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[uint64]Handler)
	}
	d.handlers[kind][id] = h
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.handlers[kind], id)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) OnPreSync(o PreSyncObserver) (unsubscribe func()) {
	id := d.seq.Add(1)
	d.mu.Lock()
	d.preSync[id] = o
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.preSync, id)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) OnUserUnload(o UnloadObserver) (unsubscribe func()) {
	id := d.seq.Add(1)
	d.mu.Lock()
	d.unload[id] = o
	d.mu.Unlock()
	return func() {
		d.mu.Lock()
		delete(d.unload, id)
		d.mu.Unlock()
	}
}

// Post delivers ev to every handler of its kind through the executor.
func (d *Dispatcher) Post(ctx context.Context, ev Eventer) {
	d.mu.RLock()
	hs := make([]Handler, 0, len(d.handlers[ev.GetKind()]))
	for _, h := range d.handlers[ev.GetKind()] {
		hs = append(hs, h)
	}
	d.mu.RUnlock()

	for _, h := range hs {
		d.exec.Go(func() {
			defer d.recover(ev.GetKind())
			h(context.WithoutCancel(ctx), ev)
		})
	}
}

// DispatchPreSync asks every observer in turn and reports whether any vetoed the pass.
// An observer that panics counts as a veto.
func (d *Dispatcher) DispatchPreSync(ctx context.Context) (cancelled bool) {
	d.mu.RLock()
	obs := make([]PreSyncObserver, 0, len(d.preSync))
	for _, o := range d.preSync {
		obs = append(obs, o)
	}
	d.mu.RUnlock()

	for _, o := range obs {
		if !d.callPreSync(ctx, o) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) callPreSync(ctx context.Context, o PreSyncObserver) (proceed bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("PRE_SYNC_OBSERVER_PANIC", "err", r, "stack", string(debug.Stack()))
			proceed = false
		}
	}()
	return o(ctx)
}

// DispatchUserUnload reports whether any observer kept the user loaded.
func (d *Dispatcher) DispatchUserUnload(ctx context.Context, u *model.User) (cancelled bool) {
	d.mu.RLock()
	obs := make([]UnloadObserver, 0, len(d.unload))
	for _, o := range d.unload {
		obs = append(obs, o)
	}
	d.mu.RUnlock()

	for _, o := range obs {
		if !d.callUnload(ctx, o, u) {
			return true
		}
	}
	return false
}

func (d *Dispatcher) callUnload(ctx context.Context, o UnloadObserver, u *model.User) (allow bool) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("UNLOAD_OBSERVER_PANIC", "err", r, "user_id", u.ID())
			allow = false
		}
	}()
	return o(ctx, u)
}

func (d *Dispatcher) DispatchPostSync(ctx context.Context) {
	d.Post(ctx, NewSystemEvent("", PostSync, PriorityNormal, nil))
}

func (d *Dispatcher) DispatchCustomMessageReceived(ctx context.Context, msg *model.CustomMessage) {
	d.Post(ctx, NewCustomMessageV1Event(msg))
}

func (d *Dispatcher) DispatchUserLoaded(ctx context.Context, u *model.User) {
	d.Post(ctx, NewSystemEvent("", UserLoaded, PriorityLow, &UserPayload{User: u}))
}

func (d *Dispatcher) DispatchFirstLogin(ctx context.Context, id uuid.UUID, username string) {
	d.Post(ctx, NewSystemEvent("", UserFirstLogin, PriorityNormal, &FirstLoginPayload{UserID: id, Username: username}))
}

func (d *Dispatcher) DispatchPlayerDataSaved(ctx context.Context, id uuid.UUID, username string, res *model.PlayerSaveResult) {
	d.Post(ctx, NewSystemEvent("", PlayerDataSaved, PriorityLow, &PlayerDataSavedPayload{
		UserID:   id,
		Username: username,
		Result:   res,
	}))
}

func (d *Dispatcher) recover(kind EventKind) {
	if r := recover(); r != nil {
		d.logger.Error("EVENT_HANDLER_PANIC", "kind", kind.String(), "err", r, "stack", string(debug.Stack()))
	}
}
