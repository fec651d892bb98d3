package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

type reloadCounter struct {
	*UserManager
	reloads atomic.Int32
}

func (r *reloadCounter) LoadUser(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	r.reloads.Add(1)
	return r.UserManager.LoadUser(ctx, id, username)
}

func newTestHandler(t *testing.T) (*MessageHandler, *fixture, *reloadCounter, *countingLoader) {
	t.Helper()
	f := newFixture(t)
	loader := &reloadCounter{UserManager: f.manager}

	counting := &countingLoader{}
	task := NewSyncTask(counting, f.sessions, f.events, testLogger(), nil)
	syncer := NewSyncer(task, 10*time.Millisecond, testLogger())
	t.Cleanup(syncer.Close)

	return NewMessageHandler(syncer, f.manager, loader, f.events, scheduler.Inline{}, testLogger()), f, loader, counting
}

func TestMessageHandler_OnUpdateRunsSync(t *testing.T) {
	h, _, _, counting := newTestHandler(t)

	// the inline executor waits for the sync outcome
	h.OnUpdate(context.Background(), &model.UpdateMessage{ID: uuid.New()})
	if n := counting.all.Load(); n != 1 {
		t.Fatalf("sync runs = %d", n)
	}
}

func TestMessageHandler_OnUserUpdate(t *testing.T) {
	h, f, loader, _ := newTestHandler(t)

	h.OnUserUpdate(context.Background(), &model.UserUpdateMessage{ID: uuid.New(), UserID: uuid.New()})
	if n := loader.reloads.Load(); n != 0 {
		t.Fatalf("unknown user reloaded %d times", n)
	}

	id := uuid.New()
	f.manager.GetOrMake(id, "jeb_")
	h.OnUserUpdate(context.Background(), &model.UserUpdateMessage{ID: uuid.New(), UserID: id})
	if n := loader.reloads.Load(); n != 1 {
		t.Fatalf("reloads = %d", n)
	}
}

func TestMessageHandler_OnCustom(t *testing.T) {
	h, f, _, _ := newTestHandler(t)

	var got *model.CustomMessage
	f.events.Subscribe(event.CustomMessageReceived, func(_ context.Context, ev event.Eventer) {
		got = ev.GetPayload().(*model.CustomMessage)
	})

	msg := &model.CustomMessage{ID: uuid.New(), ChannelID: "shop:refresh", Payload: "{}"}
	h.OnCustom(context.Background(), msg)
	if got != msg {
		t.Fatalf("custom event payload = %v", got)
	}
}
