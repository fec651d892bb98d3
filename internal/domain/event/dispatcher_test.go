package event

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), scheduler.Inline{})
}

func TestDispatcher_PreSyncVeto(t *testing.T) {
	d := newTestDispatcher()
	ctx := context.Background()

	if d.DispatchPreSync(ctx) {
		t.Fatal("no observers must not cancel")
	}

	d.OnPreSync(func(context.Context) bool { return true })
	off := d.OnPreSync(func(context.Context) bool { return false })
	if !d.DispatchPreSync(ctx) {
		t.Fatal("a vetoing observer must cancel the pass")
	}

	off()
	if d.DispatchPreSync(ctx) {
		t.Fatal("unsubscribed observer still vetoes")
	}

	d.OnPreSync(func(context.Context) bool { panic("bad observer") })
	if !d.DispatchPreSync(ctx) {
		t.Fatal("a panicking observer counts as a veto")
	}
}

func TestDispatcher_PostRoutesByKind(t *testing.T) {
	d := newTestDispatcher()

	var got []Eventer
	d.Subscribe(CustomMessageReceived, func(_ context.Context, ev Eventer) { got = append(got, ev) })
	d.Subscribe(PostSync, func(context.Context, Eventer) { panic("handler bug") })

	msg := &model.CustomMessage{ID: uuid.New(), ChannelID: "a:b", Payload: "x"}
	d.DispatchCustomMessageReceived(context.Background(), msg)
	d.DispatchPostSync(context.Background()) // must not panic out

	if len(got) != 1 {
		t.Fatalf("got %d events", len(got))
	}
	if got[0].GetChannel() != "a:b" || got[0].GetID() != msg.ID.String() {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

func TestDispatcher_UserUnloadVeto(t *testing.T) {
	d := newTestDispatcher()
	u := model.NewUser(uuid.New())

	d.OnUserUnload(func(_ context.Context, user *model.User) bool { return user.ID() != u.ID() })
	if !d.DispatchUserUnload(context.Background(), u) {
		t.Fatal("expected unload to be cancelled")
	}
	if d.DispatchUserUnload(context.Background(), model.NewUser(uuid.New())) {
		t.Fatal("other users must unload")
	}
}
