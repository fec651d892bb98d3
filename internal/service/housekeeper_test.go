package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/model"
)

func TestHousekeeper_Run(t *testing.T) {
	f := newFixture(t)

	idle, online, recent := uuid.New(), uuid.New(), uuid.New()
	for _, id := range []uuid.UUID{idle, online, recent} {
		f.users.GetOrMake(id, "")
	}
	f.sessions.Join(online)
	f.housekeeper.RegisterUsage(recent)

	if n := f.housekeeper.Run(context.Background()); n != 1 {
		t.Fatalf("unloaded = %d", n)
	}
	if f.users.IsLoaded(idle) {
		t.Fatal("idle user kept")
	}
	if !f.users.IsLoaded(online) || !f.users.IsLoaded(recent) {
		t.Fatal("online or recent user unloaded")
	}
}

func TestHousekeeper_UnloadVeto(t *testing.T) {
	f := newFixture(t)

	pinned, idle := uuid.New(), uuid.New()
	f.users.GetOrMake(pinned, "")
	f.users.GetOrMake(idle, "")

	f.events.OnUserUnload(func(_ context.Context, u *model.User) bool {
		return u.ID() != pinned
	})

	if n := f.housekeeper.Run(context.Background()); n != 1 {
		t.Fatalf("unloaded = %d", n)
	}
	if !f.users.IsLoaded(pinned) || f.users.IsLoaded(idle) {
		t.Fatal("veto not honoured")
	}
}
