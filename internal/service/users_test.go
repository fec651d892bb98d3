package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

func TestUserManager_ProcessLoginFirstLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var firstLogins int
	f.events.Subscribe(event.UserFirstLogin, func(context.Context, event.Eventer) { firstLogins++ })

	id := uuid.New()
	u, res, err := f.manager.ProcessLogin(ctx, id, "Steve")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Includes(model.CleanInsert) {
		t.Fatalf("expected clean insert, got %s", res)
	}
	if firstLogins != 1 {
		t.Fatalf("first login events = %d", firstLogins)
	}
	if name, _ := u.Username(); name != "Steve" {
		t.Fatalf("username = %q", name)
	}
	if !f.manager.IsLoaded(id) || !f.sessions.IsOnline(id) {
		t.Fatal("user should be loaded and online")
	}

	_, res, err = f.manager.ProcessLogin(ctx, id, "Steve")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if !res.Includes(model.NoChange) || firstLogins != 1 {
		t.Fatalf("second login: %s, first logins %d", res, firstLogins)
	}
}

func TestUserManager_ProcessLoginConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, second := uuid.New(), uuid.New()
	if _, _, err := f.manager.ProcessLogin(ctx, first, "alex"); err != nil {
		t.Fatalf("login: %v", err)
	}
	_, res, err := f.manager.ProcessLogin(ctx, second, "Alex")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Includes(model.OtherUniqueIDsPresentForUsername) {
		t.Fatalf("expected conflict, got %s", res)
	}
	if ids := res.OtherUniqueIDs(); !slices.Equal(ids, []uuid.UUID{first}) {
		t.Fatalf("other ids = %v", ids)
	}
}

func TestUserManager_ProcessLoginRejectsInvalidName(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"", strings.Repeat("x", model.MaxUsernameLength+1)} {
		_, _, err := f.manager.ProcessLogin(context.Background(), uuid.New(), name)
		if !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("%q: err = %v", name, err)
		}
	}
	if n := len(f.manager.All()); n != 0 {
		t.Fatalf("loaded users = %d", n)
	}
}

func TestUserManager_LoadAllUsersCoversLoadedAndOnline(t *testing.T) {
	f := newFixture(t)

	loaded, online := uuid.New(), uuid.New()
	f.manager.GetOrMake(loaded, "")
	f.sessions.Join(online)
	f.sessions.Join(loaded)

	var events int
	f.events.Subscribe(event.UserLoaded, func(context.Context, event.Eventer) { events++ })

	n, err := f.manager.LoadAllUsers(context.Background())
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if n != 2 || events != 2 {
		t.Fatalf("loaded %d users, %d events", n, events)
	}
	if !f.manager.IsLoaded(online) {
		t.Fatal("online user was not loaded")
	}
}

func TestUserManager_LoadAllUsersEmpty(t *testing.T) {
	f := newFixture(t)
	n, err := f.manager.LoadAllUsers(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("n = %d, err = %v", n, err)
	}
}

func TestUserManager_ProcessLogout(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	if _, _, err := f.manager.ProcessLogin(context.Background(), id, "notch"); err != nil {
		t.Fatalf("login: %v", err)
	}

	f.manager.ProcessLogout(id)
	if f.sessions.IsOnline(id) {
		t.Fatal("user still online")
	}
	// recently used users survive housekeeping
	if n := f.housekeeper.Run(context.Background()); n != 0 || !f.manager.IsLoaded(id) {
		t.Fatalf("unloaded %d", n)
	}
}
