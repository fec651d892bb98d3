// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Run exercises impl, which must be freshly initialized and empty.
func Run(t *testing.T, newImpl func(t *testing.T) storage.Implementation) {
	t.Run("SavePlayerDataOutcomes", func(t *testing.T) { testSavePlayerData(t, newImpl(t)) })
	t.Run("PlayerLookups", func(t *testing.T) { testLookups(t, newImpl(t)) })
	t.Run("UserRecords", func(t *testing.T) { testUsers(t, newImpl(t)) })
}

func testSavePlayerData(t *testing.T, impl storage.Implementation) {
	ctx := context.Background()
	alice, other := uuid.New(), uuid.New()

	res, err := impl.SavePlayerData(ctx, alice, "Alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !res.Includes(model.CleanInsert) || len(res.Outcomes()) != 1 {
		t.Fatalf("first save = %v, want CLEAN_INSERT", res.Outcomes())
	}

	res, err = impl.SavePlayerData(ctx, alice, "Alice")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !res.Includes(model.NoChange) || len(res.Outcomes()) != 1 {
		t.Fatalf("repeat save = %v, want NO_CHANGE", res.Outcomes())
	}

	if _, err := impl.SavePlayerData(ctx, other, "Bob"); err != nil {
		t.Fatalf("save other: %v", err)
	}

	res, err = impl.SavePlayerData(ctx, alice, "Bob")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !res.Includes(model.UsernameUpdated) {
		t.Fatalf("rename = %v, want USERNAME_UPDATED", res.Outcomes())
	}
	if res.PreviousUsername() != "alice" {
		t.Fatalf("previous username = %q", res.PreviousUsername())
	}
	if !res.Includes(model.OtherUniqueIDsPresentForUsername) {
		t.Fatalf("rename onto taken name = %v, want conflict flag", res.Outcomes())
	}
	if ids := res.OtherUniqueIDs(); !slices.Equal(ids, []uuid.UUID{other}) {
		t.Fatalf("conflicting ids = %v", ids)
	}

	// advisory only: the other mapping survives
	name, err := impl.PlayerName(ctx, other)
	if err != nil || name != "bob" {
		t.Fatalf("other mapping = (%q, %v)", name, err)
	}
}

func testLookups(t *testing.T, impl storage.Implementation) {
	ctx := context.Background()
	id := uuid.New()

	if _, err := impl.PlayerUniqueID(ctx, "nobody"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing username err = %v", err)
	}
	if _, err := impl.PlayerName(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing id err = %v", err)
	}

	if _, err := impl.SavePlayerData(ctx, id, "Steve"); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := impl.PlayerUniqueID(ctx, "STEVE")
	if err != nil || got != id {
		t.Fatalf("lookup by name = (%v, %v)", got, err)
	}

	if err := impl.DeletePlayerData(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := impl.PlayerName(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("after delete err = %v", err)
	}
}

func testUsers(t *testing.T, impl storage.Implementation) {
	ctx := context.Background()
	a, b, missing := uuid.New(), uuid.New(), uuid.New()

	rec, err := impl.LoadUser(ctx, a)
	if err != nil || rec != nil {
		t.Fatalf("load absent = (%v, %v)", rec, err)
	}

	if err := impl.SaveUser(ctx, storage.UserRecord{ID: a, Username: "Alice"}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := impl.SaveUser(ctx, storage.UserRecord{ID: b}); err != nil {
		t.Fatalf("save b: %v", err)
	}
	if err := impl.SaveUser(ctx, storage.UserRecord{ID: a, Username: "Alicia"}); err != nil {
		t.Fatalf("update a: %v", err)
	}

	rec, err = impl.LoadUser(ctx, a)
	if err != nil || rec == nil || rec.Username != "Alicia" {
		t.Fatalf("load a = (%+v, %v)", rec, err)
	}

	recs, err := impl.LoadUsers(ctx, []uuid.UUID{a, b, missing})
	if err != nil {
		t.Fatalf("load users: %v", err)
	}
	if len(recs) != 2 || recs[b] == nil || recs[b].Username != "" || recs[missing] != nil {
		t.Fatalf("load users = %v", recs)
	}

	ids, err := impl.UniqueUsers(ctx)
	if err != nil {
		t.Fatalf("unique users: %v", err)
	}
	if len(ids) != 2 || !slices.Contains(ids, a) || !slices.Contains(ids, b) {
		t.Fatalf("unique users = %v", ids)
	}

	if !impl.Meta(ctx).IsConnected() {
		t.Fatal("meta reports a disconnected backend")
	}
}
