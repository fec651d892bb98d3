package model

import (
	"testing"

	"github.com/google/uuid"
)

func TestDetermineBaseResult(t *testing.T) {
	if r := DetermineBaseResult("alice", ""); r != CleanInsertResult() {
		t.Fatalf("expected clean insert singleton, got %v", r)
	}
	if r := DetermineBaseResult("alice", "ALICE"); r != NoChangeResult() {
		t.Fatalf("expected no change singleton, got %v", r)
	}

	r := DetermineBaseResult("bob", "alice")
	if !r.Includes(UsernameUpdated) || r.Includes(CleanInsert) || r.Includes(NoChange) {
		t.Fatalf("unexpected outcomes %v", r.Outcomes())
	}
	if r.PreviousUsername() != "alice" {
		t.Fatalf("previous username = %q", r.PreviousUsername())
	}
}

func TestPlayerSaveResult_WithOtherUniqueIDs(t *testing.T) {
	other := uuid.New()
	base := NoChangeResult()
	r := base.WithOtherUniqueIDs([]uuid.UUID{other})

	if !r.Includes(NoChange) || !r.Includes(OtherUniqueIDsPresentForUsername) {
		t.Fatalf("unexpected outcomes %v", r.Outcomes())
	}
	if ids := r.OtherUniqueIDs(); len(ids) != 1 || ids[0] != other {
		t.Fatalf("other ids = %v", ids)
	}
	if base.Includes(OtherUniqueIDsPresentForUsername) {
		t.Fatal("singleton must not be mutated")
	}
	if !r.Equal(NoChangeResult().WithOtherUniqueIDs([]uuid.UUID{other})) {
		t.Fatal("equal results compare unequal")
	}
}
