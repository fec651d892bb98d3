package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Outcome is a single flag of a PlayerSaveResult.
type Outcome uint8

const (
	// CleanInsert: there was no previous mapping for the unique id or the username.
	CleanInsert Outcome = 1 << iota
	// NoChange: the stored mapping already matched.
	NoChange
	// UsernameUpdated: the unique id was stored under a different username.
	UsernameUpdated
	// OtherUniqueIDsPresentForUsername: other unique ids are mapped to the same username.
	OtherUniqueIDsPresentForUsername
)

func (o Outcome) String() string {
	switch o {
	case CleanInsert:
		return "CLEAN_INSERT"
	case NoChange:
		return "NO_CHANGE"
	case UsernameUpdated:
		return "USERNAME_UPDATED"
	case OtherUniqueIDsPresentForUsername:
		return "OTHER_UNIQUE_IDS_PRESENT_FOR_USERNAME"
	default:
		return fmt.Sprintf("Outcome(%d)", uint8(o))
	}
}

// PlayerSaveResult describes what happened when a (uuid, username) pair was upserted.
// Values are immutable; use the constructors below.
type PlayerSaveResult struct {
	outcomes         Outcome
	previousUsername string
	otherUniqueIDs   []uuid.UUID
}

var (
	cleanInsertResult = &PlayerSaveResult{outcomes: CleanInsert}
	noChangeResult    = &PlayerSaveResult{outcomes: NoChange}
)

func CleanInsertResult() *PlayerSaveResult { return cleanInsertResult }

func NoChangeResult() *PlayerSaveResult { return noChangeResult }

func UsernameUpdatedResult(previous string) *PlayerSaveResult {
	return &PlayerSaveResult{outcomes: UsernameUpdated, previousUsername: previous}
}

// DetermineBaseResult classifies an upsert given the username already stored
// for the unique id ("" when there was none).
func DetermineBaseResult(username, oldUsername string) *PlayerSaveResult {
	switch {
	case oldUsername == "":
		return CleanInsertResult()
	case strings.EqualFold(oldUsername, username):
		return NoChangeResult()
	default:
		return UsernameUpdatedResult(oldUsername)
	}
}

// WithOtherUniqueIDs returns a copy of r flagged with OtherUniqueIDsPresentForUsername.
func (r *PlayerSaveResult) WithOtherUniqueIDs(ids []uuid.UUID) *PlayerSaveResult {
	other := slices.Clone(ids)
	slices.SortFunc(other, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return &PlayerSaveResult{
		outcomes:         r.outcomes | OtherUniqueIDsPresentForUsername,
		previousUsername: r.previousUsername,
		otherUniqueIDs:   other,
	}
}

func (r *PlayerSaveResult) Includes(o Outcome) bool { return r.outcomes&o != 0 }

func (r *PlayerSaveResult) Outcomes() []Outcome {
	var res []Outcome
	for _, o := range []Outcome{CleanInsert, NoChange, UsernameUpdated, OtherUniqueIDsPresentForUsername} {
		if r.Includes(o) {
			res = append(res, o)
		}
	}
	return res
}

// PreviousUsername is only set when UsernameUpdated is included.
func (r *PlayerSaveResult) PreviousUsername() string { return r.previousUsername }

// OtherUniqueIDs is only set when OtherUniqueIDsPresentForUsername is included.
func (r *PlayerSaveResult) OtherUniqueIDs() []uuid.UUID { return slices.Clone(r.otherUniqueIDs) }

func (r *PlayerSaveResult) Equal(other *PlayerSaveResult) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	return r.outcomes == other.outcomes &&
		r.previousUsername == other.previousUsername &&
		slices.Equal(r.otherUniqueIDs, other.otherUniqueIDs)
}

func (r *PlayerSaveResult) String() string {
	return fmt.Sprintf("PlayerSaveResult(outcomes=%v, previousUsername=%s, otherUuids=%v)",
		r.Outcomes(), r.previousUsername, r.otherUniqueIDs)
}
