package model

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxUsernameLength is the longest username a player record may carry.
const MaxUsernameLength = 16

// User is the in-memory state tracked for a single player.
// Instances are shared between the user manager and the sync pass, so all
// mutable fields are guarded.
type User struct {
	id uuid.UUID

	mu       sync.RWMutex
	username string
}

func NewUser(id uuid.UUID) *User {
	return &User{id: id}
}

func (u *User) ID() uuid.UUID { return u.id }

// Username returns the last known username, or false if none has been recorded.
func (u *User) Username() (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.username, u.username != ""
}

// DisplayName falls back to the id when no username is known.
func (u *User) DisplayName() string {
	if name, ok := u.Username(); ok {
		return name
	}
	return u.id.String()
}

// SetUsername records a username for the user and reports whether the stored
// value changed. A weak update only fills an empty slot, although it still
// refreshes the casing of an equal name. Empty names and the literal "null"
// clear the username.
func (u *User) SetUsername(name string, weak bool) bool {
	if len(name) > MaxUsernameLength {
		return false
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if weak && u.username != "" {
		if strings.EqualFold(u.username, name) {
			u.username = name
		}
		return false
	}

	if strings.EqualFold(name, "null") {
		name = ""
	}

	if (u.username == "") != (name == "") {
		u.username = name
		return true
	}

	if u.username == "" {
		return false
	}

	if strings.EqualFold(u.username, name) {
		// casing only
		u.username = name
		return false
	}

	u.username = name
	return true
}

func (u *User) String() string {
	return "User(uuid=" + u.id.String() + ")"
}
