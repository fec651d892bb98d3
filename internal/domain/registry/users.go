package registry

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// Users is the in-memory set of loaded users, keyed by unique id.
type Users struct {
	// users stores Map[uuid.UUID]*model.User. Optimized for [READ_HEAVY] workloads.
	users sync.Map
}

func NewUsers() *Users {
	return &Users{}
}

// GetOrMake returns the loaded user or creates it. A non-empty username is
// applied as a strong update.
func (r *Users) GetOrMake(id uuid.UUID, username string) *model.User {
	val, _ := r.users.LoadOrStore(id, model.NewUser(id))
	u := val.(*model.User)
	if username != "" {
		u.SetUsername(username, false)
	}
	return u
}

func (r *Users) GetIfLoaded(id uuid.UUID) (*model.User, bool) {
	val, ok := r.users.Load(id)
	if !ok {
		return nil, false
	}
	return val.(*model.User), true
}

// GetByUsername scans loaded users for a case-insensitive username match.
func (r *Users) GetByUsername(name string) (*model.User, bool) {
	var found *model.User
	r.users.Range(func(_, val any) bool {
		u := val.(*model.User)
		if n, ok := u.Username(); ok && strings.EqualFold(n, name) {
			found = u
			return false
		}
		return true
	})
	return found, found != nil
}

func (r *Users) IsLoaded(id uuid.UUID) bool {
	_, ok := r.users.Load(id)
	return ok
}

func (r *Users) Unload(id uuid.UUID) {
	r.users.Delete(id)
}

// IDs returns a snapshot of the loaded user ids.
func (r *Users) IDs() []uuid.UUID {
	var ids []uuid.UUID
	r.users.Range(func(key, _ any) bool {
		ids = append(ids, key.(uuid.UUID))
		return true
	})
	return ids
}

// All returns a snapshot of the loaded users.
func (r *Users) All() map[uuid.UUID]*model.User {
	res := make(map[uuid.UUID]*model.User)
	r.users.Range(func(key, val any) bool {
		res[key.(uuid.UUID)] = val.(*model.User)
		return true
	})
	return res
}

func (r *Users) Len() int {
	n := 0
	r.users.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
