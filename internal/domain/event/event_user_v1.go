package event

import (
	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// UserPayload is carried by UserLoaded and UserUnload events.
type UserPayload struct {
	User *model.User
}

// FirstLoginPayload is carried by UserFirstLogin.
type FirstLoginPayload struct {
	UserID   uuid.UUID
	Username string
}

// PlayerDataSavedPayload is carried by PlayerDataSaved.
type PlayerDataSavedPayload struct {
	UserID   uuid.UUID
	Username string
	Result   *model.PlayerSaveResult
}
