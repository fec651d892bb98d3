// Package dto holds the JSON views of the admin API.
package dto

import (
	"time"

	"github.com/webitel/player-sync-service/internal/domain/model"
)

type UserV1 struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name"`
	Loaded      bool   `json:"loaded"`
	Online      bool   `json:"online"`
}

type LoginV1 struct {
	Username string `json:"username"`
}

type LoginResultV1 struct {
	User           UserV1   `json:"user"`
	Outcomes       []string `json:"outcomes"`
	PreviousName   string   `json:"previous_username,omitempty"`
	OtherUniqueIDs []string `json:"other_unique_ids,omitempty"`
}

type CustomMessageV1 struct {
	ChannelID string `json:"channel_id"`
	Payload   string `json:"payload"`
}

type PushResultV1 struct {
	ID string `json:"id"`
}

type SyncResultV1 struct {
	Cancelled  bool      `json:"cancelled"`
	Users      int       `json:"users"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

type HealthV1 struct {
	Status    string                `json:"status"`
	ServerID  string                `json:"server_id,omitempty"`
	Storage   model.StorageMetadata `json:"storage"`
	Messaging string                `json:"messaging"`
	Loaded    int                   `json:"loaded_users"`
	Channels  int                   `json:"stream_channels"`
	Sessions  int                   `json:"stream_sessions"`
}

type ErrorV1 struct {
	Error string `json:"error"`
}
