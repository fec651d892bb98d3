package model

import "github.com/google/uuid"

// MessageType tags the payload carried by a messenger envelope.
type MessageType string

const (
	// [SYNC] Ask every node to run a full resync.
	MessageUpdate MessageType = "update"
	// [SYNC] Ask every node to reload one user, if it has it loaded.
	MessageUserUpdate MessageType = "userupdate"
	// [BUSINESS] Opaque payload addressed to a named channel.
	MessageCustom MessageType = "custom"
)

// Message is a notification exchanged between nodes.
// The id exists only for deduplication and says nothing about ordering.
type Message interface {
	GetID() uuid.UUID
	GetType() MessageType
}

var (
	_ Message = (*UpdateMessage)(nil)
	_ Message = (*UserUpdateMessage)(nil)
	_ Message = (*CustomMessage)(nil)
)

type UpdateMessage struct {
	ID uuid.UUID
}

func (m *UpdateMessage) GetID() uuid.UUID     { return m.ID }
func (m *UpdateMessage) GetType() MessageType { return MessageUpdate }

type UserUpdateMessage struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

func (m *UserUpdateMessage) GetID() uuid.UUID     { return m.ID }
func (m *UserUpdateMessage) GetType() MessageType { return MessageUserUpdate }

// CustomMessage carries a producer-defined payload. ChannelID is namespaced by
// convention ("plugin:purpose") and is never validated.
type CustomMessage struct {
	ID        uuid.UUID
	ChannelID string
	Payload   string
}

func (m *CustomMessage) GetID() uuid.UUID     { return m.ID }
func (m *CustomMessage) GetType() MessageType { return MessageCustom }
