// Package codec packs messenger notifications into a single string so that
// transports carrying opaque text (pub/sub payloads, a table column) can move them.
//
// Wire format: {"id":"<uuid>","type":"<tag>","content":<object>}, content omitted when empty.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

var (
	// ErrMalformed is returned for strings that are not a valid envelope, or
	// for a known type whose required content fields are missing.
	ErrMalformed = errors.New("codec: malformed message")
	// ErrUnknownType is returned for a type tag this node does not understand.
	// Peers may run a newer protocol, so callers should log and drop.
	ErrUnknownType = errors.New("codec: unknown message type")
)

// Envelope is the decoded outer layer of a message.
type Envelope struct {
	ID      uuid.UUID
	Type    model.MessageType
	Content json.RawMessage
}

type wireEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Encode packs type, id and an already encoded JSON body into one string.
func Encode(typ model.MessageType, id uuid.UUID, content json.RawMessage) (string, error) {
	if len(bytes.TrimSpace(content)) == 0 || bytes.Equal(bytes.TrimSpace(content), []byte("null")) {
		content = nil
	}
	raw, err := json.Marshal(wireEnvelope{ID: id.String(), Type: string(typ), Content: content})
	if err != nil {
		return "", fmt.Errorf("codec: encode %s: %w", typ, err)
	}
	return string(raw), nil
}

// Decode unpacks the outer envelope without interpreting the content.
func Decode(s string) (Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if w.ID == "" {
		return Envelope{}, fmt.Errorf("%w: no id", ErrMalformed)
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: id: %v", ErrMalformed, err)
	}
	if w.Type == "" {
		return Envelope{}, fmt.Errorf("%w: no type", ErrMalformed)
	}
	return Envelope{ID: id, Type: model.MessageType(w.Type), Content: w.Content}, nil
}

type customContent struct {
	ChannelID *string `json:"channelId"`
	Payload   *string `json:"payload"`
}

type userUpdateContent struct {
	UserUUID string `json:"userUuid"`
}

// EncodeMessage serializes a typed message.
func EncodeMessage(m model.Message) (string, error) {
	var (
		content []byte
		err     error
	)

	switch msg := m.(type) {
	case *model.UpdateMessage:
	case *model.UserUpdateMessage:
		content, err = json.Marshal(userUpdateContent{UserUUID: msg.UserID.String()})
	case *model.CustomMessage:
		content, err = json.Marshal(customContent{ChannelID: &msg.ChannelID, Payload: &msg.Payload})
	default:
		return "", fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
	if err != nil {
		return "", fmt.Errorf("codec: encode %s: %w", m.GetType(), err)
	}

	return Encode(m.GetType(), m.GetID(), content)
}

// DecodeMessage decodes a string straight into a typed message.
func DecodeMessage(s string) (model.Message, error) {
	env, err := Decode(s)
	if err != nil {
		return nil, err
	}
	return env.Message()
}

// Message interprets the content according to the envelope type.
func (e Envelope) Message() (model.Message, error) {
	switch e.Type {
	case model.MessageUpdate:
		return &model.UpdateMessage{ID: e.ID}, nil

	case model.MessageUserUpdate:
		var c userUpdateContent
		if err := unmarshalContent(e, &c); err != nil {
			return nil, err
		}
		if c.UserUUID == "" {
			return nil, fmt.Errorf("%w: userupdate: no userUuid", ErrMalformed)
		}
		userID, err := uuid.Parse(c.UserUUID)
		if err != nil {
			return nil, fmt.Errorf("%w: userupdate: %v", ErrMalformed, err)
		}
		return &model.UserUpdateMessage{ID: e.ID, UserID: userID}, nil

	case model.MessageCustom:
		var c customContent
		if err := unmarshalContent(e, &c); err != nil {
			return nil, err
		}
		if c.ChannelID == nil || c.Payload == nil {
			return nil, fmt.Errorf("%w: custom: channelId and payload are required", ErrMalformed)
		}
		return &model.CustomMessage{ID: e.ID, ChannelID: *c.ChannelID, Payload: *c.Payload}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
}

func unmarshalContent(e Envelope, v any) error {
	if len(e.Content) == 0 {
		return fmt.Errorf("%w: %s: no content", ErrMalformed, e.Type)
	}
	if err := json.Unmarshal(e.Content, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Type, err)
	}
	return nil
}
