package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		typ  model.MessageType
		body json.RawMessage
	}{
		{"custom", json.RawMessage(`{"channelId":"a:b","payload":"hi"}`)},
		{"update", nil},
		{"future-type", json.RawMessage(`{"x":[1,2,3]}`)},
	}

	for _, tc := range cases {
		id := uuid.New()
		s, err := Encode(tc.typ, id, tc.body)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		env, err := Decode(s)
		if err != nil {
			t.Fatalf("decode %s: %v", s, err)
		}
		if env.ID != id || env.Type != tc.typ || !bytes.Equal(env.Content, tc.body) {
			t.Fatalf("round trip mismatch: got (%s, %s, %s)", env.Type, env.ID, env.Content)
		}
	}
}

func TestDecodeMessage_Typed(t *testing.T) {
	msgs := []model.Message{
		&model.UpdateMessage{ID: uuid.New()},
		&model.UserUpdateMessage{ID: uuid.New(), UserID: uuid.New()},
		&model.CustomMessage{ID: uuid.New(), ChannelID: "plugin:purpose", Payload: ""},
	}

	for _, m := range msgs {
		s, err := EncodeMessage(m)
		if err != nil {
			t.Fatalf("encode %T: %v", m, err)
		}
		got, err := DecodeMessage(s)
		if err != nil {
			t.Fatalf("decode %s: %v", s, err)
		}
		if got.GetID() != m.GetID() || got.GetType() != m.GetType() {
			t.Fatalf("got %+v, want %+v", got, m)
		}
		if c, ok := m.(*model.CustomMessage); ok {
			gc := got.(*model.CustomMessage)
			if gc.ChannelID != c.ChannelID || gc.Payload != c.Payload {
				t.Fatalf("custom content mismatch: %+v", gc)
			}
		}
	}
}

func TestDecodeMessage_Errors(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"not json", "{{", ErrMalformed},
		{"no id", `{"type":"update"}`, ErrMalformed},
		{"bad id", `{"id":"nope","type":"update"}`, ErrMalformed},
		{"no type", `{"id":"` + id + `"}`, ErrMalformed},
		{"custom without payload", `{"id":"` + id + `","type":"custom","content":{"channelId":"x"}}`, ErrMalformed},
		{"custom without content", `{"id":"` + id + `","type":"custom"}`, ErrMalformed},
		{"userupdate bad uuid", `{"id":"` + id + `","type":"userupdate","content":{"userUuid":"x"}}`, ErrMalformed},
		{"unknown", `{"id":"` + id + `","type":"log","content":{}}`, ErrUnknownType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeMessage(tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
