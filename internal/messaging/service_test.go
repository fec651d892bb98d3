package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/codec"
	"github.com/webitel/player-sync-service/internal/domain/model"
)

// ---------- fakes ----------

type recordingMessenger struct {
	mu     sync.Mutex
	sent   []Outgoing
	err    error
	closed int
}

func (m *recordingMessenger) Send(_ context.Context, msg Outgoing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *recordingMessenger) Close() error {
	m.closed++
	return nil
}

type fakeProvider struct {
	messenger *recordingMessenger
	consumer  Consumer
}

func (p *fakeProvider) Name() string { return "Fake" }

func (p *fakeProvider) Obtain(_ context.Context, c Consumer) (Messenger, error) {
	p.consumer = c
	return p.messenger, nil
}

type recordingHandler struct {
	mu          sync.Mutex
	updates     int
	userUpdates []uuid.UUID
	custom      []*model.CustomMessage
	panicOn     model.MessageType
}

func (h *recordingHandler) OnUpdate(context.Context, *model.UpdateMessage) {
	if h.panicOn == model.MessageUpdate {
		panic("boom")
	}
	h.mu.Lock()
	h.updates++
	h.mu.Unlock()
}

func (h *recordingHandler) OnUserUpdate(_ context.Context, m *model.UserUpdateMessage) {
	h.mu.Lock()
	h.userUpdates = append(h.userUpdates, m.UserID)
	h.mu.Unlock()
}

func (h *recordingHandler) OnCustom(_ context.Context, m *model.CustomMessage) {
	h.mu.Lock()
	h.custom = append(h.custom, m)
	h.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *fakeProvider, *recordingHandler) {
	t.Helper()
	p := &fakeProvider{messenger: &recordingMessenger{}}
	h := &recordingHandler{}
	s, err := NewService(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), p, h)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s, p, h
}

// ---------- tests ----------

func TestNewService_BindsConsumer(t *testing.T) {
	s, p, _ := newTestService(t)
	if p.consumer != Consumer(s) {
		t.Fatal("provider was not handed the service as consumer")
	}
}

func TestConsume_DedupsByID(t *testing.T) {
	s, _, h := newTestService(t)
	ctx := context.Background()
	msg := &model.UpdateMessage{ID: uuid.New()}

	if !s.Consume(ctx, msg) {
		t.Fatal("first consume must be accepted")
	}
	for range 3 {
		if s.Consume(ctx, msg) {
			t.Fatal("repeat consume must be rejected")
		}
	}
	if h.updates != 1 {
		t.Fatalf("handler fired %d times, want 1", h.updates)
	}
}

func TestConsumeEncoded_DispatchesByType(t *testing.T) {
	s, _, h := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	for _, m := range []model.Message{
		&model.UserUpdateMessage{ID: uuid.New(), UserID: user},
		&model.CustomMessage{ID: uuid.New(), ChannelID: "shop:reload", Payload: "{}"},
	} {
		encoded, err := codec.EncodeMessage(m)
		if err != nil {
			t.Fatal(err)
		}
		if !s.ConsumeEncoded(ctx, encoded) {
			t.Fatalf("%s not accepted", m.GetType())
		}
		if s.ConsumeEncoded(ctx, encoded) {
			t.Fatalf("%s accepted twice", m.GetType())
		}
	}

	if len(h.userUpdates) != 1 || h.userUpdates[0] != user {
		t.Fatalf("user updates = %v", h.userUpdates)
	}
	if len(h.custom) != 1 || h.custom[0].ChannelID != "shop:reload" {
		t.Fatalf("custom = %+v", h.custom)
	}
}

func TestConsumeEncoded_RejectsBadInput(t *testing.T) {
	s, _, h := newTestService(t)
	ctx := context.Background()

	unknown, _ := codec.Encode("teleport", uuid.New(), nil)
	missing, _ := codec.Encode(model.MessageCustom, uuid.New(), []byte(`{"channelId":"x"}`))

	for name, in := range map[string]string{
		"garbage":       "not json",
		"unknown type":  unknown,
		"missing field": missing,
	} {
		if s.ConsumeEncoded(ctx, in) {
			t.Fatalf("%s: accepted", name)
		}
	}
	if h.updates != 0 || len(h.custom) != 0 {
		t.Fatal("bad input reached a handler")
	}
}

func TestConsume_RecoversHandlerPanic(t *testing.T) {
	s, _, h := newTestService(t)
	h.panicOn = model.MessageUpdate

	if !s.Consume(context.Background(), &model.UpdateMessage{ID: uuid.New()}) {
		t.Fatal("message should still count as accepted")
	}
}

func TestPush_IgnoresOwnEcho(t *testing.T) {
	s, p, h := newTestService(t)

	id, err := s.PushCustomPayload("chat:broadcast", "hello")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(p.messenger.sent) != 1 || p.messenger.sent[0].ID != id {
		t.Fatalf("sent = %+v", p.messenger.sent)
	}

	if s.ConsumeEncoded(context.Background(), p.messenger.sent[0].Encoded) {
		t.Fatal("own message must be treated as already seen")
	}
	if len(h.custom) != 0 {
		t.Fatal("own message reached the handler")
	}
}

func TestPush_SendFailureIsSwallowed(t *testing.T) {
	s, p, _ := newTestService(t)
	p.messenger.err = errors.New("broker down")

	if _, err := s.PushUpdate(); err != nil {
		t.Fatalf("push must not surface transport errors: %v", err)
	}
}

func TestClose_RejectsPushes(t *testing.T) {
	s, p, _ := newTestService(t)

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	if p.messenger.closed != 1 {
		t.Fatalf("messenger closed %d times", p.messenger.closed)
	}
	if _, err := s.PushUserUpdate(uuid.New()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}
