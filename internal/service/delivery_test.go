package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/domain/registry"
)

func recvEvent(t *testing.T, conn registry.Connector) event.Eventer {
	t.Helper()
	select {
	case ev, ok := <-conn.Recv():
		if !ok {
			t.Fatal("connector closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestDeliveryService_Subscribe(t *testing.T) {
	hub := registry.NewHub(testLogger())
	defer hub.Shutdown()
	s := NewDeliveryService(hub, "node-1")

	if _, err := s.Subscribe(context.Background(), ""); !errors.Is(err, ErrEmptyChannel) {
		t.Fatalf("err = %v", err)
	}

	conn, err := s.Subscribe(context.Background(), "shop:refresh")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	hello := recvEvent(t, conn)
	if hello.GetKind() != event.Connected {
		t.Fatalf("first frame kind = %s", hello.GetKind())
	}
	if p := hello.GetPayload().(*event.ConnectedPayload); p.ServerID != "node-1" || p.ConnectionID != conn.GetID().String() {
		t.Fatalf("connected payload = %+v", p)
	}

	msg := &model.CustomMessage{ID: uuid.New(), ChannelID: "shop:refresh", Payload: "x"}
	if !hub.Broadcast(event.NewCustomMessageV1Event(msg)) {
		t.Fatal("broadcast not delivered")
	}
	if ev := recvEvent(t, conn); ev.GetID() != msg.ID.String() {
		t.Fatalf("event id = %s", ev.GetID())
	}

	s.Unsubscribe("shop:refresh", conn.GetID())
	select {
	case _, ok := <-conn.Recv():
		if ok {
			t.Fatal("unexpected event after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("connector not closed")
	}
}
