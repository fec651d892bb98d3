package redismessenger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/messaging"
)

type collectingConsumer struct {
	mu  sync.Mutex
	got []string
}

func (c *collectingConsumer) Consume(context.Context, model.Message) bool { return true }

func (c *collectingConsumer) ConsumeEncoded(_ context.Context, s string) bool {
	if s == "explode" {
		panic("consumer failure")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
	return true
}

func (c *collectingConsumer) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func (c *collectingConsumer) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.got...)
}

// newTestClient uses an in-process miniredis unless PLAYERSYNC_TEST_REDIS
// names a disposable real server, e.g. "localhost:6379".
func newTestClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("PLAYERSYNC_TEST_REDIS")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMessenger_RoundTrip(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	channel := "playersync_test:" + uuid.NewString()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, b := &collectingConsumer{}, &collectingConsumer{}
	ma, err := New(ctx, rdb, channel, a, logger)
	if err != nil {
		t.Fatalf("subscribe a: %v", err)
	}
	mb, err := New(ctx, rdb, channel, b, logger)
	if err != nil {
		t.Fatalf("subscribe b: %v", err)
	}

	if err := ma.Send(ctx, messaging.Outgoing{ID: uuid.New(), Encoded: "payload"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	waitFor(t, func() bool { return b.len() == 1 })
	if got := b.snapshot(); got[0] != "payload" {
		t.Fatalf("b received %v", got)
	}

	if err := ma.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_ = ma.Close()
	_ = mb.Close()
}

func TestMessenger_SurvivesConsumerPanic(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	channel := "playersync_test:" + uuid.NewString()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender, err := New(ctx, rdb, channel, &collectingConsumer{}, logger)
	if err != nil {
		t.Fatalf("subscribe sender: %v", err)
	}
	defer sender.Close()
	peer := &collectingConsumer{}
	receiver, err := New(ctx, rdb, channel, peer, logger)
	if err != nil {
		t.Fatalf("subscribe receiver: %v", err)
	}
	defer receiver.Close()

	for _, payload := range []string{"garbage", "explode", "valid"} {
		if err := sender.Send(ctx, messaging.Outgoing{ID: uuid.New(), Encoded: payload}); err != nil {
			t.Fatalf("send %q: %v", payload, err)
		}
	}

	waitFor(t, func() bool { return peer.len() == 2 })
	if got := peer.snapshot(); got[0] != "garbage" || got[1] != "valid" {
		t.Fatalf("peer received %v", got)
	}
}

func TestMessenger_CloseStopsDelivery(t *testing.T) {
	rdb := newTestClient(t)
	ctx := context.Background()
	channel := "playersync_test:" + uuid.NewString()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender, err := New(ctx, rdb, channel, &collectingConsumer{}, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer sender.Close()
	peer := &collectingConsumer{}
	receiver, err := New(ctx, rdb, channel, peer, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := receiver.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := sender.Send(ctx, messaging.Outgoing{ID: uuid.New(), Encoded: "late"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if peer.len() != 0 {
		t.Fatalf("closed messenger received %v", peer.snapshot())
	}
}

func TestNewProvider_DefaultChannel(t *testing.T) {
	p := NewProvider(nil, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if p.channel != DefaultChannel || p.Name() != "Redis" {
		t.Fatalf("provider = %+v", p)
	}
}
