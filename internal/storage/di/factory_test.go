package storagedi

import (
	"io"
	"log/slog"
	"testing"

	"github.com/webitel/player-sync-service/config"
	clientdi "github.com/webitel/player-sync-service/infra/client/di"
	"github.com/webitel/player-sync-service/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Method: "memory", TablePrefix: "ps_"},
	}
}

func TestNewImplementation_SingleBackend(t *testing.T) {
	impl, err := NewImplementation(testConfig(), &clientdi.Clients{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if impl.Name() != "Memory" {
		t.Fatalf("name = %q", impl.Name())
	}
	if _, ok := impl.(*storage.Split); ok {
		t.Fatal("a single backend must not be wrapped in split storage")
	}
}

func TestNewImplementation_SplitNeedsClients(t *testing.T) {
	cfg := testConfig()
	cfg.SplitStorage = config.SplitStorageConfig{
		Enabled: true,
		Methods: map[string]string{"uuid": "redis"},
	}
	if _, err := NewImplementation(cfg, &clientdi.Clients{}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("redis route without a client should fail")
	}
}

func TestNewImplementation_RejectsUnknownMethod(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Method = "flatfile"
	if _, err := NewImplementation(cfg, &clientdi.Clients{}, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("unknown method should fail")
	}
}
