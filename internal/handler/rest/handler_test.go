package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/handler/lp"
	"github.com/webitel/player-sync-service/internal/handler/ws"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/scheduler"
	"github.com/webitel/player-sync-service/internal/service"
	"github.com/webitel/player-sync-service/internal/service/dto"
	"github.com/webitel/player-sync-service/internal/storage"
	"github.com/webitel/player-sync-service/internal/storage/memory"
)

type fakePublisher struct {
	mu      sync.Mutex
	updates int
	users   []uuid.UUID
	custom  []dto.CustomMessageV1
	err     error
}

func (p *fakePublisher) Name() string { return "Fake" }

func (p *fakePublisher) PushUpdate() (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	return uuid.New(), p.err
}

func (p *fakePublisher) PushUserUpdate(id uuid.UUID) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, id)
	return uuid.New(), p.err
}

func (p *fakePublisher) PushCustomPayload(channelID, payload string) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custom = append(p.custom, dto.CustomMessageV1{ChannelID: channelID, Payload: payload})
	return uuid.New(), p.err
}

type testAPI struct {
	server    *httptest.Server
	handler   *Handler
	publisher *fakePublisher
	users     *service.UserManager
	hub       *registry.Hub
	token     string
}

func newTestAPI(t *testing.T, opts RouterOptions, cooldown time.Duration) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := registry.NewUsers()
	events := event.NewDispatcher(logger, scheduler.Inline{})
	sessions := service.NewSessions(logger)
	st := storage.New(memory.New(), users, events, logger)
	housekeeper := service.NewHousekeeper(users, events, sessions, logger, 0)
	manager := service.NewUserManager(st, users, events, sessions, housekeeper, logger, nil)

	syncer := service.NewSyncer(service.NewSyncTask(manager, sessions, events, logger, nil), 10*time.Millisecond, logger)
	t.Cleanup(syncer.Close)

	hub := registry.NewHub(logger)
	t.Cleanup(hub.Shutdown)
	deliverer := service.NewDeliveryService(hub, "node-test")

	pub := &fakePublisher{}
	h := NewHandler(Deps{
		Publisher:    pub,
		Players:      manager,
		Loader:       manager,
		Platform:     sessions,
		Syncer:       syncer,
		Store:        st,
		Hub:          hub,
		SyncCooldown: cooldown,
		ServerID:     "node-test",
		Logger:       logger,
	})

	srv := httptest.NewServer(NewRouter(h, ws.NewWSHandler(logger, deliverer), lp.NewLPHandler(deliverer), nil, logger, opts))
	t.Cleanup(srv.Close)

	return &testAPI{server: srv, handler: h, publisher: pub, users: manager, hub: hub, token: opts.Token}
}

func (a *testAPI) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestAPI_LoginAndGetPlayer(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)
	id := uuid.New()

	resp := api.do(t, http.MethodPost, "/v1/players/"+id.String()+"/login", `{"username":"Steve"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	res := decode[dto.LoginResultV1](t, resp)
	if res.User.Username != "Steve" || !res.User.Online || len(res.Outcomes) != 1 || res.Outcomes[0] != "CLEAN_INSERT" {
		t.Fatalf("login result = %+v", res)
	}

	resp = api.do(t, http.MethodGet, "/v1/players/"+id.String(), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if u := decode[dto.UserV1](t, resp); !u.Loaded || u.DisplayName != "Steve" {
		t.Fatalf("user = %+v", u)
	}

	if resp := api.do(t, http.MethodPost, "/v1/players/"+id.String()+"/logout", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
}

func TestAPI_PlayerErrors(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/v1/players/not-a-uuid", "", http.StatusBadRequest},
		{http.MethodGet, "/v1/players/" + uuid.NewString(), "", http.StatusNotFound},
		{http.MethodPost, "/v1/players/" + uuid.NewString() + "/login", `{"username":""}`, http.StatusBadRequest},
		{http.MethodPost, "/v1/players/" + uuid.NewString() + "/login", `{`, http.StatusBadRequest},
		{http.MethodPost, "/v1/messages/custom", `{"payload":"x"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if resp := api.do(t, tc.method, tc.path, tc.body); resp.StatusCode != tc.want {
			t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.want)
		}
	}
}

func TestAPI_PushMessages(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)

	if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
	resp := api.do(t, http.MethodPost, "/v1/messages/custom", `{"channel_id":"shop:refresh","payload":"{}"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("custom status = %d", resp.StatusCode)
	}
	if res := decode[dto.PushResultV1](t, resp); uuid.Validate(res.ID) != nil {
		t.Fatalf("push id = %q", res.ID)
	}

	id := uuid.New()
	if resp := api.do(t, http.MethodPost, "/v1/players/"+id.String()+"/refresh", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}

	api.publisher.mu.Lock()
	defer api.publisher.mu.Unlock()
	if api.publisher.updates != 1 || len(api.publisher.custom) != 1 || len(api.publisher.users) != 1 || api.publisher.users[0] != id {
		t.Fatalf("publisher = %+v", api.publisher)
	}
}

func TestAPI_PushAfterClose(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)
	api.publisher.err = messaging.ErrClosed

	if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAPI_SyncCooldown(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Hour)
	api.users.GetOrMake(uuid.New(), "")

	resp := api.do(t, http.MethodPost, "/v1/sync", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sync status = %d", resp.StatusCode)
	}
	if res := decode[dto.SyncResultV1](t, resp); res.Cancelled || res.Users != 1 {
		t.Fatalf("sync result = %+v", res)
	}

	resp = api.do(t, http.MethodPost, "/v1/sync", "")
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Fatalf("second sync status = %d", resp.StatusCode)
	}
}

func TestAPI_SyncCooldownsArePruned(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Millisecond)

	doSync := func(caller string) {
		t.Helper()
		ctx := context.WithValue(context.Background(), CallerContextKey, caller)
		req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil).WithContext(ctx)
		rec := httptest.NewRecorder()
		api.handler.Sync(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("sync for %s status = %d", caller, rec.Code)
		}
	}

	for i := range cooldownPruneEvery - 1 {
		doSync(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if n := api.handler.cooldowns.Len(); n != cooldownPruneEvery-1 {
		t.Fatalf("tracked callers = %d", n)
	}

	time.Sleep(20 * time.Millisecond)
	doSync("10.1.0.1")
	if n := api.handler.cooldowns.Len(); n != 1 {
		t.Fatalf("tracked callers after sweep = %d, want 1", n)
	}
}

func TestAPI_BearerAuth(t *testing.T) {
	api := newTestAPI(t, RouterOptions{Token: "s3cret"}, time.Second)

	if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("authorized status = %d", resp.StatusCode)
	}

	api.token = "wrong"
	if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	// probes stay open
	api.token = ""
	if resp := api.do(t, http.MethodGet, "/v1/health", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestAPI_RateLimit(t *testing.T) {
	api := newTestAPI(t, RouterOptions{RateRPS: 0.001, RateBurst: 2}, time.Second)

	for i := range 2 {
		if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusAccepted {
			t.Fatalf("request %d status = %d", i, resp.StatusCode)
		}
	}
	if resp := api.do(t, http.MethodPost, "/v1/messages/update", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("over budget status = %d", resp.StatusCode)
	}
}

func TestAPI_Health(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)

	resp := api.do(t, http.MethodGet, "/v1/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	h := decode[dto.HealthV1](t, resp)
	if h.Status != "ok" || h.Messaging != "Fake" || h.ServerID != "node-test" {
		t.Fatalf("health = %+v", h)
	}
}

func TestAPI_LongPoll(t *testing.T) {
	api := newTestAPI(t, RouterOptions{}, time.Second)

	if resp := api.do(t, http.MethodGet, "/v1/poll/custom?channel=shop:refresh&timeout=1", ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("idle poll status = %d", resp.StatusCode)
	}

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if api.hub.IsSubscribed("shop:refresh") && api.hub.Stats().Sessions > 0 {
				msg := newCustom("shop:refresh", "hello")
				api.hub.Broadcast(event.NewCustomMessageV1Event(msg))
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	resp := api.do(t, http.MethodGet, "/v1/poll/custom?channel=shop:refresh&timeout=5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("poll status = %d", resp.StatusCode)
	}
	var body struct {
		Events []struct {
			Event   string `json:"event"`
			Payload struct {
				Payload string `json:"payload"`
			} `json:"payload"`
		} `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Events) != 1 || body.Events[0].Event != "custom_message" || body.Events[0].Payload.Payload != "hello" {
		t.Fatalf("events = %+v", body.Events)
	}
}

func TestGetCaller(t *testing.T) {
	if _, ok := GetCaller(context.Background()); ok {
		t.Fatal("caller on empty context")
	}
}
