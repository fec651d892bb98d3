package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/buffer"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/domain/registry"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/service"
	"github.com/webitel/player-sync-service/internal/service/dto"
	"github.com/webitel/player-sync-service/internal/service/mapper"
	"github.com/webitel/player-sync-service/internal/storage"
)

const (
	maxBodyBytes = 64 << 10
	// cooldownPruneEvery is how many sync requests pass between sweeps of
	// elapsed per-caller cooldowns.
	cooldownPruneEvery = 256
)

// Publisher sends messages to the other nodes.
type Publisher interface {
	Name() string
	PushUpdate() (uuid.UUID, error)
	PushUserUpdate(userID uuid.UUID) (uuid.UUID, error)
	PushCustomPayload(channelID, payload string) (uuid.UUID, error)
}

// Players is the user side of the service layer.
type Players interface {
	GetIfLoaded(id uuid.UUID) (*model.User, bool)
	All() map[uuid.UUID]*model.User
	ProcessLogin(ctx context.Context, id uuid.UUID, username string) (*model.User, *model.PlayerSaveResult, error)
	ProcessLogout(id uuid.UUID)
}

type Syncer interface {
	RequestNow() *buffer.Request[service.SyncReport]
}

// PlayerStore answers lookups for players that are not loaded.
type PlayerStore interface {
	Meta(ctx context.Context) model.StorageMetadata
	PlayerName(ctx context.Context, id uuid.UUID) (string, error)
}

type Handler struct {
	publisher Publisher
	players   Players
	loader    service.UserLoader
	platform  service.Platform
	syncer    Syncer
	store     PlayerStore
	hub       registry.Hubber
	cooldowns *model.CooldownMap[string]
	syncCalls atomic.Uint64
	serverID  string
	logger    *slog.Logger
}

type Deps struct {
	Publisher    Publisher
	Players      Players
	Loader       service.UserLoader
	Platform     service.Platform
	Syncer       Syncer
	Store        PlayerStore
	Hub          registry.Hubber
	SyncCooldown time.Duration
	ServerID     string
	Logger       *slog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		publisher: d.Publisher,
		players:   d.Players,
		loader:    d.Loader,
		platform:  d.Platform,
		syncer:    d.Syncer,
		store:     d.Store,
		hub:       d.Hub,
		cooldowns: model.NewCooldownMap[string](d.SyncCooldown),
		serverID:  d.ServerID,
		logger:    d.Logger,
	}
}

// Sync runs a sync pass now and reports its outcome. Each caller is throttled
// by the sync cooldown.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	caller, _ := GetCaller(r.Context())
	// [MEMORY_MANAGEMENT]
	if h.syncCalls.Add(1)%cooldownPruneEvery == 0 {
		h.cooldowns.Prune()
	}
	if !h.cooldowns.Test(caller) {
		retry := h.cooldowns.Remaining(caller)
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "sync cooldown active")
		return
	}

	report, err := h.syncer.RequestNow().Wait(r.Context())
	switch {
	case errors.Is(err, buffer.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "service is shutting down")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "sync failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.SyncResultV1{
		Cancelled:  report.Cancelled,
		Users:      report.Users,
		StartedAt:  report.StartedAt,
		DurationMs: report.Duration.Milliseconds(),
	})
}

func (h *Handler) PushUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := h.publisher.PushUpdate()
	h.writePushed(w, id, err)
}

func (h *Handler) PushCustom(w http.ResponseWriter, r *http.Request) {
	var req dto.CustomMessageV1
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "channel_id is required")
		return
	}
	id, err := h.publisher.PushCustomPayload(req.ChannelID, req.Payload)
	h.writePushed(w, id, err)
}

func (h *Handler) writePushed(w http.ResponseWriter, id uuid.UUID, err error) {
	if errors.Is(err, messaging.ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, "messaging is closed")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, dto.PushResultV1{ID: id.String()})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	var req dto.LoginV1
	if !decodeBody(w, r, &req) {
		return
	}

	u, res, err := h.players.ProcessLogin(r.Context(), id, req.Username)
	if errors.Is(err, service.ErrInvalidUsername) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, mapper.LoginResultV1(u, h.platform.IsOnline(id), res))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	h.players.ProcessLogout(id)
	w.WriteHeader(http.StatusNoContent)
}

// Refresh reloads the player locally when loaded and asks the other nodes to do the same.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	if u, loaded := h.players.GetIfLoaded(id); loaded {
		name, _ := u.Username()
		if _, err := h.loader.LoadUser(r.Context(), id, name); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	msgID, err := h.publisher.PushUserUpdate(id)
	h.writePushed(w, msgID, err)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := playerID(w, r)
	if !ok {
		return
	}
	if u, loaded := h.players.GetIfLoaded(id); loaded {
		writeJSON(w, http.StatusOK, mapper.UserV1(u, h.platform.IsOnline(id)))
		return
	}

	name, err := h.store.PlayerName(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dto.UserV1{
		ID:          id.String(),
		Username:    name,
		DisplayName: name,
		Online:      h.platform.IsOnline(id),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	meta := h.store.Meta(r.Context())
	stats := h.hub.Stats()

	res := dto.HealthV1{
		Status:    "ok",
		ServerID:  h.serverID,
		Storage:   meta,
		Messaging: h.publisher.Name(),
		Loaded:    len(h.players.All()),
		Channels:  stats.Channels,
		Sessions:  stats.Sessions,
	}

	status := http.StatusOK
	if meta.Connected != nil && !*meta.Connected {
		res.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

func playerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player uuid")
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
