package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/player-sync-service/internal/domain/event"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

const userReloadTimeout = 30 * time.Second

// Interface guard
var _ messaging.Handler = (*MessageHandler)(nil)

// MessageHandler reacts to messages accepted by the messaging service.
type MessageHandler struct {
	syncer *Syncer
	users  *UserManager
	loader UserLoader
	events *event.Dispatcher
	exec   scheduler.Executor
	logger *slog.Logger
}

func NewMessageHandler(
	syncer *Syncer,
	users *UserManager,
	loader UserLoader,
	events *event.Dispatcher,
	exec scheduler.Executor,
	logger *slog.Logger,
) *MessageHandler {
	return &MessageHandler{
		syncer: syncer,
		users:  users,
		loader: loader,
		events: events,
		exec:   exec,
		logger: logger,
	}
}

// OnUpdate schedules a full sync; the outcome is only logged.
func (h *MessageHandler) OnUpdate(_ context.Context, msg *model.UpdateMessage) {
	req := h.syncer.Request()
	h.exec.Go(func() {
		if _, err := req.Wait(context.Background()); err != nil {
			h.logger.Warn("REMOTE_SYNC_FAILED", "message_id", msg.ID, "err", err)
		}
	})
}

// OnUserUpdate reloads the user when this node has it loaded; otherwise it is ignored.
func (h *MessageHandler) OnUserUpdate(_ context.Context, msg *model.UserUpdateMessage) {
	u, ok := h.users.GetIfLoaded(msg.UserID)
	if !ok {
		return
	}
	name, _ := u.Username()

	h.exec.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), userReloadTimeout)
		defer cancel()
		if _, err := h.loader.LoadUser(ctx, msg.UserID, name); err != nil {
			h.logger.Warn("USER_RELOAD_FAILED", "user_id", msg.UserID, "message_id", msg.ID, "err", err)
		}
	})
}

func (h *MessageHandler) OnCustom(ctx context.Context, msg *model.CustomMessage) {
	h.events.DispatchCustomMessageReceived(ctx, msg)
}
