package amqp

import (
	"log/slog"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/player-sync-service/internal/messaging"
)

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to the messaging consumer. Every message is acked:
// delivery is at-most-once and a bad payload must never loop back.
func Bind(consumer messaging.Consumer, logger *slog.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		// [PANIC_RECOVERY]
		// Safely handle runtime panics to keep the consumer alive.
		defer func() {
			if r := recover(); r != nil {
				logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
			}
		}()

		if len(msg.Payload) == 0 {
			logger.Warn("EMPTY_PAYLOAD", "msg_id", msg.UUID)
			return nil
		}

		// [DEDUP] false means another path already delivered it; nothing to forward.
		if !consumer.ConsumeEncoded(msg.Context(), string(msg.Payload)) {
			logger.Debug("MESSAGE_SKIPPED", "msg_id", msg.UUID)
		}
		return nil
	}
}
