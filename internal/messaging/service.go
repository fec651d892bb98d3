package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/webitel/player-sync-service/internal/domain/codec"
	"github.com/webitel/player-sync-service/internal/domain/model"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

const (
	DefaultDedupTTL  = 5 * time.Minute
	DefaultDedupSize = 10000

	sendTimeout = 10 * time.Second
)

// Interface guard
var _ Consumer = (*Service)(nil)

// Service is the single entry point for pushing and consuming messages.
type Service struct {
	logger    *slog.Logger
	name      string
	messenger Messenger
	handler   Handler
	exec      scheduler.Executor
	metrics   *metrics.Metrics

	dedupTTL  time.Duration
	dedupSize int

	mu   sync.Mutex
	seen *expirable.LRU[uuid.UUID, struct{}]

	closed atomic.Bool
}

type Option func(*Service)

// WithDedup bounds the remembered ids by count and age.
func WithDedup(size int, ttl time.Duration) Option {
	return func(s *Service) {
		s.dedupSize = size
		s.dedupTTL = ttl
	}
}

func WithExecutor(exec scheduler.Executor) Option {
	return func(s *Service) { s.exec = exec }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService obtains a messenger from provider and binds it to handler.
func NewService(ctx context.Context, logger *slog.Logger, provider Provider, handler Handler, opts ...Option) (*Service, error) {
	s := &Service{
		logger:    logger.With("messenger", provider.Name()),
		name:      provider.Name(),
		handler:   handler,
		exec:      scheduler.Inline{},
		dedupTTL:  DefaultDedupTTL,
		dedupSize: DefaultDedupSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seen = expirable.NewLRU[uuid.UUID, struct{}](s.dedupSize, nil, s.dedupTTL)

	m, err := provider.Obtain(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("messaging: obtain %s: %w", provider.Name(), err)
	}
	s.messenger = m

	s.logger.Info("MESSENGER_READY")
	return s, nil
}

func (s *Service) Name() string { return s.name }

// markSeen records id and reports whether it was new.
func (s *Service) markSeen(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen.Contains(id) {
		return false
	}
	s.seen.Add(id, struct{}{})
	return true
}

// [INBOUND]

func (s *Service) Consume(ctx context.Context, msg model.Message) bool {
	if !s.markSeen(msg.GetID()) {
		s.metrics.MessageReceived(metrics.ResultDuplicate)
		return false
	}
	s.metrics.MessageReceived(metrics.ResultAccepted)
	s.dispatch(ctx, msg)
	return true
}

func (s *Service) ConsumeEncoded(ctx context.Context, encoded string) bool {
	env, err := codec.Decode(encoded)
	if err != nil {
		s.logger.Warn("DECODE_FAILED", "err", err)
		s.metrics.MessageReceived(metrics.ResultMalformed)
		return false
	}

	if !s.markSeen(env.ID) {
		s.metrics.MessageReceived(metrics.ResultDuplicate)
		return false
	}

	msg, err := env.Message()
	switch {
	case errors.Is(err, codec.ErrUnknownType):
		// Peers on a newer protocol.
		s.logger.Debug("UNKNOWN_MESSAGE_TYPE", "type", env.Type, "msg_id", env.ID)
		s.metrics.MessageReceived(metrics.ResultUnknown)
		return false
	case err != nil:
		s.logger.Warn("DECODE_FAILED", "err", err, "msg_id", env.ID, "type", env.Type)
		s.metrics.MessageReceived(metrics.ResultMalformed)
		return false
	}

	s.metrics.MessageReceived(metrics.ResultAccepted)
	s.dispatch(ctx, msg)
	return true
}

func (s *Service) dispatch(ctx context.Context, msg model.Message) {
	// [PANIC_RECOVERY] A handler bug must not take down a receive loop.
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("PANIC_RECOVERED", "err", r, "msg_id", msg.GetID(), "stack", string(debug.Stack()))
		}
	}()

	switch m := msg.(type) {
	case *model.UpdateMessage:
		s.logger.Info("UPDATE_RECEIVED", "msg_id", m.ID)
		s.handler.OnUpdate(ctx, m)
	case *model.UserUpdateMessage:
		s.logger.Info("USER_UPDATE_RECEIVED", "msg_id", m.ID, "user_id", m.UserID)
		s.handler.OnUserUpdate(ctx, m)
	case *model.CustomMessage:
		s.handler.OnCustom(ctx, m)
	}
}

// [OUTBOUND]

// PushUpdate asks every node to run a full sync.
func (s *Service) PushUpdate() (uuid.UUID, error) {
	return s.push(&model.UpdateMessage{ID: uuid.New()})
}

// PushUserUpdate asks every node to reload one user.
func (s *Service) PushUserUpdate(userID uuid.UUID) (uuid.UUID, error) {
	return s.push(&model.UserUpdateMessage{ID: uuid.New(), UserID: userID})
}

func (s *Service) PushCustomPayload(channelID, payload string) (uuid.UUID, error) {
	return s.push(&model.CustomMessage{ID: uuid.New(), ChannelID: channelID, Payload: payload})
}

// push registers the id before sending so the node ignores its own echo, then
// sends off the caller's goroutine.
func (s *Service) push(msg model.Message) (uuid.UUID, error) {
	if s.closed.Load() {
		return uuid.Nil, ErrClosed
	}

	encoded, err := codec.EncodeMessage(msg)
	if err != nil {
		return uuid.Nil, err
	}
	s.markSeen(msg.GetID())

	out := Outgoing{ID: msg.GetID(), Type: msg.GetType(), Encoded: encoded}
	s.exec.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := s.messenger.Send(ctx, out); err != nil {
			s.logger.Warn("SEND_FAILED", "err", err, "msg_id", out.ID, "type", out.Type)
			s.metrics.TransportError(s.name, "send")
			return
		}
		s.metrics.MessageSent(s.name, string(out.Type))
	})
	return out.ID, nil
}

// Close stops pushes and releases the transport. Safe to call twice.
func (s *Service) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.logger.Info("MESSENGER_CLOSING")
	return s.messenger.Close()
}
