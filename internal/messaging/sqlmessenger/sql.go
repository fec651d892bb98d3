// Package sqlmessenger uses a shared append-only table as the wire. Every
// node inserts one row per message and polls for rows above the highest id
// it has seen; a housekeeping task trims rows past the retention window.
package sqlmessenger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/scheduler"
)

const (
	DefaultPollInterval         = time.Second
	DefaultHousekeepingInterval = 30 * time.Second
	DefaultPollWindow           = 30 * time.Second
	DefaultRetention            = 60 * time.Second

	transportName = "SQL"
)

var validPrefix = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Interface guards
var (
	_ messaging.Provider  = (*Provider)(nil)
	_ messaging.Messenger = (*Messenger)(nil)
)

type row struct {
	ID   uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	Time time.Time `gorm:"column:time;not null"`
	Msg  string    `gorm:"column:msg;type:text;not null"`
}

type Settings struct {
	TablePrefix          string
	PollInterval         time.Duration
	HousekeepingInterval time.Duration
	// PollWindow ignores rows older than this even above the watermark, so a
	// node never replays a backlog after a long pause.
	PollWindow time.Duration
	Retention  time.Duration
}

func (s Settings) withDefaults() Settings {
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.HousekeepingInterval <= 0 {
		s.HousekeepingInterval = DefaultHousekeepingInterval
	}
	if s.PollWindow <= 0 {
		s.PollWindow = DefaultPollWindow
	}
	if s.Retention <= 0 {
		s.Retention = DefaultRetention
	}
	return s
}

type Provider struct {
	db       *gorm.DB
	settings Settings
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewProvider(db *gorm.DB, settings Settings, logger *slog.Logger, m *metrics.Metrics) *Provider {
	return &Provider{db: db, settings: settings, logger: logger, metrics: m}
}

func (p *Provider) Name() string { return transportName }

func (p *Provider) Obtain(ctx context.Context, consumer messaging.Consumer) (messaging.Messenger, error) {
	m, err := New(p.db, p.settings, consumer, p.logger, p.metrics)
	if err != nil {
		return nil, err
	}
	if err := m.Init(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

type Messenger struct {
	db       *gorm.DB
	table    string
	settings Settings
	consumer messaging.Consumer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// mu serializes every statement issued by this messenger.
	mu      sync.Mutex
	lastID  uint64
	closed  bool
	poll    *scheduler.RepeatingTask
	housekp *scheduler.RepeatingTask
}

func New(db *gorm.DB, settings Settings, consumer messaging.Consumer, logger *slog.Logger, m *metrics.Metrics) (*Messenger, error) {
	if !validPrefix.MatchString(settings.TablePrefix) {
		return nil, fmt.Errorf("sqlmessenger: invalid table prefix %q", settings.TablePrefix)
	}
	settings = settings.withDefaults()
	table := settings.TablePrefix + "messenger"
	return &Messenger{
		db:       db,
		table:    table,
		settings: settings,
		consumer: consumer,
		logger:   logger.With("table", table),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Init creates the table, starts from the current highest id and schedules
// the poll and housekeeping tasks.
func (m *Messenger) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	db := m.db.WithContext(ctx)
	if err := db.Table(m.table).AutoMigrate(&row{}); err != nil {
		return fmt.Errorf("sqlmessenger: migrate %s: %w", m.table, err)
	}

	var maxID sql.NullInt64
	if err := db.Table(m.table).Select("MAX(id)").Row().Scan(&maxID); err != nil {
		return fmt.Errorf("sqlmessenger: read watermark: %w", err)
	}
	if maxID.Valid {
		m.lastID = uint64(maxID.Int64)
	}

	m.poll = scheduler.NewRepeatingTask("sql-messenger-poll", m.settings.PollInterval, m.settings.PollInterval, m.logger, m.pollTick)
	m.housekp = scheduler.NewRepeatingTask("sql-messenger-housekeeping", m.settings.HousekeepingInterval, m.settings.HousekeepingInterval, m.logger, m.housekeepingTick)

	m.logger.Info("SQL_MESSENGER_STARTED", "watermark", m.lastID)
	return nil
}

func (m *Messenger) Send(ctx context.Context, msg messaging.Outgoing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return messaging.ErrClosed
	}

	r := row{Time: m.now(), Msg: msg.Encoded}
	if err := m.db.WithContext(ctx).Table(m.table).Create(&r).Error; err != nil {
		return fmt.Errorf("sqlmessenger: insert %s: %w", msg.ID, err)
	}
	return nil
}

func (m *Messenger) pollTick(ctx context.Context) {
	if err := m.PollMessages(ctx); err != nil {
		m.logger.Warn("POLL_FAILED", "err", err)
		m.metrics.TransportError(transportName, "poll")
	}
}

func (m *Messenger) housekeepingTick(ctx context.Context) {
	if _, err := m.Housekeep(ctx); err != nil {
		m.logger.Warn("HOUSEKEEPING_FAILED", "err", err)
		m.metrics.TransportError(transportName, "housekeeping")
	}
}

// PollMessages feeds rows above the watermark to the consumer in id order.
func (m *Messenger) PollMessages(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	var rows []row
	err := m.db.WithContext(ctx).Table(m.table).
		Where("id > ? AND time >= ?", m.lastID, m.now().Add(-m.settings.PollWindow)).
		Order("id").
		Find(&rows).Error
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("sqlmessenger: poll: %w", err)
	}
	for _, r := range rows {
		m.lastID = max(m.lastID, r.ID)
	}
	m.mu.Unlock()

	// Handlers may call back into Send, so consume outside the lock.
	for _, r := range rows {
		m.consumer.ConsumeEncoded(ctx, r.Msg)
	}
	return nil
}

// Housekeep deletes rows older than the retention window.
func (m *Messenger) Housekeep(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, nil
	}

	res := m.db.WithContext(ctx).Table(m.table).
		Where("time < ?", m.now().Add(-m.settings.Retention)).
		Delete(&row{})
	if res.Error != nil {
		return 0, fmt.Errorf("sqlmessenger: housekeeping: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		m.logger.Debug("HOUSEKEEPING_DONE", "deleted", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// Close cancels both tasks before giving up the connection. It is safe after
// a failed Init and when called twice.
func (m *Messenger) Close() error {
	m.poll.Cancel()
	m.housekp.Cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.logger.Info("SQL_MESSENGER_CLOSED")
	}
	return nil
}
