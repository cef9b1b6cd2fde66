package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"loan-eligibility-workers/internal/common/database"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
)

const (
	StatusPending   = "pending"
	StatusPublished = "published"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	PublishJSON(ctx context.Context, topic, key, eventType string, event interface{}) error
}

// Record is one event waiting in the event_outbox table.
type Record struct {
	ID        string
	EventType string
	Topic     string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
}

func NewRecord(topic, key, eventType string, event interface{}, createdAt time.Time) (Record, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Record{}, fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	return Record{
		ID:        uuid.New().String(),
		EventType: eventType,
		Topic:     topic,
		Key:       key,
		Payload:   payload,
		CreatedAt: createdAt,
	}, nil
}

const insertRecord = `
	INSERT INTO event_outbox (id, event_type, topic, message_key, payload, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectPending = `
	SELECT id, event_type, topic, message_key, payload, created_at
	FROM event_outbox
	WHERE status = $1 AND created_at <= $2
	ORDER BY created_at
	LIMIT $3
	FOR UPDATE SKIP LOCKED`

const markPublished = `UPDATE event_outbox SET status = $2, published_at = $3 WHERE id = $1`

const markFailed = `UPDATE event_outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`

// Enqueue stores rec as pending. Pass the transaction that writes the
// event's subject so both commit or neither does.
func Enqueue(ctx context.Context, q database.Execer, rec Record) error {
	if _, err := q.ExecContext(ctx, insertRecord,
		rec.ID, rec.EventType, rec.Topic, rec.Key, []byte(rec.Payload), StatusPending, rec.CreatedAt,
	); err != nil {
		return fmt.Errorf("enqueue %s event: %w", rec.EventType, err)
	}
	return nil
}

type Config struct {
	BatchSize int
	// MinAge keeps Flush away from records whose writer is still about to
	// deliver them itself.
	MinAge   time.Duration
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize: 100,
		MinAge:    30 * time.Second,
		Interval:  5 * time.Second,
	}
}

// Relay moves committed outbox records to the broker. Delivery is at least
// once; consumers dedupe on the event id.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	config    Config
	now       func() time.Time
	logger    logger.Logger
}

func NewRelay(db *sql.DB, publisher Publisher, cfg Config, log logger.Logger) *Relay {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = def.MinAge
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	return &Relay{
		db:        db,
		publisher: publisher,
		config:    cfg,
		now:       time.Now,
		logger:    log.WithFields(map[string]interface{}{"component": "outbox-relay"}),
	}
}

// Deliver publishes a record that has already been committed and marks it
// published. On a publish failure the record stays pending for Flush.
func (r *Relay) Deliver(ctx context.Context, rec Record) error {
	return r.deliver(ctx, r.db, rec)
}

func (r *Relay) deliver(ctx context.Context, q database.Execer, rec Record) error {
	if err := r.publisher.PublishJSON(ctx, rec.Topic, rec.Key, rec.EventType, rec.Payload); err != nil {
		if _, uerr := q.ExecContext(ctx, markFailed, rec.ID, err.Error()); uerr != nil {
			r.logger.Warn("failed to record outbox attempt", map[string]interface{}{
				"outboxId": rec.ID,
				"error":    uerr,
			})
		}
		return apperrors.NewEventPublishFailedError(rec.Topic, err)
	}
	if _, err := q.ExecContext(ctx, markPublished, rec.ID, StatusPublished, r.now().UTC()); err != nil {
		return fmt.Errorf("mark outbox record %s published: %w", rec.ID, err)
	}
	return nil
}

// Flush publishes up to one batch of pending records and returns how many
// went out. A failed record does not stop the batch.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	published := 0
	err := database.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		records, err := r.pending(ctx, tx)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := r.deliver(ctx, tx, rec); err != nil {
				r.logger.Warn("outbox delivery failed", map[string]interface{}{
					"outboxId":  rec.ID,
					"eventType": rec.EventType,
					"error":     err,
				})
				continue
			}
			published++
		}
		return nil
	})
	return published, err
}

func (r *Relay) pending(ctx context.Context, tx *sql.Tx) ([]Record, error) {
	cutoff := r.now().UTC().Add(-r.config.MinAge)
	rows, err := tx.QueryContext(ctx, selectPending, StatusPending, cutoff, r.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Topic, &rec.Key, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		rec.Payload = payload
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Run flushes on every tick until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.Flush(ctx)
			if err != nil && ctx.Err() == nil {
				r.logger.Error("outbox flush failed", map[string]interface{}{"error": err})
				continue
			}
			if n > 0 {
				r.logger.Info("outbox records published", map[string]interface{}{"count": n})
			}
		}
	}
}
