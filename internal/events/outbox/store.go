// Package outbox persists domain events next to the aggregate write that
// produced them and relays them to the broker afterwards.
package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"rankgate/internal/events"
	"rankgate/pkg/platform/sentinel"
	txcontext "rankgate/pkg/platform/tx"
)

// Entry is one outbox row.
type Entry struct {
	ID            uuid.UUID  `db:"id"`
	AggregateType string     `db:"aggregate_type"`
	AggregateID   string     `db:"aggregate_id"`
	EventType     string     `db:"event_type"`
	Payload       []byte     `db:"payload"`
	CreatedAt     time.Time  `db:"created_at"`
	ProcessedAt   *time.Time `db:"processed_at"`
}

// Envelope rebuilds the transport form of the entry.
func (e Entry) Envelope() events.Envelope {
	return events.Envelope{
		ID:            e.ID.String(),
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		EventType:     e.EventType,
		OccurredAt:    e.CreatedAt,
		Payload:       e.Payload,
	}
}

// Store is the Postgres outbox. As an events.Publisher it joins the
// transaction carried in ctx, so event rows commit or roll back together with
// the aggregate row.
type Store struct {
	db     *sqlx.DB
	tracer trace.Tracer
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, tracer: otel.Tracer("rankgate/outbox")}
}

func (s *Store) Publish(ctx context.Context, evts ...events.Event) error {
	if len(evts) == 0 {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "outbox.append", trace.WithAttributes(attribute.Int("event.count", len(evts))))
	defer span.End()

	exec := txcontext.Executor(ctx, s.db)
	for _, e := range evts {
		env, err := events.Seal(e)
		if err != nil {
			return err
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			env.ID, env.AggregateType, env.AggregateID, env.EventType, []byte(env.Payload), env.OccurredAt,
		)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("%w: insert outbox entry: %w", sentinel.ErrStorage, err)
		}
	}
	return nil
}

// ClaimBatch locks up to limit unprocessed rows for the transaction in ctx.
// Concurrent relays skip rows another relay already holds.
func (s *Store) ClaimBatch(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	err := sqlx.SelectContext(ctx, txcontext.Executor(ctx, s.db), &entries, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at, processed_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: claim outbox batch: %w", sentinel.ErrStorage, err)
	}
	return entries, nil
}

func (s *Store) MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE outbox SET processed_at = ? WHERE id IN (?)`, at, ids)
	if err != nil {
		return fmt.Errorf("build mark processed: %w", err)
	}
	query = s.db.Rebind(query)
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: mark outbox processed: %w", sentinel.ErrStorage, err)
	}
	return nil
}

// PurgeProcessed deletes rows relayed before cutoff.
func (s *Store) PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge outbox: %w", sentinel.ErrStorage, err)
	}
	return res.RowsAffected()
}

// RunInTx lets the relay hold its row locks across send and mark.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return txcontext.Run(ctx, s.db, fn)
}
