package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"rankgate/internal/events"
)

// Source is the slice of the outbox store the relay needs.
type Source interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	ClaimBatch(ctx context.Context, limit int) ([]Entry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Sink delivers envelopes to the broker.
type Sink interface {
	Send(ctx context.Context, envelopes []events.Envelope) error
}

// Relay moves outbox rows to a Sink. Delivery is at-least-once: a crash between
// Send and MarkProcessed resends the batch.
type Relay struct {
	source    Source
	sink      Sink
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) { r.now = now }
}

func NewRelay(source Source, sink Sink, interval time.Duration, batchSize int, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		sink:      sink,
		interval:  interval,
		batchSize: batchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil {
				r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce sends one batch and returns how many entries were delivered.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var sent int
	err := r.source.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.source.ClaimBatch(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		envelopes := make([]events.Envelope, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			envelopes[i] = e.Envelope()
			ids[i] = e.ID
		}
		if err := r.sink.Send(ctx, envelopes); err != nil {
			r.metrics.observeFailure()
			return fmt.Errorf("send outbox batch: %w", err)
		}
		if err := r.source.MarkProcessed(ctx, ids, r.now()); err != nil {
			return err
		}
		sent = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	r.metrics.observeRelayed(sent)
	return sent, nil
}

// KafkaSink produces each envelope as one record keyed by aggregate id, so a
// single aggregate's events keep their order within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

func NewKafkaSink(client *kgo.Client, topic string) *KafkaSink {
	return &KafkaSink{client: client, topic: topic}
}

func (k *KafkaSink) Send(ctx context.Context, envelopes []events.Envelope) error {
	records := make([]*kgo.Record, 0, len(envelopes))
	for _, env := range envelopes {
		value, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("marshal envelope %s: %w", env.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: k.topic,
			Key:   []byte(env.AggregateID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "event_type", Value: []byte(env.EventType)},
				{Key: "aggregate_type", Value: []byte(env.AggregateType)},
			},
		})
	}
	return k.client.ProduceSync(ctx, records...).FirstErr()
}

// LogSink writes envelopes to the log; used when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (l *LogSink) Send(ctx context.Context, envelopes []events.Envelope) error {
	for _, env := range envelopes {
		l.logger.InfoContext(ctx, "domain event",
			"event_type", env.EventType,
			"aggregate_type", env.AggregateType,
			"aggregate_id", env.AggregateID,
		)
	}
	return nil
}
