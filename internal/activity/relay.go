package activity

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-recurring-orders/internal/kafka"
	"github.com/ariefcatur/go-recurring-orders/internal/metrics"
)

// Outbox hands batches of unpublished activities to fn; the batch is marked
// published only if fn succeeds.
type Outbox interface {
	Drain(ctx context.Context, limit int, fn func([]Activity) error) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...kafkago.Message) error
}

type PostgresOutbox struct{ DB *pgxpool.Pool }

func (o *PostgresOutbox) Drain(ctx context.Context, limit int, fn func([]Activity) error) (int, error) {
	tx, err := o.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch, err := lockUnpublished(ctx, tx, limit)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := fn(batch); err != nil {
		return 0, err
	}
	ids := make([]int64, 0, len(batch))
	for _, a := range batch {
		ids = append(ids, a.ID)
	}
	if err := markPublished(ctx, tx, ids); err != nil {
		return 0, err
	}
	return len(batch), tx.Commit(ctx)
}

// Relay publishes recorded activities to Kafka (transactional outbox).
// Delivery is at-least-once; consumers dedup on EventID.
type Relay struct {
	Outbox      Outbox
	Producer    Publisher
	ServiceName string
	Batch       int
	Interval    time.Duration
	Log         *zap.Logger
}

// Run drains the outbox until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	t := time.NewTicker(r.Interval)
	defer t.Stop()
	for {
		// drain fully before sleeping again
		for {
			n, err := r.RelayOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.Log.Error("relay batch failed", zap.Error(err))
				break
			}
			if n < r.Batch {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	return r.Outbox.Drain(ctx, r.Batch, func(batch []Activity) error {
		msgs := make([]kafkago.Message, 0, len(batch))
		for _, a := range batch {
			msgs = append(msgs, r.message(a))
		}
		if err := r.Producer.Publish(ctx, msgs...); err != nil {
			return errors.Wrap(err, "publish activities")
		}
		for _, a := range batch {
			metrics.RelayedActivitiesCount.WithLabelValues(a.Type).Inc()
		}
		r.Log.Debug("relayed activities", zap.Int("count", len(batch)))
		return nil
	})
}

func (r *Relay) message(a Activity) kafkago.Message {
	ev := Envelope{
		EventID:       EventID(a.ID),
		EventType:     a.Type,
		EventVersion:  1,
		OccurredAt:    a.CreatedAt.UTC(),
		Producer:      r.ServiceName,
		CorrelationID: strconv.FormatInt(a.ID, 10),
		Payload:       a.Data,
	}
	return kafkago.Message{
		Key:   PartitionKey(a.CollectiveID),
		Value: kafkax.MustMarshal(ev),
		Time:  a.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "x-event-type", Value: []byte(a.Type)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
}

// EventID derives a stable event id from an activity id, so a re-relayed
// activity keeps the id it was first published with.
func EventID(activityID int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("activity:"+strconv.FormatInt(activityID, 10))).String()
}
