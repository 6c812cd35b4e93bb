package projector

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	kafkax "github.com/ariefcatur/go-recurring-orders/internal/kafka"
	"github.com/ariefcatur/go-recurring-orders/internal/metrics"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

type StatusWriter interface {
	SetIfNewer(ctx context.Context, orderID int64, st redisx.OrderStatus) (bool, error)
}

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// Service projects subscription activities into the order status cache.
type Service struct {
	Cache StatusWriter
	Dedup Deduper
	Log   *zap.Logger
}

// HandleActivity is installed as the consumer handler. An error means the
// projection did not land; the consumer retries the message in place.
func (s *Service) HandleActivity(ctx context.Context, m kafkago.Message) (err error) {
	// 1) decode envelope
	var env activity.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("dropping undecodable message", zap.Int64("offset", m.Offset), zap.Error(err))
		metrics.ProjectedEventsCount.WithLabelValues("unknown", "dropped").Inc()
		return nil
	}
	if env.EventType != activity.TypeSubscriptionCanceled && env.EventType != activity.TypeSubscriptionActivated {
		return nil
	}
	defer func() {
		metrics.ProjectedEventsCount.WithLabelValues(env.EventType, metrics.Result(err)).Inc()
	}()

	// 2) dedup via Redis
	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return errors.Wrap(err, "dedup lookup")
	}
	if seen {
		return nil
	}

	// 3) decode payload and write the read model
	data, err := kafkax.UnwrapPayload[activity.SubscriptionData](env.Payload)
	if err != nil {
		s.Log.Warn("dropping event with bad payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	version, perr := strconv.ParseInt(env.CorrelationID, 10, 64)
	if perr != nil || version <= 0 {
		s.Log.Warn("dropping event without activity id", zap.String("event_id", env.EventID), zap.String("correlation_id", env.CorrelationID))
		return nil
	}
	st := redisx.OrderStatus{
		Status:           data.Order.Status,
		IsActive:         data.Subscription.IsActive,
		FromCollectiveID: data.FromCollective.ID,
		Version:          version,
	}
	applied, err := s.Cache.SetIfNewer(ctx, data.Order.ID, st)
	if err != nil {
		return errors.Wrap(err, "write order status")
	}

	// marked only once the projection landed
	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		s.Log.Warn("dedup mark failed", zap.String("event_id", env.EventID), zap.Error(err))
	}
	s.Log.Debug("order status projected",
		zap.Int64("order_id", data.Order.ID),
		zap.String("status", st.Status),
		zap.String("event_type", env.EventType),
		zap.Int64("version", version),
		zap.Bool("stale", !applied),
	)
	return nil
}
