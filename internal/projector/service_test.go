package projector

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	kafkax "github.com/ariefcatur/go-recurring-orders/internal/kafka"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

type memCache struct {
	entries map[int64]redisx.OrderStatus
	writes  int
	err     error
}

func (c *memCache) SetIfNewer(_ context.Context, id int64, st redisx.OrderStatus) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if cur, ok := c.entries[id]; ok && cur.Version >= st.Version {
		return false, nil
	}
	c.writes++
	c.entries[id] = st
	return true, nil
}

type memDedup map[string]bool

func (d memDedup) Seen(_ context.Context, id string) (bool, error) { return d[id], nil }
func (d memDedup) Mark(_ context.Context, id string) error         { d[id] = true; return nil }

func message(activityID int64, typ string, data activity.SubscriptionData) kafkago.Message {
	env := activity.Envelope{
		EventID:       activity.EventID(activityID),
		EventType:     typ,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "test",
		CorrelationID: strconv.FormatInt(activityID, 10),
		Payload:       kafkax.MustMarshal(data),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func canceled() activity.SubscriptionData {
	return activity.SubscriptionData{
		Order:          activity.OrderSnapshot{ID: 42, Status: "CANCELLED"},
		Subscription:   activity.SubscriptionSnapshot{ID: 9, IsActive: false},
		FromCollective: activity.CollectiveSnapshot{ID: 7, Slug: "xdamman"},
	}
}

func activated() activity.SubscriptionData {
	return activity.SubscriptionData{
		Order:          activity.OrderSnapshot{ID: 42, Status: "ACTIVE"},
		Subscription:   activity.SubscriptionSnapshot{ID: 9, IsActive: true},
		FromCollective: activity.CollectiveSnapshot{ID: 7, Slug: "xdamman"},
	}
}

func newService() (*Service, *memCache, memDedup) {
	cache := &memCache{entries: map[int64]redisx.OrderStatus{}}
	dedup := memDedup{}
	return &Service{Cache: cache, Dedup: dedup, Log: zap.NewNop()}, cache, dedup
}

func TestHandleActivityProjectsStatus(t *testing.T) {
	s, cache, dedup := newService()

	err := s.HandleActivity(context.Background(), message(1, activity.TypeSubscriptionCanceled, canceled()))
	require.NoError(t, err)
	assert.Equal(t, redisx.OrderStatus{Status: "CANCELLED", IsActive: false, FromCollectiveID: 7, Version: 1}, cache.entries[42])
	assert.True(t, dedup[activity.EventID(1)])
}

func TestHandleActivityDedups(t *testing.T) {
	s, cache, _ := newService()
	m := message(1, activity.TypeSubscriptionCanceled, canceled())

	require.NoError(t, s.HandleActivity(context.Background(), m))
	require.NoError(t, s.HandleActivity(context.Background(), m))
	assert.Equal(t, 1, cache.writes)
}

func TestHandleActivityIgnoresOtherTypes(t *testing.T) {
	s, cache, _ := newService()

	require.NoError(t, s.HandleActivity(context.Background(), message(1, "collective.created", canceled())))
	require.NoError(t, s.HandleActivity(context.Background(), kafkago.Message{Value: []byte("not json")}))
	assert.Empty(t, cache.entries)
}

func TestHandleActivityRetriesOnCacheFailure(t *testing.T) {
	s, cache, dedup := newService()
	cache.err = errors.New("redis down")

	err := s.HandleActivity(context.Background(), message(1, activity.TypeSubscriptionCanceled, canceled()))
	assert.Error(t, err)
	assert.False(t, dedup[activity.EventID(1)])
}

func TestHandleActivityKeepsNewestStatus(t *testing.T) {
	s, cache, _ := newService()

	// activated (activity 2) is delivered before the cancel it followed
	require.NoError(t, s.HandleActivity(context.Background(), message(2, activity.TypeSubscriptionActivated, activated())))
	require.NoError(t, s.HandleActivity(context.Background(), message(1, activity.TypeSubscriptionCanceled, canceled())))

	assert.Equal(t, redisx.OrderStatus{Status: "ACTIVE", IsActive: true, FromCollectiveID: 7, Version: 2}, cache.entries[42])
	assert.Equal(t, 1, cache.writes)
}

func TestHandleActivityDropsEventWithoutActivityID(t *testing.T) {
	s, cache, _ := newService()
	m := message(1, activity.TypeSubscriptionCanceled, canceled())
	m.Value = []byte(strings.Replace(string(m.Value), `"correlation_id":"1"`, `"correlation_id":"x"`, 1))

	require.NoError(t, s.HandleActivity(context.Background(), m))
	assert.Empty(t, cache.entries)
}
