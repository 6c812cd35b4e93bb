package orders

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	m, err := postgres.NewMigrator(dsn)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err)
	}
	pool, err := postgres.Connect(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// seedOrder inserts an active monthly order and returns its id.
func seedOrder(t *testing.T, db *pgxpool.Pool) int64 {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	var host, backer, user, sub, order int64
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO collectives(slug, name) VALUES ($1, 'Host') RETURNING id`, "host-"+suffix).Scan(&host))
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO collectives(slug, name) VALUES ($1, 'Backer') RETURNING id`, "backer-"+suffix).Scan(&backer))
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO users(collective_id, email) VALUES ($1, $2) RETURNING id`, backer, suffix+"@example.com").Scan(&user))
	require.NoError(t, db.QueryRow(ctx, `INSERT INTO subscriptions(amount, currency, interval) VALUES (500, 'USD', 'month') RETURNING id`).Scan(&sub))
	require.NoError(t, db.QueryRow(ctx, `
		INSERT INTO orders(status, collective_id, from_collective_id, created_by_user_id, subscription_id, total_amount, currency)
		VALUES ('ACTIVE', $1, $2, $3, $4, 500, 'USD') RETURNING id`, host, backer, user, sub).Scan(&order))
	return order
}

func TestRepoTransitionPersistsTogether(t *testing.T) {
	db := testPool(t)
	repo := &Repo{DB: db}
	id := seedOrder(t, db)
	ctx := context.Background()

	o, err := repo.Transition(ctx, id, func(o *Order) (*activity.Activity, error) {
		if err := o.Cancel(o.UpdatedAt); err != nil {
			return nil, err
		}
		return &activity.Activity{Type: activity.TypeSubscriptionCanceled, CollectiveID: o.CollectiveID, UserID: o.CreatedByUserID, Data: []byte(`{}`)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)

	got, err := repo.FindAggregate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.False(t, got.Subscription.IsActive())
	assert.NotNil(t, got.Subscription.DeactivatedAt)

	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM activities WHERE collective_id=$1 AND type=$2`,
		got.CollectiveID, activity.TypeSubscriptionCanceled).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRepoTransitionRollsBackOnError(t *testing.T) {
	db := testPool(t)
	repo := &Repo{DB: db}
	id := seedOrder(t, db)
	ctx := context.Background()

	_, err := repo.Transition(ctx, id, func(o *Order) (*activity.Activity, error) {
		o.setAmount(9999)
		return nil, apperr.InvalidState("nope")
	})
	require.Error(t, err)

	got, err := repo.FindAggregate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.TotalAmount)
	assert.True(t, got.Subscription.IsActive())
}

func TestRepoConcurrentCancelsSerialize(t *testing.T) {
	db := testPool(t)
	repo := &Repo{DB: db}
	id := seedOrder(t, db)
	ctx := context.Background()

	// stays below the pool size so every caller holds a connection
	const callers = 6
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = repo.Transition(ctx, id, func(o *Order) (*activity.Activity, error) {
				if err := o.Cancel(time.Now().UTC()); err != nil {
					return nil, err
				}
				return &activity.Activity{Type: activity.TypeSubscriptionCanceled, CollectiveID: o.CollectiveID, UserID: o.CreatedByUserID, Data: []byte(`{}`)}, nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, invalid int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrInvalidState):
			invalid++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, invalid)

	got, err := repo.FindAggregate(ctx, id)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM activities WHERE collective_id=$1 AND type=$2`,
		got.CollectiveID, activity.TypeSubscriptionCanceled).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRepoFindMissing(t *testing.T) {
	repo := &Repo{DB: testPool(t)}

	_, err := repo.FindAggregate(context.Background(), 1<<40)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
