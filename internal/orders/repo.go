package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/paymentmethods"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

var errOrderNotFound = apperr.NotFound("Recurring contribution not found")

// TransitionFunc mutates a locked aggregate and returns the activity to
// record with it, or nil.
type TransitionFunc func(o *Order) (*activity.Activity, error)

type Repo struct{ DB *pgxpool.Pool }

const aggregateQuery = `
	SELECT o.id, o.status, o.collective_id, o.from_collective_id, o.created_by_user_id,
	       o.payment_method_id, o.total_amount, o.currency, o.updated_at,
	       s.id, s.amount, s.currency, s.interval, s.is_active, s.activated_at, s.deactivated_at,
	       c.id, c.slug, c.name, c.currency,
	       fc.id, fc.slug, fc.name, fc.currency
	FROM orders o
	JOIN subscriptions s ON s.id = o.subscription_id
	JOIN collectives c ON c.id = o.collective_id
	JOIN collectives fc ON fc.id = o.from_collective_id
	WHERE o.id = $1 AND o.deleted_at IS NULL`

func loadAggregate(ctx context.Context, q postgres.Querier, id int64, lock bool) (*Order, error) {
	sql := aggregateQuery
	if lock {
		sql += ` FOR UPDATE OF o, s`
	}
	o := &Order{
		Subscription:   &Subscription{},
		Collective:     &accounts.Collective{},
		FromCollective: &accounts.Collective{},
	}
	var status, interval string
	s, c, fc := o.Subscription, o.Collective, o.FromCollective
	err := q.QueryRow(ctx, sql, id).Scan(
		&o.ID, &status, &o.CollectiveID, &o.FromCollectiveID, &o.CreatedByUserID,
		&o.PaymentMethodID, &o.TotalAmount, &o.Currency, &o.UpdatedAt,
		&s.ID, &s.Amount, &s.Currency, &interval, &s.active, &s.ActivatedAt, &s.DeactivatedAt,
		&c.ID, &c.Slug, &c.Name, &c.Currency,
		&fc.ID, &fc.Slug, &fc.Name, &fc.Currency,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	s.Interval = Interval(interval)

	if o.PaymentMethodID != nil {
		pm, err := paymentmethods.FindByID(ctx, q, *o.PaymentMethodID)
		if err != nil {
			return nil, errors.Wrap(err, "load payment method")
		}
		o.PaymentMethod = pm
	}
	return o, nil
}

func (r *Repo) FindAggregate(ctx context.Context, id int64) (*Order, error) {
	return loadAggregate(ctx, r.DB, id, false)
}

// Transition locks the order and its subscription, applies fn, and persists
// both rows plus the returned activity in one transaction. Concurrent
// transitions on the same order serialize on the row lock.
func (r *Repo) Transition(ctx context.Context, id int64, fn TransitionFunc) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := loadAggregate(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	a, err := fn(o)
	if err != nil {
		return nil, err
	}

	if err := tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, payment_method_id=$3, total_amount=$4, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		o.ID, string(o.Status), o.PaymentMethodID, o.TotalAmount,
	).Scan(&o.UpdatedAt); err != nil {
		return nil, errors.Wrap(err, "update order")
	}

	s := o.Subscription
	if _, err := tx.Exec(ctx, `
		UPDATE subscriptions
		SET is_active=$2, amount=$3, interval=$4, activated_at=$5, deactivated_at=$6, updated_at=now()
		WHERE id=$1`,
		s.ID, s.active, s.Amount, string(s.Interval), s.ActivatedAt, s.DeactivatedAt,
	); err != nil {
		return nil, errors.Wrap(err, "update subscription")
	}

	if a != nil {
		if err := activity.Insert(ctx, tx, a); err != nil {
			return nil, errors.Wrap(err, "record activity")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return o, nil
}
