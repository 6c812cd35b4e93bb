package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/activity"
	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/authz"
	"github.com/ariefcatur/go-recurring-orders/internal/identifiers"
	"github.com/ariefcatur/go-recurring-orders/internal/metrics"
	"github.com/ariefcatur/go-recurring-orders/internal/paymentmethods"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

type Store interface {
	FindAggregate(ctx context.Context, id int64) (*Order, error)
	Transition(ctx context.Context, id int64, fn TransitionFunc) (*Order, error)
}

type PaymentMethodFinder interface {
	FindByUUID(ctx context.Context, uuid string) (*paymentmethods.PaymentMethod, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, p *authz.Principal, collectiveID int64, action authz.Action) error
}

type StatusCache interface {
	Get(ctx context.Context, orderID int64) (*redisx.OrderStatus, error)
	SetIfAbsent(ctx context.Context, orderID int64, st redisx.OrderStatus) error
	SetIfNewer(ctx context.Context, orderID int64, st redisx.OrderStatus) (bool, error)
}

type PaymentMethodReference struct {
	UUID string `json:"uuid"`
}

type UpdateOrderInput struct {
	Amount        *int64                  `json:"amount,omitempty"`
	Frequency     *string                 `json:"frequency,omitempty"`
	Tier          *string                 `json:"tier,omitempty"`
	PaymentMethod *PaymentMethodReference `json:"paymentMethod,omitempty"`
}

type Service struct {
	Store          Store
	PaymentMethods PaymentMethodFinder
	Guard          Authorizer
	IDs            *identifiers.Codec
	Cache          StatusCache
	Log            *zap.Logger
	Now            func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) CancelOrder(ctx context.Context, p *authz.Principal, ref string) (*Order, error) {
	return s.mutate(ctx, p, ref, authz.ActionCancelOrder, func(o *Order) (*activity.Activity, error) {
		if err := o.Cancel(s.now()); err != nil {
			return nil, err
		}
		return subscriptionActivity(activity.TypeSubscriptionCanceled, o, p)
	})
}

func (s *Service) ActivateOrder(ctx context.Context, p *authz.Principal, ref string) (*Order, error) {
	return s.mutate(ctx, p, ref, authz.ActionActivateOrder, func(o *Order) (*activity.Activity, error) {
		if err := o.Activate(s.now()); err != nil {
			return nil, err
		}
		return subscriptionActivity(activity.TypeSubscriptionActivated, o, p)
	})
}

// UpdateOrder changes amount, cadence or payment method of an active
// subscription. It records no activity and leaves the cached status alone,
// since none of the cached fields change.
func (s *Service) UpdateOrder(ctx context.Context, p *authz.Principal, ref string, in UpdateOrderInput) (*Order, error) {
	var interval Interval
	if err := authz.RequirePrincipal(p, authz.ActionUpdateOrder); err != nil {
		return nil, err
	}
	if in.Tier != nil {
		return nil, apperr.BadRequest("changing tier is not supported")
	}
	if in.Amount != nil && *in.Amount <= 0 {
		return nil, apperr.BadRequest("amount must be a positive number of cents")
	}
	if in.Frequency != nil {
		i, ok := ParseFrequency(*in.Frequency)
		if !ok {
			return nil, apperr.BadRequest("frequency must be MONTHLY or YEARLY")
		}
		interval = i
	}

	return s.mutate(ctx, p, ref, authz.ActionUpdateOrder, func(o *Order) (*activity.Activity, error) {
		if err := o.checkUpdatable(); err != nil {
			return nil, err
		}
		if in.PaymentMethod != nil {
			pm, err := s.PaymentMethods.FindByUUID(ctx, in.PaymentMethod.UUID)
			if err != nil {
				return nil, err
			}
			if err := s.Guard.Authorize(ctx, p, pm.CollectiveID, authz.ActionUsePaymentMethod); err != nil {
				return nil, err
			}
			o.bindPaymentMethod(pm)
		}
		if in.Amount != nil {
			o.setAmount(*in.Amount)
		}
		if interval != "" {
			o.setInterval(interval)
		}
		return nil, nil
	})
}

// mutate runs apply against the locked order after checking the principal
// administers the contributing collective.
func (s *Service) mutate(ctx context.Context, p *authz.Principal, ref string, action authz.Action, apply TransitionFunc) (o *Order, err error) {
	defer func() {
		metrics.OrderTransitionsCount.WithLabelValues(string(action), metrics.Result(err)).Inc()
	}()

	if err := authz.RequirePrincipal(p, action); err != nil {
		return nil, err
	}
	id, err := s.IDs.Decode(identifiers.KindOrder, ref)
	if err != nil {
		return nil, errOrderNotFound
	}

	var recorded *activity.Activity
	o, err = s.Store.Transition(ctx, id, func(o *Order) (*activity.Activity, error) {
		if err := s.Guard.Authorize(ctx, p, o.FromCollectiveID, action); err != nil {
			return nil, err
		}
		a, err := apply(o)
		recorded = a
		return a, err
	})
	if err != nil {
		return nil, err
	}

	// versioned by activity id so a late projection of an older activity
	// cannot replace this entry
	if recorded != nil {
		st := redisx.OrderStatus{
			Status:           string(o.Status),
			IsActive:         o.Subscription.IsActive(),
			FromCollectiveID: o.FromCollectiveID,
			Version:          recorded.ID,
		}
		if _, err := s.Cache.SetIfNewer(ctx, o.ID, st); err != nil {
			s.Log.Warn("order status cache write failed", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
	s.Log.Info("order updated",
		zap.Int64("order_id", o.ID),
		zap.String("action", string(action)),
		zap.String("status", string(o.Status)),
		zap.Bool("subscription_active", o.Subscription.IsActive()),
		zap.Int64("user_id", p.UserID),
	)
	return o, nil
}

// GetOrderStatus reads the cached status, falling back to Postgres and
// filling the cache on a miss. A fill never replaces a projected entry.
func (s *Service) GetOrderStatus(ctx context.Context, p *authz.Principal, ref string) (*redisx.OrderStatus, error) {
	if err := authz.RequirePrincipal(p, authz.ActionViewOrder); err != nil {
		return nil, err
	}
	id, err := s.IDs.Decode(identifiers.KindOrder, ref)
	if err != nil {
		return nil, errOrderNotFound
	}

	st, err := s.Cache.Get(ctx, id)
	if err != nil {
		s.Log.Warn("order status cache read failed", zap.Int64("order_id", id), zap.Error(err))
	}
	if st == nil {
		o, err := s.Store.FindAggregate(ctx, id)
		if err != nil {
			return nil, err
		}
		st = &redisx.OrderStatus{
			Status:           string(o.Status),
			IsActive:         o.Subscription.IsActive(),
			FromCollectiveID: o.FromCollectiveID,
		}
		if err := s.Cache.SetIfAbsent(ctx, id, *st); err != nil {
			s.Log.Warn("order status cache write failed", zap.Int64("order_id", id), zap.Error(err))
		}
	}

	if err := s.Guard.Authorize(ctx, p, st.FromCollectiveID, authz.ActionViewOrder); err != nil {
		return nil, err
	}
	return st, nil
}

func subscriptionActivity(typ string, o *Order, p *authz.Principal) (*activity.Activity, error) {
	sub := o.Subscription
	data := activity.SubscriptionData{
		Order: activity.OrderSnapshot{ID: o.ID, Status: string(o.Status)},
		Subscription: activity.SubscriptionSnapshot{
			ID:            sub.ID,
			Amount:        sub.Amount,
			Currency:      sub.Currency,
			Interval:      string(sub.Interval),
			IsActive:      sub.IsActive(),
			ActivatedAt:   sub.ActivatedAt,
			DeactivatedAt: sub.DeactivatedAt,
		},
		User: activity.UserSnapshot{ID: p.UserID, CollectiveID: p.CollectiveID, Name: p.Name},
	}
	if c := o.Collective; c != nil {
		data.Collective = activity.CollectiveSnapshot{ID: c.ID, Slug: c.Slug, Name: c.Name, Currency: c.Currency}
	}
	if fc := o.FromCollective; fc != nil {
		data.FromCollective = activity.CollectiveSnapshot{ID: fc.ID, Slug: fc.Slug, Name: fc.Name, Currency: fc.Currency}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "encode activity data")
	}
	return &activity.Activity{
		Type:         typ,
		CollectiveID: o.CollectiveID,
		UserID:       o.CreatedByUserID,
		Data:         b,
	}, nil
}
