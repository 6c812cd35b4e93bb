package orders

import (
	"time"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/paymentmethods"
)

// Subscription is the recurrence state owned by exactly one Order. Its
// active flag only changes through the owning order's Cancel/Activate.
type Subscription struct {
	ID            int64
	Amount        int64
	Currency      string
	Interval      Interval
	active        bool
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time
}

func (s *Subscription) IsActive() bool { return s.active }

// Order is the aggregate root of a recurring contribution.
type Order struct {
	ID               int64
	Status           Status
	CollectiveID     int64
	FromCollectiveID int64
	CreatedByUserID  int64
	PaymentMethodID  *int64
	TotalAmount      int64
	Currency         string
	UpdatedAt        time.Time

	Subscription   *Subscription
	Collective     *accounts.Collective
	FromCollective *accounts.Collective
	PaymentMethod  *paymentmethods.PaymentMethod
}

// Cancel moves the order to CANCELLED and deactivates its subscription.
// It refuses only when both fields already say cancelled.
func (o *Order) Cancel(now time.Time) error {
	if o.Status == StatusCancelled && !o.Subscription.active {
		return apperr.InvalidState("Recurring contribution already canceled")
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return apperr.InvalidState("Order in status " + string(o.Status) + " cannot be canceled")
	}
	o.Status = StatusCancelled
	o.Subscription.active = false
	o.Subscription.DeactivatedAt = &now
	return nil
}

// Activate moves the order to ACTIVE and activates its subscription.
// It refuses only when both fields already say active.
func (o *Order) Activate(now time.Time) error {
	if o.Status == StatusActive && o.Subscription.active {
		return apperr.InvalidState("Recurring contribution already active")
	}
	if !CanTransition(o.Status, StatusActive) {
		return apperr.InvalidState("Order in status " + string(o.Status) + " cannot be activated")
	}
	o.Status = StatusActive
	o.Subscription.active = true
	o.Subscription.ActivatedAt = &now
	o.Subscription.DeactivatedAt = nil
	return nil
}

func (o *Order) checkUpdatable() error {
	if !o.Subscription.active {
		return apperr.InvalidState("Subscription must be active to be updated")
	}
	return nil
}

func (o *Order) setAmount(amount int64) {
	o.TotalAmount = amount
	o.Subscription.Amount = amount
}

func (o *Order) setInterval(i Interval) {
	o.Subscription.Interval = i
}

func (o *Order) bindPaymentMethod(pm *paymentmethods.PaymentMethod) {
	id := pm.ID
	o.PaymentMethodID = &id
	o.PaymentMethod = pm
}
