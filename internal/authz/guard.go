package authz

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
)

// Principal is the authenticated user acting on a request.
type Principal struct {
	UserID       int64  `json:"id"`
	CollectiveID int64  `json:"CollectiveId"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
}

type Action string

const (
	ActionCancelOrder         Action = "cancel"
	ActionActivateOrder       Action = "activate"
	ActionUpdateOrder         Action = "update"
	ActionViewOrder           Action = "view"
	ActionUsePaymentMethod    Action = "use-payment-method"
	ActionCreatePaymentMethod Action = "create-payment-method"
)

var loginMessages = map[Action]string{
	ActionCancelOrder:         "You need to be logged in to cancel a recurring contribution",
	ActionActivateOrder:       "You need to be logged in to activate a recurring contribution",
	ActionUpdateOrder:         "You need to be logged in to update a subscription",
	ActionViewOrder:           "You need to be logged in to view a recurring contribution",
	ActionUsePaymentMethod:    "You need to be logged in to use a payment method",
	ActionCreatePaymentMethod: "You need to be logged in to add a payment method",
}

var deniedMessages = map[Action]string{
	ActionCancelOrder:         "You don't have permission to cancel this recurring contribution",
	ActionActivateOrder:       "You don't have permission to activate this recurring contribution",
	ActionUpdateOrder:         "You don't have permission to update this subscription",
	ActionViewOrder:           "You don't have permission to view this recurring contribution",
	ActionUsePaymentMethod:    "You don't have permission to use this payment method",
	ActionCreatePaymentMethod: "You don't have permission to add a payment method to this account",
}

// AdminLookup answers whether a member collective administers a collective.
type AdminLookup interface {
	IsAdmin(ctx context.Context, memberCollectiveID, collectiveID int64) (bool, error)
}

type Guard struct {
	Admins AdminLookup
	Log    *zap.Logger
}

// RequirePrincipal fails with Unauthorized when p is anonymous.
func RequirePrincipal(p *Principal, action Action) error {
	if p == nil || p.UserID == 0 {
		return apperr.LoginRequired(loginMessages[action])
	}
	return nil
}

// Authorize succeeds only if p administers collectiveID. A principal always
// administers its own collective.
func (g *Guard) Authorize(ctx context.Context, p *Principal, collectiveID int64, action Action) error {
	if err := RequirePrincipal(p, action); err != nil {
		return err
	}
	if collectiveID != 0 && p.CollectiveID == collectiveID {
		return nil
	}
	ok, err := g.Admins.IsAdmin(ctx, p.CollectiveID, collectiveID)
	if err != nil {
		return errors.Wrap(err, "lookup admin membership")
	}
	if !ok {
		g.Log.Info("authorization denied",
			zap.Int64("user_id", p.UserID),
			zap.Int64("collective_id", collectiveID),
			zap.String("action", string(action)),
		)
		return apperr.Unauthorized(deniedMessages[action])
	}
	return nil
}
