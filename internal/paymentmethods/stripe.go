package paymentmethods

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// StripeGateway attaches card tokens to a new Stripe customer.
type StripeGateway struct {
	API *client.API
}

func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	return &StripeGateway{API: client.New(secretKey, backends)}
}

func (g *StripeGateway) SetupCreditCard(ctx context.Context, pm *PaymentMethod, sc SetupContext) (ProvisionOutcome, error) {
	params := &stripe.CustomerParams{
		Source: stripe.String(pm.Token),
	}
	params.Context = ctx
	if sc.Principal != nil && sc.Principal.Email != "" {
		params.Email = stripe.String(sc.Principal.Email)
	}
	if sc.Collective != nil {
		params.Description = stripe.String("collective:" + sc.Collective.Slug)
		params.AddMetadata("collective_id", strconv.FormatInt(sc.Collective.ID, 10))
	}
	params.AddMetadata("payment_method_uuid", pm.UUID)

	cust, err := g.API.Customers.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			resp, mErr := json.Marshal(se)
			if mErr != nil {
				return nil, errors.Wrap(mErr, "encode stripe error")
			}
			return GatewayRejected{Message: se.Msg, Response: resp}, nil
		}
		return nil, errors.Wrap(err, "create stripe customer")
	}
	return Provisioned{CustomerID: cust.ID, Token: pm.Token}, nil
}
