package paymentmethods

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/authz"
	"github.com/ariefcatur/go-recurring-orders/internal/metrics"
)

// NewPaymentMethodInput is the generic shape accepted by AddPaymentMethod.
type NewPaymentMethodInput struct {
	Data    Data   `json:"data"`
	Name    string `json:"name" validate:"required"`
	Service string `json:"service,omitempty"`
	Token   string `json:"token" validate:"required"`
	Type    string `json:"type" validate:"required"`
}

// PaymentMethodCreateInput is the narrower Stripe card shape.
type PaymentMethodCreateInput struct {
	Data  Data   `json:"data"`
	Name  string `json:"name" validate:"required"`
	Token string `json:"token" validate:"required"`
}

type Store interface {
	Create(ctx context.Context, pm *PaymentMethod) error
	MarkProvisioned(ctx context.Context, id int64, customerID, token string) error
	SetStripeError(ctx context.Context, id int64, se *StripeError) error
}

type CollectiveFinder interface {
	FindCollective(ctx context.Context, id int64) (*accounts.Collective, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, p *authz.Principal, collectiveID int64, action authz.Action) error
}

// Provisioner creates payment methods and provisions them with the gateway
// registered for their service.
type Provisioner struct {
	Store       Store
	Collectives CollectiveFinder
	Guard       Authorizer
	Gateways    map[string]Gateway
	Log         *zap.Logger

	validate *validator.Validate
}

func NewProvisioner(store Store, collectives CollectiveFinder, guard Authorizer, gateways map[string]Gateway, log *zap.Logger) *Provisioner {
	return &Provisioner{
		Store:       store,
		Collectives: collectives,
		Guard:       guard,
		Gateways:    gateways,
		Log:         log,
		validate:    validator.New(),
	}
}

func (p *Provisioner) AddPaymentMethod(ctx context.Context, principal *authz.Principal, in NewPaymentMethodInput, currency string) (*PaymentMethod, error) {
	if err := authz.RequirePrincipal(principal, authz.ActionCreatePaymentMethod); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}
	service := strings.ToLower(strings.TrimSpace(in.Service))
	if service == "" {
		service = ServiceStripe
	}
	return p.provision(ctx, principal, &PaymentMethod{
		Name:    in.Name,
		Service: service,
		Type:    in.Type,
		Token:   in.Token,
		Data:    in.Data,
	}, currency)
}

func (p *Provisioner) AddStripeCreditCard(ctx context.Context, principal *authz.Principal, in PaymentMethodCreateInput, currency string) (*PaymentMethod, error) {
	if err := authz.RequirePrincipal(principal, authz.ActionCreatePaymentMethod); err != nil {
		return nil, err
	}
	if err := p.check(in); err != nil {
		return nil, err
	}
	return p.provision(ctx, principal, &PaymentMethod{
		Name:    in.Name,
		Service: ServiceStripe,
		Type:    TypeCreditCard,
		Token:   in.Token,
		Data:    in.Data,
	}, currency)
}

func (p *Provisioner) check(in any) error {
	if err := p.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.BadRequest("invalid payment method: " + verrs[0].Namespace() + " failed " + verrs[0].Tag())
		}
		return apperr.BadRequest("invalid payment method")
	}
	return nil
}

// provision persists pm before calling the gateway. The record is kept
// whatever the gateway answers.
func (p *Provisioner) provision(ctx context.Context, principal *authz.Principal, pm *PaymentMethod, currency string) (*PaymentMethod, error) {
	gw, ok := p.Gateways[pm.Service]
	if !ok {
		return nil, apperr.BadRequest("unsupported payment method service: " + pm.Service)
	}

	collective, err := p.Collectives.FindCollective(ctx, principal.CollectiveID)
	if err != nil {
		return nil, errors.Wrap(err, "load collective")
	}
	if collective == nil {
		return nil, apperr.Fatal(nil, "This collective does not exist")
	}
	if err := p.Guard.Authorize(ctx, principal, collective.ID, authz.ActionCreatePaymentMethod); err != nil {
		return nil, err
	}

	pm.CollectiveID = collective.ID
	pm.CreatedByUserID = principal.UserID
	pm.Saved = true
	pm.Currency = strings.ToUpper(strings.TrimSpace(currency))
	if pm.Currency == "" {
		pm.Currency = collective.Currency
	}
	if err := p.Store.Create(ctx, pm); err != nil {
		return nil, errors.Wrap(err, "create payment method")
	}

	log := p.Log.With(
		zap.String("payment_method_uuid", pm.UUID),
		zap.Int64("collective_id", pm.CollectiveID),
		zap.String("service", pm.Service),
	)

	outcome, err := gw.SetupCreditCard(ctx, pm, SetupContext{Collective: collective, Principal: principal})
	if err != nil {
		metrics.ProvisionOutcomesCount.WithLabelValues(pm.Service, "error").Inc()
		log.Error("payment method setup failed", zap.Error(err))
		return nil, apperr.Fatal(err, "Could not set up payment method")
	}

	switch o := outcome.(type) {
	case Provisioned:
		if err := p.Store.MarkProvisioned(ctx, pm.ID, o.CustomerID, o.Token); err != nil {
			return nil, errors.Wrap(err, "save provisioned payment method")
		}
		pm.CustomerID = o.CustomerID
		pm.Token = o.Token
		metrics.ProvisionOutcomesCount.WithLabelValues(pm.Service, "provisioned").Inc()
		log.Info("payment method provisioned")
	case GatewayRejected:
		pm.StripeError = &StripeError{Message: o.Message, Response: o.Response}
		if err := p.Store.SetStripeError(ctx, pm.ID, pm.StripeError); err != nil {
			return nil, errors.Wrap(err, "save gateway rejection")
		}
		metrics.ProvisionOutcomesCount.WithLabelValues(pm.Service, "rejected").Inc()
		log.Warn("payment method rejected by gateway", zap.String("reason", o.Message))
	default:
		return nil, apperr.Fatal(nil, "unknown provisioning outcome")
	}
	return pm, nil
}
