package paymentmethods

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/authz"
)

// ProvisionOutcome is either Provisioned or GatewayRejected.
type ProvisionOutcome interface {
	provisionOutcome()
}

// Provisioned means the gateway accepted the instrument.
type Provisioned struct {
	CustomerID string
	Token      string
}

// GatewayRejected is a structured refusal from the gateway. It is recorded
// on the payment method instead of failing the mutation.
type GatewayRejected struct {
	Message  string
	Response json.RawMessage
}

func (Provisioned) provisionOutcome()     {}
func (GatewayRejected) provisionOutcome() {}

type SetupContext struct {
	Collective *accounts.Collective
	Principal  *authz.Principal
}

// Gateway provisions a payment method with an external processor. A non-nil
// error is always fatal to the calling mutation.
type Gateway interface {
	SetupCreditCard(ctx context.Context, pm *PaymentMethod, sc SetupContext) (ProvisionOutcome, error)
}
