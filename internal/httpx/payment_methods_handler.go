package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/authz"
	"github.com/ariefcatur/go-recurring-orders/internal/paymentmethods"
)

type PaymentMethodService interface {
	AddPaymentMethod(ctx context.Context, p *authz.Principal, in paymentmethods.NewPaymentMethodInput, currency string) (*paymentmethods.PaymentMethod, error)
	AddStripeCreditCard(ctx context.Context, p *authz.Principal, in paymentmethods.PaymentMethodCreateInput, currency string) (*paymentmethods.PaymentMethod, error)
}

type PaymentMethodsHandler struct {
	PaymentMethods PaymentMethodService
	Log            *zap.Logger
}

type addPaymentMethodReq struct {
	NewPaymentMethod paymentmethods.NewPaymentMethodInput `json:"newPaymentMethod"`
	Currency         string                               `json:"currency,omitempty"`
}

type addStripeCreditCardReq struct {
	PaymentMethod paymentmethods.PaymentMethodCreateInput `json:"paymentMethod"`
	Currency      string                                  `json:"currency,omitempty"`
}

// Tokens and gateway customer ids never leave the service.
type paymentMethodResp struct {
	UUID        string                      `json:"uuid"`
	Name        string                      `json:"name"`
	Service     string                      `json:"service"`
	Type        string                      `json:"type"`
	Currency    string                      `json:"currency"`
	Saved       bool                        `json:"saved"`
	Data        paymentmethods.Data         `json:"data"`
	StripeError *paymentmethods.StripeError `json:"stripeError,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"`
}

func (h *PaymentMethodsHandler) Register(r chi.Router) {
	r.Post("/payment-methods", h.addPaymentMethod)
	r.Post("/payment-methods/stripe-credit-card", h.addStripeCreditCard)
}

func (h *PaymentMethodsHandler) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req addPaymentMethodReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pm, err := h.PaymentMethods.AddPaymentMethod(ctx, authz.FromContext(ctx), req.NewPaymentMethod, req.Currency)
	h.respond(w, pm, err)
}

func (h *PaymentMethodsHandler) addStripeCreditCard(w http.ResponseWriter, r *http.Request) {
	var req addStripeCreditCardReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pm, err := h.PaymentMethods.AddStripeCreditCard(ctx, authz.FromContext(ctx), req.PaymentMethod, req.Currency)
	h.respond(w, pm, err)
}

func (h *PaymentMethodsHandler) respond(w http.ResponseWriter, pm *paymentmethods.PaymentMethod, err error) {
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentMethodResp{
		UUID:        pm.UUID,
		Name:        pm.Name,
		Service:     pm.Service,
		Type:        pm.Type,
		Currency:    pm.Currency,
		Saved:       pm.Saved,
		Data:        pm.Data,
		StripeError: pm.StripeError,
		CreatedAt:   pm.CreatedAt,
	})
}
