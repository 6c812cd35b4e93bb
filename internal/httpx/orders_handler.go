package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-recurring-orders/internal/accounts"
	"github.com/ariefcatur/go-recurring-orders/internal/authz"
	"github.com/ariefcatur/go-recurring-orders/internal/identifiers"
	"github.com/ariefcatur/go-recurring-orders/internal/orders"
	"github.com/ariefcatur/go-recurring-orders/internal/redisx"
)

type OrderService interface {
	CancelOrder(ctx context.Context, p *authz.Principal, ref string) (*orders.Order, error)
	ActivateOrder(ctx context.Context, p *authz.Principal, ref string) (*orders.Order, error)
	UpdateOrder(ctx context.Context, p *authz.Principal, ref string, in orders.UpdateOrderInput) (*orders.Order, error)
	GetOrderStatus(ctx context.Context, p *authz.Principal, ref string) (*redisx.OrderStatus, error)
}

type OrdersHandler struct {
	Orders OrderService
	IDs    *identifiers.Codec
	Log    *zap.Logger
}

type subscriptionResp struct {
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Interval      string     `json:"interval"`
	IsActive      bool       `json:"isActive"`
	ActivatedAt   *time.Time `json:"activatedAt,omitempty"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

type accountResp struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type orderResp struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	TotalAmount   int64             `json:"totalAmount"`
	Currency      string            `json:"currency"`
	Subscription  subscriptionResp  `json:"subscription"`
	PaymentMethod *paymentMethodRef `json:"paymentMethod,omitempty"`
	ToAccount     *accountResp      `json:"toAccount,omitempty"`
	FromAccount   *accountResp      `json:"fromAccount,omitempty"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type paymentMethodRef struct {
	UUID string `json:"uuid"`
}

type orderStatusResp struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	IsActive bool   `json:"isActive"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders/{ref}", h.getOrder)
	r.Patch("/orders/{ref}", h.updateOrder)
	r.Post("/orders/{ref}/cancel", h.cancelOrder)
	r.Post("/orders/{ref}/activate", h.activateOrder)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.CancelOrder(ctx, authz.FromContext(ctx), chi.URLParam(r, "ref"))
	h.respond(w, o, err)
}

func (h *OrdersHandler) activateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.ActivateOrder(ctx, authz.FromContext(ctx), chi.URLParam(r, "ref"))
	h.respond(w, o, err)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.UpdateOrderInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateOrder(ctx, authz.FromContext(ctx), chi.URLParam(r, "ref"), in)
	h.respond(w, o, err)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ref := chi.URLParam(r, "ref")
	st, err := h.Orders.GetOrderStatus(ctx, authz.FromContext(ctx), ref)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orderStatusResp{ID: ref, Status: st.Status, IsActive: st.IsActive})
}

func (h *OrdersHandler) respond(w http.ResponseWriter, o *orders.Order, err error) {
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	resp, err := h.orderResponse(o)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) orderResponse(o *orders.Order) (*orderResp, error) {
	ref, err := h.IDs.Encode(identifiers.KindOrder, o.ID)
	if err != nil {
		return nil, err
	}
	s := o.Subscription
	resp := &orderResp{
		ID:          ref,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Subscription: subscriptionResp{
			Amount:        s.Amount,
			Currency:      s.Currency,
			Interval:      string(s.Interval),
			IsActive:      s.IsActive(),
			ActivatedAt:   s.ActivatedAt,
			DeactivatedAt: s.DeactivatedAt,
		},
		UpdatedAt: o.UpdatedAt,
	}
	if o.PaymentMethod != nil {
		resp.PaymentMethod = &paymentMethodRef{UUID: o.PaymentMethod.UUID}
	}
	if resp.ToAccount, err = h.account(o.Collective); err != nil {
		return nil, err
	}
	if resp.FromAccount, err = h.account(o.FromCollective); err != nil {
		return nil, err
	}
	return resp, nil
}

func (h *OrdersHandler) account(c *accounts.Collective) (*accountResp, error) {
	if c == nil {
		return nil, nil
	}
	ref, err := h.IDs.Encode(identifiers.KindAccount, c.ID)
	if err != nil {
		return nil, err
	}
	return &accountResp{ID: ref, Slug: c.Slug, Name: c.Name}, nil
}
