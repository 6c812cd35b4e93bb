package paymentmethods

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-recurring-orders/internal/apperr"
	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

var errNotFound = apperr.NotFound("Payment method not found with this uuid")

type Repo struct{ DB postgres.Querier }

const selectColumns = `
	SELECT id, uuid::text, collective_id, created_by_user_id, name, service, type, token,
	       customer_id, currency, saved, data, stripe_error, created_at, updated_at
	FROM payment_methods`

func scan(row pgx.Row) (*PaymentMethod, error) {
	pm := &PaymentMethod{}
	var data, stripeErr []byte
	err := row.Scan(&pm.ID, &pm.UUID, &pm.CollectiveID, &pm.CreatedByUserID, &pm.Name, &pm.Service,
		&pm.Type, &pm.Token, &pm.CustomerID, &pm.Currency, &pm.Saved, &data, &stripeErr,
		&pm.CreatedAt, &pm.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &pm.Data); err != nil {
			return nil, errors.Wrap(err, "decode payment method data")
		}
	}
	if len(stripeErr) > 0 {
		pm.StripeError = &StripeError{}
		if err := json.Unmarshal(stripeErr, pm.StripeError); err != nil {
			return nil, errors.Wrap(err, "decode stripe error")
		}
	}
	return pm, nil
}

// FindByID loads a payment method with q, which may be a transaction.
func FindByID(ctx context.Context, q postgres.Querier, id int64) (*PaymentMethod, error) {
	pm, err := scan(q.QueryRow(ctx, selectColumns+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound
	}
	return pm, err
}

func (r *Repo) FindByUUID(ctx context.Context, id string) (*PaymentMethod, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errNotFound
	}
	pm, err := scan(r.DB.QueryRow(ctx, selectColumns+` WHERE uuid=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errNotFound
	}
	return pm, err
}

// Create inserts pm, assigning a uuid when it has none.
func (r *Repo) Create(ctx context.Context, pm *PaymentMethod) error {
	if pm.UUID == "" {
		pm.UUID = uuid.NewString()
	}
	data, err := json.Marshal(pm.Data)
	if err != nil {
		return err
	}
	return r.DB.QueryRow(ctx, `
		INSERT INTO payment_methods(uuid, collective_id, created_by_user_id, name, service, type,
		                            token, currency, saved, data)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`,
		pm.UUID, pm.CollectiveID, pm.CreatedByUserID, pm.Name, pm.Service, pm.Type,
		pm.Token, pm.Currency, pm.Saved, data,
	).Scan(&pm.ID, &pm.CreatedAt, &pm.UpdatedAt)
}

func (r *Repo) MarkProvisioned(ctx context.Context, id int64, customerID, token string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE payment_methods SET customer_id=$2, token=$3, updated_at=now() WHERE id=$1`,
		id, customerID, token)
	return err
}

func (r *Repo) SetStripeError(ctx context.Context, id int64, se *StripeError) error {
	b, err := json.Marshal(se)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `UPDATE payment_methods SET stripe_error=$2, updated_at=now() WHERE id=$1`, id, b)
	return err
}
