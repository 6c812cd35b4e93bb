package accounts

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

// Collective is an organizational account that can hold funds or contribute.
type Collective struct {
	ID       int64  `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

type Repo struct{ DB postgres.Querier }

// FindCollective returns nil, nil when the collective does not exist.
func (r *Repo) FindCollective(ctx context.Context, id int64) (*Collective, error) {
	c := &Collective{}
	err := r.DB.QueryRow(ctx, `SELECT id, slug, name, currency FROM collectives WHERE id=$1`, id).
		Scan(&c.ID, &c.Slug, &c.Name, &c.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
