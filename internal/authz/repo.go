package authz

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Repo reads users and memberships from Postgres.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) IsAdmin(ctx context.Context, memberCollectiveID, collectiveID int64) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM members
			WHERE member_collective_id = $1 AND collective_id = $2
			  AND role = ANY($3) AND deleted_at IS NULL
		)`, memberCollectiveID, collectiveID, roleStrings(adminRoles)).Scan(&ok)
	return ok, err
}

// FindPrincipal loads a user as a principal. A missing user yields nil, nil.
func (r *Repo) FindPrincipal(ctx context.Context, userID int64) (*Principal, error) {
	p := &Principal{}
	err := r.DB.QueryRow(ctx, `SELECT id, collective_id, email, name FROM users WHERE id=$1`, userID).
		Scan(&p.UserID, &p.CollectiveID, &p.Email, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
