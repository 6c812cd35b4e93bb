package activity

import (
	"context"

	"github.com/ariefcatur/go-recurring-orders/internal/postgres"
)

// Insert appends a to the activities table and fills its id and timestamp.
// Call it with the transaction that applies the transition it records.
func Insert(ctx context.Context, q postgres.Querier, a *Activity) error {
	return q.QueryRow(ctx, `
		INSERT INTO activities(type, collective_id, user_id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		a.Type, a.CollectiveID, a.UserID, []byte(a.Data),
	).Scan(&a.ID, &a.CreatedAt)
}

// lockUnpublished returns up to limit unpublished activities, oldest first,
// skipping rows another relay holds.
func lockUnpublished(ctx context.Context, q postgres.Querier, limit int) ([]Activity, error) {
	rows, err := q.Query(ctx, `
		SELECT id, type, collective_id, user_id, data, created_at
		FROM activities
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		var a Activity
		var data []byte
		if err := rows.Scan(&a.ID, &a.Type, &a.CollectiveID, &a.UserID, &data, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Data = data
		out = append(out, a)
	}
	return out, rows.Err()
}

func markPublished(ctx context.Context, q postgres.Querier, ids []int64) error {
	_, err := q.Exec(ctx, `UPDATE activities SET published_at = now() WHERE id = ANY($1)`, ids)
	return err
}
