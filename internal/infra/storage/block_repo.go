package storage

import (
	"context"
	"database/sql"
)

type BlockRepo struct{ db *sql.DB }

func NewBlockRepo(db *sql.DB) *BlockRepo { return &BlockRepo{db: db} }

// IsBlockedEitherDirection: el bloqueo es efectivo en ambas direcciones,
// alcanza con que exista una de las dos filas.
func (r *BlockRepo) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	var found int
	err := r.db.QueryRowContext(ctx, `
SELECT count(*)
  FROM blocks
 WHERE (user_xid = $1 AND blocked_user_xid = $2)
    OR (user_xid = $2 AND blocked_user_xid = $1)
`, a, b).Scan(&found)
	return found > 0, err
}

func (r *BlockRepo) Add(ctx context.Context, userXID, blockedXID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO blocks (user_xid, blocked_user_xid)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, userXID, blockedXID)
	return err
}

func (r *BlockRepo) Remove(ctx context.Context, userXID, blockedXID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM blocks WHERE user_xid = $1 AND blocked_user_xid = $2
`, userXID, blockedXID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
