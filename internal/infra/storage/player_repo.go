package storage

import (
	"context"
	"database/sql"
)

type PlayerRepo struct{ db *sql.DB }

func NewPlayerRepo(db *sql.DB) *PlayerRepo { return &PlayerRepo{db: db} }

func (r *PlayerRepo) Get(ctx context.Context, userXID string) (Player, error) {
	var p Player
	err := r.db.QueryRowContext(ctx, `
SELECT user_xid, game_id, NULL::int, created_at FROM players WHERE user_xid = $1
`, userXID).Scan(&p.UserXID, &p.GameID, &p.Points, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return Player{}, ErrNotFound
	}
	return p, err
}

// RemoveFromGame saca al jugador de ESA mesa; devuelve false si no estaba.
// No toca el status de la mesa: dejar una mesa started no reabre el asiento.
func (r *PlayerRepo) RemoveFromGame(ctx context.Context, userXID string, gameID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE players
   SET game_id = NULL, updated_at = now()
 WHERE user_xid = $1 AND game_id = $2
`, userXID, gameID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetPoints pisa el reporte anterior (reportar dos veces es válido).
// false = no había fila de play, o sea el user no jugó esa mesa.
func (r *PlayerRepo) SetPoints(ctx context.Context, userXID string, gameID int64, points int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE plays
   SET points = $3, updated_at = now()
 WHERE user_xid = $1 AND game_id = $2
`, userXID, gameID, points)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
