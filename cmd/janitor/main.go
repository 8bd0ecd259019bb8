package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Janitor: corre agendado (EventBridge) y limpia lo que el bot no llegó a
// limpiar si estuvo caído: mesas pendientes muertas y mesas arrancadas
// viejas sin scores.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// el FK players.game_id ON DELETE SET NULL libera a los sentados
	_, _ = pool.Exec(cctx, `
DELETE FROM games
 WHERE status = 'pending'
   AND updated_at < now() - INTERVAL '2 hours';`)

	// mesas arrancadas hace mucho donde nadie reportó nada: no aportan
	_, _ = pool.Exec(cctx, `
DELETE FROM games g
 WHERE g.status = 'started'
   AND g.started_at < now() - INTERVAL '30 days'
   AND NOT EXISTS (
         SELECT 1 FROM plays p
          WHERE p.game_id = g.id AND p.points IS NOT NULL);`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
