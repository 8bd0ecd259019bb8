package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict: la mesa cambió debajo nuestro (llena, arrancada o expirada).
	// El caller re-escanea con datos frescos.
	ErrConflict = errors.New("seat conflict")
	// ErrAlreadySeated: algún miembro del grupo ya está sentado en otra mesa.
	ErrAlreadySeated = errors.New("member already seated")
	// ErrBlockedSeat: la mesa ganó un miembro bloqueado contra el grupo
	// después del scan de candidatas. El enqueue re-rutea; el join explícito
	// lo reporta.
	ErrBlockedSeat = errors.New("blocked member at table")
)

type GameRepo struct{ db *sql.DB }

func NewGameRepo(db *sql.DB) *GameRepo { return &GameRepo{db: db} }

type NewGame struct {
	GuildXID   string
	ChannelXID string
	Format     int
	Seats      int
}

type EligibleQuery struct {
	GuildXID   string
	ChannelXID string
	Format     int
	Seats      int
	Group      []string // ids a sentar juntos; también filtra bloqueos contra ellos
}

const gameCols = `id, guild_xid, channel_xid, format, seats, status, message_xid,
       voice_xid, voice_invite_link, session_link, spectate_link,
       created_at, updated_at, started_at`

func scanGame(row *sql.Row) (Game, error) {
	var g Game
	err := row.Scan(
		&g.ID, &g.GuildXID, &g.ChannelXID, &g.Format, &g.Seats, &g.Status, &g.MessageXID,
		&g.VoiceXID, &g.VoiceInviteLink, &g.SessionLink, &g.SpectateLink,
		&g.CreatedAt, &g.UpdatedAt, &g.StartedAt,
	)
	if err == sql.ErrNoRows {
		return Game{}, ErrNotFound
	}
	return g, err
}

// Candidata elegible: pendiente, misma partición (guild, canal, formato,
// asientos), con lugar para todo el grupo y sin bloqueos en ninguna dirección
// contra los miembros. FIFO por created_at.
const eligibleSQL = `
SELECT ` + gameCols + `
  FROM games g
 WHERE g.guild_xid = $1 AND g.channel_xid = $2
   AND g.format = $3 AND g.seats = $4
   AND g.status = 'pending'
   AND g.seats - (SELECT count(*) FROM players p WHERE p.game_id = g.id) >= $5
   AND NOT EXISTS (
         SELECT 1
           FROM players p
           JOIN blocks b
             ON (b.user_xid = p.user_xid AND b.blocked_user_xid = ANY($6::text[]))
             OR (b.blocked_user_xid = p.user_xid AND b.user_xid = ANY($6::text[]))
          WHERE p.game_id = g.id)
 ORDER BY g.created_at ASC
 LIMIT 1
`

func (r *GameRepo) FindEligiblePending(ctx context.Context, q EligibleQuery) (Game, error) {
	row := r.db.QueryRowContext(ctx, eligibleSQL,
		q.GuildXID, q.ChannelXID, q.Format, q.Seats, len(q.Group), pq.Array(q.Group))
	return scanGame(row)
}

// SeatGroup sienta al grupo entero en la mesa, o a nadie. El FOR UPDATE sobre
// la fila de la mesa serializa contra otros seats concurrentes; capacidad y
// bloqueos se re-validan dentro de la misma tx.
func (r *GameRepo) SeatGroup(ctx context.Context, gameID int64, group []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := seatTx(ctx, tx, gameID, group); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateAndSeat resuelve el caso "no encontré candidata": bajo un advisory
// lock por partición re-escanea (otro request pudo crear mesa hace un
// instante) y recién si sigue sin haber lugar crea la mesa y sienta al grupo,
// todo en una tx. Devuelve created=false si terminó sentando en una existente.
func (r *GameRepo) CreateAndSeat(ctx context.Context, ng NewGame, group []string) (Game, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Game{}, false, err
	}
	defer tx.Rollback()

	key := fmt.Sprintf("mesa:%s:%s:%d:%d", ng.GuildXID, ng.ChannelXID, ng.Format, ng.Seats)
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return Game{}, false, err
	}

	// re-scan bajo el lock
	row := tx.QueryRowContext(ctx, eligibleSQL,
		ng.GuildXID, ng.ChannelXID, ng.Format, ng.Seats, len(group), pq.Array(group))
	g, err := scanGame(row)
	switch {
	case err == nil:
		err = seatTx(ctx, tx, g.ID, group)
		if err == nil {
			return g, false, tx.Commit()
		}
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrBlockedSeat) {
			return Game{}, false, err
		}
		// la candidata se llenó (o se bloqueó) por un seat a nivel de fila
	case !errors.Is(err, ErrNotFound):
		return Game{}, false, err
	}

	row = tx.QueryRowContext(ctx, `
INSERT INTO games (guild_xid, channel_xid, format, seats)
VALUES ($1,$2,$3,$4)
RETURNING `+gameCols, ng.GuildXID, ng.ChannelXID, ng.Format, ng.Seats)
	g, err = scanGame(row)
	if err != nil {
		return Game{}, false, err
	}
	if err := seatMembers(ctx, tx, g.ID, group); err != nil {
		return Game{}, false, err
	}
	return g, true, tx.Commit()
}

func seatTx(ctx context.Context, tx *sql.Tx, gameID int64, group []string) error {
	var seats int
	var status string
	err := tx.QueryRowContext(ctx, `SELECT seats, status FROM games WHERE id = $1 FOR UPDATE`, gameID).
		Scan(&seats, &status)
	if err == sql.ErrNoRows {
		return ErrConflict // la mesa expiró entre el scan y el seat
	}
	if err != nil {
		return err
	}
	if status != StatusPending {
		return ErrConflict
	}
	var cnt int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM players WHERE game_id = $1`, gameID).Scan(&cnt); err != nil {
		return err
	}
	if cnt+len(group) > seats {
		return ErrConflict
	}
	// re-check de bloqueos contra los sentados ACTUALES: el scan de
	// candidatas pudo correr antes de que otro seat concurrente commiteara
	var blocked int
	if err := tx.QueryRowContext(ctx, `
SELECT count(*)
  FROM players p
  JOIN blocks b
    ON (b.user_xid = p.user_xid AND b.blocked_user_xid = ANY($2::text[]))
    OR (b.blocked_user_xid = p.user_xid AND b.user_xid = ANY($2::text[]))
 WHERE p.game_id = $1
`, gameID, pq.Array(group)).Scan(&blocked); err != nil {
		return err
	}
	if blocked > 0 {
		return ErrBlockedSeat
	}
	if err := seatMembers(ctx, tx, gameID, group); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE games SET updated_at = now() WHERE id = $1`, gameID)
	return err
}

func seatMembers(ctx context.Context, tx *sql.Tx, gameID int64, group []string) error {
	// guard dentro de la misma tx: nadie del grupo puede estar ya sentado
	// en NINGUNA mesa activa; la regla de una-mesa-por-user es global,
	// cruza guilds.
	var busy int
	err := tx.QueryRowContext(ctx, `
SELECT count(*)
  FROM players p
 WHERE p.user_xid = ANY($1::text[])
   AND p.game_id IS NOT NULL
`, pq.Array(group)).Scan(&busy)
	if err != nil {
		return err
	}
	if busy > 0 {
		return ErrAlreadySeated
	}
	for _, uid := range group {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO players (user_xid, game_id)
VALUES ($1, $2)
ON CONFLICT (user_xid) DO UPDATE SET
  game_id    = EXCLUDED.game_id,
  updated_at = now()
`, uid, gameID); err != nil {
			return err
		}
	}
	return nil
}

// SetStarted: transición pending→started condicional. Gana exactamente un
// caller concurrente; wasWinner=false significa que otro ya la arrancó.
func (r *GameRepo) SetStarted(ctx context.Context, gameID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
UPDATE games g
   SET status = 'started', started_at = now(), updated_at = now()
 WHERE g.id = $1
   AND g.status = 'pending'
   AND (SELECT count(*) FROM players p WHERE p.game_id = g.id) = g.seats
`, gameID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, tx.Commit()
	}

	// filas de plays para el score reporting (idempotente)
	if _, err := tx.ExecContext(ctx, `
INSERT INTO plays (user_xid, game_id)
SELECT user_xid, $1 FROM players WHERE game_id = $1
ON CONFLICT DO NOTHING
`, gameID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (r *GameRepo) Get(ctx context.Context, gameID int64) (Game, error) {
	return scanGame(r.db.QueryRowContext(ctx, `SELECT `+gameCols+` FROM games g WHERE g.id = $1`, gameID))
}

func (r *GameRepo) FindByMessageRef(ctx context.Context, channelXID, messageXID string) (Game, error) {
	return scanGame(r.db.QueryRowContext(ctx, `
SELECT `+gameCols+` FROM games g WHERE g.channel_xid = $1 AND g.message_xid = $2
`, channelXID, messageXID))
}

// FindActiveForUser: la mesa activa del user, de haberla. Es global a
// propósito: un user sentado en cualquier guild no puede encolarse en otro.
func (r *GameRepo) FindActiveForUser(ctx context.Context, userXID string) (Game, error) {
	return scanGame(r.db.QueryRowContext(ctx, `
SELECT `+gameCols+`
  FROM games g
  JOIN players p ON p.game_id = g.id
 WHERE p.user_xid = $1
`, userXID))
}

// Players de la mesa, en orden de llegada, con puntos reportados si los hay.
func (r *GameRepo) Players(ctx context.Context, gameID int64) ([]Player, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.user_xid, p.game_id, pl.points, p.created_at
  FROM players p
  LEFT JOIN plays pl ON pl.user_xid = p.user_xid AND pl.game_id = $1
 WHERE p.game_id = $1
 ORDER BY p.updated_at ASC, p.user_xid ASC
`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.UserXID, &p.GameID, &p.Points, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetMessageRef: write-back advisory; si la mesa ya no existe no es error.
func (r *GameRepo) SetMessageRef(ctx context.Context, gameID int64, messageXID string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE games SET message_xid = $2, updated_at = now() WHERE id = $1
`, gameID, messageXID)
	return err
}

// SetVoiceRefs: sólo aplica si la mesa sigue started (re-validación del
// write-back post side effect).
func (r *GameRepo) SetVoiceRefs(ctx context.Context, gameID int64, voiceXID string, inviteLink *string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE games
   SET voice_xid = $2, voice_invite_link = $3, updated_at = now()
 WHERE id = $1 AND status = 'started'
`, gameID, voiceXID, inviteLink)
	return err
}

// SetSessionLinks lo llama el colaborador externo que crea la sesión de
// juego una vez informado del arranque.
func (r *GameRepo) SetSessionLinks(ctx context.Context, gameID int64, sessionLink, spectateLink *string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE games
   SET session_link = $2, spectate_link = $3, updated_at = now()
 WHERE id = $1 AND status = 'started'
`, gameID, sessionLink, spectateLink)
	return err
}

// ExpireStalePending borra mesas pendientes sin actividad; el FK libera a
// los jugadores (game_id → NULL).
func (r *GameRepo) ExpireStalePending(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM games
 WHERE status = 'pending'
   AND updated_at < now() - $1::interval
`, durToInterval(olderThan))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func durToInterval(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs <= 0 {
		return "0 seconds"
	}
	return fmt.Sprintf("%d seconds", secs)
}
