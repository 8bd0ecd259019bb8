package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

// GuildConfig crea la fila default en el primer acceso, igual que hacíamos
// con las policies por guild.
func (r *SettingsRepo) GuildConfig(ctx context.Context, guildXID string) (GuildConfig, error) {
	var c GuildConfig
	err := r.db.QueryRowContext(ctx, `
SELECT guild_xid, motd, show_points, voice_create, voice_category_xid, default_seats, created_at, updated_at
  FROM guild_configs
 WHERE guild_xid = $1
`, guildXID).Scan(
		&c.GuildXID, &c.MOTD, &c.ShowPoints, &c.VoiceCreate, &c.VoiceCategoryXID, &c.DefaultSeats,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO guild_configs (guild_xid) VALUES ($1) ON CONFLICT DO NOTHING
`, guildXID); err != nil {
			return GuildConfig{}, err
		}
		return r.GuildConfig(ctx, guildXID)
	}
	return c, err
}

func (r *SettingsRepo) UpdateGuildConfig(ctx context.Context, guildXID string, u GuildConfigUpdate) (GuildConfig, error) {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	i := 1

	if u.MOTD != nil {
		sets = append(sets, fmt.Sprintf("motd = $%d", i))
		args = append(args, *u.MOTD)
		i++
	}
	if u.ShowPoints != nil {
		sets = append(sets, fmt.Sprintf("show_points = $%d", i))
		args = append(args, *u.ShowPoints)
		i++
	}
	if u.VoiceCreate != nil {
		sets = append(sets, fmt.Sprintf("voice_create = $%d", i))
		args = append(args, *u.VoiceCreate)
		i++
	}
	if u.VoiceCategoryXID != nil {
		sets = append(sets, fmt.Sprintf("voice_category_xid = $%d", i))
		args = append(args, *u.VoiceCategoryXID)
		i++
	}
	if u.DefaultSeats != nil {
		sets = append(sets, fmt.Sprintf("default_seats = $%d", i))
		args = append(args, *u.DefaultSeats)
		i++
	}
	if len(sets) == 0 {
		return r.GuildConfig(ctx, guildXID)
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now())
	i++
	args = append(args, guildXID)

	// asegura que exista la fila antes del update parcial
	if _, err := r.GuildConfig(ctx, guildXID); err != nil {
		return GuildConfig{}, err
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE guild_configs
   SET `+strings.Join(sets, ", ")+`
 WHERE guild_xid = $`+fmt.Sprint(i), args...)
	if err != nil {
		return GuildConfig{}, err
	}
	return r.GuildConfig(ctx, guildXID)
}

func (r *SettingsRepo) ChannelConfig(ctx context.Context, channelXID, guildXID string) (ChannelConfig, error) {
	var c ChannelConfig
	err := r.db.QueryRowContext(ctx, `
SELECT channel_xid, guild_xid, default_seats, default_format, created_at, updated_at
  FROM channel_configs
 WHERE channel_xid = $1
`, channelXID).Scan(&c.ChannelXID, &c.GuildXID, &c.DefaultSeats, &c.DefaultFormat, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		if _, err := r.db.ExecContext(ctx, `
INSERT INTO channel_configs (channel_xid, guild_xid) VALUES ($1, $2) ON CONFLICT DO NOTHING
`, channelXID, guildXID); err != nil {
			return ChannelConfig{}, err
		}
		return r.ChannelConfig(ctx, channelXID, guildXID)
	}
	return c, err
}

func (r *SettingsRepo) SetChannelDefaults(ctx context.Context, channelXID, guildXID string, seats *int, format *int) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO channel_configs (channel_xid, guild_xid, default_seats, default_format)
VALUES ($1,$2,$3,$4)
ON CONFLICT (channel_xid) DO UPDATE SET
  default_seats  = COALESCE(EXCLUDED.default_seats, channel_configs.default_seats),
  default_format = COALESCE(EXCLUDED.default_format, channel_configs.default_format),
  updated_at     = now()
`, channelXID, guildXID, seats, format)
	return err
}
