package storage

import "time"

const (
	StatusPending = "pending"
	StatusStarted = "started"
)

type Game struct {
	ID              int64
	GuildXID        string
	ChannelXID      string
	Format          int
	Seats           int
	Status          string // pending | started
	MessageXID      *string
	VoiceXID        *string
	VoiceInviteLink *string
	SessionLink     *string
	SpectateLink    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
}

func (g Game) Started() bool { return g.Status == StatusStarted }

type Player struct {
	UserXID   string
	GameID    *int64
	Points    *int // del play de la mesa consultada, si existe
	CreatedAt time.Time
}

type Block struct {
	UserXID        string
	BlockedUserXID string
	CreatedAt      time.Time
}

type GuildConfig struct {
	GuildXID         string
	MOTD             string
	ShowPoints       bool
	VoiceCreate      bool
	VoiceCategoryXID *string
	DefaultSeats     *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type ChannelConfig struct {
	ChannelXID    string
	GuildXID      string
	DefaultSeats  *int
	DefaultFormat *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Para updates parciales desde comandos de admin
type GuildConfigUpdate struct {
	MOTD             *string
	ShowPoints       *bool
	VoiceCreate      *bool
	VoiceCategoryXID *string
	DefaultSeats     *int
}
