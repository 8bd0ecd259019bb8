package service

import (
	"context"

	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.GameRepo
type GameStore interface {
	FindEligiblePending(ctx context.Context, q storage.EligibleQuery) (storage.Game, error)
	CreateAndSeat(ctx context.Context, ng storage.NewGame, group []string) (storage.Game, bool, error)
	SeatGroup(ctx context.Context, gameID int64, group []string) error
	SetStarted(ctx context.Context, gameID int64) (bool, error)
	Get(ctx context.Context, gameID int64) (storage.Game, error)
	FindByMessageRef(ctx context.Context, channelXID, messageXID string) (storage.Game, error)
	FindActiveForUser(ctx context.Context, userXID string) (storage.Game, error)
	Players(ctx context.Context, gameID int64) ([]storage.Player, error)
	SetMessageRef(ctx context.Context, gameID int64, messageXID string) error
	SetVoiceRefs(ctx context.Context, gameID int64, voiceXID string, inviteLink *string) error
}

// Lo implementa internal/infra/storage.PlayerRepo
type PlayerStore interface {
	RemoveFromGame(ctx context.Context, userXID string, gameID int64) (bool, error)
	SetPoints(ctx context.Context, userXID string, gameID int64, points int) (bool, error)
}

// Lo implementa internal/infra/storage.BlockRepo
type BlockStore interface {
	IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error)
}

// Lo implementa internal/infra/storage.SettingsRepo
type SettingsStore interface {
	GuildConfig(ctx context.Context, guildXID string) (storage.GuildConfig, error)
	ChannelConfig(ctx context.Context, channelXID, guildXID string) (storage.ChannelConfig, error)
}

// GameView: todo lo que el adapter necesita para renderizar el post de la
// mesa. El core no arma embeds, sólo el contenido estructural.
type GameView struct {
	GameID      int64
	Status      string
	Format      int
	Seats       int
	Players     []PlayerView
	StartedAt   *int64 // unix, para el <t:...> del embed
	VoiceInvite *string
	SessionLink *string
	MOTD        string
	ShowPoints  bool
}

type PlayerView struct {
	UserXID string
	Points  *int
}

// Lo implementa internal/adapters/discord.Gateway
type GamePoster interface {
	SendGamePost(ctx context.Context, channelXID string, v GameView) (string, error)
	UpdateGamePost(ctx context.Context, channelXID, messageXID string, v GameView) error
	FetchGamePost(ctx context.Context, channelXID, messageXID string) (bool, error)
}

// Lo implementa internal/adapters/discord.Gateway. Todo best-effort: un
// fallo acá nunca voltea el seating.
type VoiceProvider interface {
	CreateVoiceChannel(ctx context.Context, guildXID, categoryXID, name string) (string, error)
	CreateInvite(ctx context.Context, voiceXID string) (string, error)
}
