package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/jose-valero/mesa-queue-bot/internal/domain"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

// Reintentos acotados sobre conflictos optimistas de seating. Más allá de
// esto devolvemos ErrStoreConflict y que el user pruebe de nuevo.
const (
	seatRetries = 4
	seatBackoff = 25 * time.Millisecond
)

type MatcherService struct {
	games    GameStore
	players  PlayerStore
	blocks   BlockStore
	settings SettingsStore
	poster   GamePoster
	session  *SessionService

	defaultSeats int
	maxSeats     int
}

func NewMatcherService(
	games GameStore,
	players PlayerStore,
	blocks BlockStore,
	settings SettingsStore,
	poster GamePoster,
	session *SessionService,
	defaultSeats, maxSeats int,
) *MatcherService {
	return &MatcherService{
		games:        games,
		players:      players,
		blocks:       blocks,
		settings:     settings,
		poster:       poster,
		session:      session,
		defaultSeats: defaultSeats,
		maxSeats:     maxSeats,
	}
}

type EnqueueRequest struct {
	RequesterXID string
	GuildXID     string
	ChannelXID   string
	Format       int    // 0 = default del canal
	Seats        int    // 0 = default del canal/guild
	Friends      string // menciones crudas, las resuelve ResolveGroup
}

type SeatingResult struct {
	Game    storage.Game
	Players []storage.Player
	Created bool // la mesa se creó para este request
	Started bool // este request disparó el arranque
}

// Enqueue: busca (o crea) mesa para el grupo y lo sienta atómicamente.
// Toda la coordinación pasa por la DB; acá no hay mutex.
func (s *MatcherService) Enqueue(ctx context.Context, req EnqueueRequest) (SeatingResult, error) {
	gcfg, err := s.settings.GuildConfig(ctx, req.GuildXID)
	if err != nil {
		return SeatingResult{}, fmt.Errorf("guild config: %w", err)
	}
	ccfg, err := s.settings.ChannelConfig(ctx, req.ChannelXID, req.GuildXID)
	if err != nil {
		return SeatingResult{}, fmt.Errorf("channel config: %w", err)
	}

	seats := s.resolveSeats(req.Seats, ccfg, gcfg)
	format := resolveFormat(req.Format, ccfg)

	group := ResolveGroup(req.RequesterXID, req.Friends)
	if len(group) > seats {
		return SeatingResult{}, ErrOversizedGroup
	}

	// fast path del guard (global, sin importar el guild); la tx de seating
	// lo re-valida igual
	for _, uid := range group {
		if _, err := s.games.FindActiveForUser(ctx, uid); err == nil {
			return SeatingResult{}, ErrAlreadyInGame
		} else if !errors.Is(err, storage.ErrNotFound) {
			return SeatingResult{}, fmt.Errorf("active lookup: %w", err)
		}
	}

	var game storage.Game
	var created bool
	q := storage.EligibleQuery{
		GuildXID:   req.GuildXID,
		ChannelXID: req.ChannelXID,
		Format:     format,
		Seats:      seats,
		Group:      group,
	}

	err = retry.Do(ctx, retry.WithMaxRetries(seatRetries, retry.NewConstant(seatBackoff)), func(ctx context.Context) error {
		g, ferr := s.games.FindEligiblePending(ctx, q)
		switch {
		case ferr == nil:
			serr := s.games.SeatGroup(ctx, g.ID, group)
			if errors.Is(serr, storage.ErrConflict) || errors.Is(serr, storage.ErrBlockedSeat) {
				// otro request nos ganó el asiento (o metió un bloqueado);
				// re-scan con datos frescos rutea a otra mesa
				return retry.RetryableError(serr)
			}
			if serr != nil {
				return serr
			}
			game, created = g, false
			return nil

		case errors.Is(ferr, storage.ErrNotFound):
			g, was, cerr := s.games.CreateAndSeat(ctx, storage.NewGame{
				GuildXID:   req.GuildXID,
				ChannelXID: req.ChannelXID,
				Format:     format,
				Seats:      seats,
			}, group)
			if cerr != nil {
				return cerr
			}
			game, created = g, was
			return nil

		default:
			return ferr
		}
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadySeated) {
			return SeatingResult{}, ErrAlreadyInGame
		}
		if errors.Is(err, storage.ErrConflict) || errors.Is(err, storage.ErrBlockedSeat) {
			return SeatingResult{}, ErrStoreConflict
		}
		return SeatingResult{}, fmt.Errorf("seating: %w", err)
	}

	return s.afterSeating(ctx, game, gcfg, created)
}

// JoinByMessage: join explícito contra la mesa de un post concreto. Acá NO
// ruteamos alrededor de bloqueos ni reintentamos: si no se puede, se informa.
func (s *MatcherService) JoinByMessage(ctx context.Context, userXID, guildXID, channelXID, messageXID string) (SeatingResult, error) {
	game, err := s.games.FindByMessageRef(ctx, channelXID, messageXID)
	if errors.Is(err, storage.ErrNotFound) {
		return SeatingResult{}, ErrMessageMismatch
	}
	if err != nil {
		return SeatingResult{}, fmt.Errorf("message lookup: %w", err)
	}
	if game.Started() {
		return SeatingResult{}, ErrMessageMismatch
	}

	// chequeo temprano para responder rápido; la tx de seating re-valida
	// los bloqueos contra los sentados del momento del commit
	seated, err := s.games.Players(ctx, game.ID)
	if err != nil {
		return SeatingResult{}, fmt.Errorf("players: %w", err)
	}
	for _, p := range seated {
		blocked, berr := s.blocks.IsBlockedEitherDirection(ctx, userXID, p.UserXID)
		if berr != nil {
			return SeatingResult{}, fmt.Errorf("block lookup: %w", berr)
		}
		if blocked {
			return SeatingResult{}, ErrBlockedPairing
		}
	}

	err = s.games.SeatGroup(ctx, game.ID, []string{userXID})
	if errors.Is(err, storage.ErrAlreadySeated) {
		return SeatingResult{}, ErrAlreadyInGame
	}
	if errors.Is(err, storage.ErrBlockedSeat) {
		return SeatingResult{}, ErrBlockedPairing
	}
	if errors.Is(err, storage.ErrConflict) {
		return SeatingResult{}, ErrStoreConflict
	}
	if err != nil {
		return SeatingResult{}, fmt.Errorf("seating: %w", err)
	}

	gcfg, err := s.settings.GuildConfig(ctx, guildXID)
	if err != nil {
		return SeatingResult{}, fmt.Errorf("guild config: %w", err)
	}
	return s.afterSeating(ctx, game, gcfg, false)
}

// afterSeating: detecta capacity-fill, dispara la transición y publica el
// post. El patrón es mutación atómica corta → side effect best-effort →
// write-back corto.
func (s *MatcherService) afterSeating(ctx context.Context, game storage.Game, gcfg storage.GuildConfig, created bool) (SeatingResult, error) {
	players, err := s.games.Players(ctx, game.ID)
	if err != nil {
		return SeatingResult{}, fmt.Errorf("players: %w", err)
	}

	started := false
	if len(players) == game.Seats {
		started, err = s.session.TryStart(ctx, game, gcfg)
		if err != nil {
			return SeatingResult{}, err
		}
	}

	// estado fresco para el render (started_at, refs de voz del winner)
	if g, gerr := s.games.Get(ctx, game.ID); gerr == nil {
		game = g
	}
	s.publishGamePost(ctx, game, players, gcfg)

	return SeatingResult{Game: game, Players: players, Created: created, Started: started}, nil
}

type LeaveResult struct {
	Game storage.Game
}

// Leave saca al user de su mesa activa. Dejar una mesa started sólo libera
// al jugador, el asiento NO se reabre para nuevos matches.
func (s *MatcherService) Leave(ctx context.Context, userXID string) (LeaveResult, error) {
	game, err := s.games.FindActiveForUser(ctx, userXID)
	if errors.Is(err, storage.ErrNotFound) {
		return LeaveResult{}, ErrNotInGame
	}
	if err != nil {
		return LeaveResult{}, fmt.Errorf("active lookup: %w", err)
	}
	return s.removeAndRender(ctx, userXID, game)
}

// LeaveByMessage: leave desde el botón de un post concreto.
func (s *MatcherService) LeaveByMessage(ctx context.Context, userXID, channelXID, messageXID string) (LeaveResult, error) {
	game, err := s.games.FindByMessageRef(ctx, channelXID, messageXID)
	if errors.Is(err, storage.ErrNotFound) {
		return LeaveResult{}, ErrMessageMismatch
	}
	if err != nil {
		return LeaveResult{}, fmt.Errorf("message lookup: %w", err)
	}
	return s.removeAndRender(ctx, userXID, game)
}

func (s *MatcherService) removeAndRender(ctx context.Context, userXID string, game storage.Game) (LeaveResult, error) {
	ok, err := s.players.RemoveFromGame(ctx, userXID, game.ID)
	if err != nil {
		return LeaveResult{}, fmt.Errorf("remove: %w", err)
	}
	if !ok {
		return LeaveResult{}, ErrNotInGame
	}

	// sólo re-render de mesas pendientes; las started no vuelven a pending
	if !game.Started() {
		if players, perr := s.games.Players(ctx, game.ID); perr == nil {
			if gcfg, cerr := s.settings.GuildConfig(ctx, game.GuildXID); cerr == nil {
				s.publishGamePost(ctx, game, players, gcfg)
			}
		}
	}
	return LeaveResult{Game: game}, nil
}

type ReportResult struct {
	Game   storage.Game
	Points int
}

// ReportPoints: sólo sobre mesas started donde el user jugó; repetir pisa el
// valor anterior.
func (s *MatcherService) ReportPoints(ctx context.Context, userXID, channelXID, messageXID string, points int) (ReportResult, error) {
	game, err := s.games.FindByMessageRef(ctx, channelXID, messageXID)
	if errors.Is(err, storage.ErrNotFound) {
		return ReportResult{}, ErrMessageMismatch
	}
	if err != nil {
		return ReportResult{}, fmt.Errorf("message lookup: %w", err)
	}
	if !game.Started() {
		return ReportResult{}, ErrNotInGame
	}
	// el play row sobrevive al leave; reportar exige seguir sentado
	active, err := s.games.FindActiveForUser(ctx, userXID)
	if errors.Is(err, storage.ErrNotFound) {
		return ReportResult{}, ErrNotInGame
	}
	if err != nil {
		return ReportResult{}, fmt.Errorf("active lookup: %w", err)
	}
	if active.ID != game.ID {
		return ReportResult{}, ErrNotInGame
	}

	ok, err := s.players.SetPoints(ctx, userXID, game.ID, points)
	if err != nil {
		return ReportResult{}, fmt.Errorf("set points: %w", err)
	}
	if !ok {
		return ReportResult{}, ErrNotInGame
	}

	if players, perr := s.games.Players(ctx, game.ID); perr == nil {
		if gcfg, cerr := s.settings.GuildConfig(ctx, game.GuildXID); cerr == nil {
			s.publishGamePost(ctx, game, players, gcfg)
		}
	}
	return ReportResult{Game: game, Points: points}, nil
}

// publishGamePost: crea o edita el post de la mesa. Best-effort: si Discord
// falla la mesa queda sin message ref y el próximo seating lo repone.
func (s *MatcherService) publishGamePost(ctx context.Context, game storage.Game, players []storage.Player, gcfg storage.GuildConfig) {
	v := buildView(game, players, gcfg)

	if game.MessageXID != nil {
		ok, err := s.poster.FetchGamePost(ctx, game.ChannelXID, *game.MessageXID)
		if err == nil && ok {
			if err := s.poster.UpdateGamePost(ctx, game.ChannelXID, *game.MessageXID, v); err != nil {
				log.Printf("[match] update post game=%d: %v", game.ID, err)
			}
			return
		}
		// el post original ya no está (borrado/inaccesible): repost
	}

	msgXID, err := s.poster.SendGamePost(ctx, game.ChannelXID, v)
	if err != nil {
		log.Printf("[match] send post game=%d: %v", game.ID, err)
		return
	}
	// write-back advisory: si la mesa desapareció en el medio no es error
	if err := s.games.SetMessageRef(ctx, game.ID, msgXID); err != nil {
		log.Printf("[match] set message ref game=%d: %v", game.ID, err)
	}
}

func (s *MatcherService) resolveSeats(requested int, ccfg storage.ChannelConfig, gcfg storage.GuildConfig) int {
	seats := requested
	if seats == 0 && ccfg.DefaultSeats != nil {
		seats = *ccfg.DefaultSeats
	}
	if seats == 0 && gcfg.DefaultSeats != nil {
		seats = *gcfg.DefaultSeats
	}
	if seats == 0 {
		seats = s.defaultSeats
	}
	if seats < 2 {
		seats = 2
	}
	if seats > s.maxSeats {
		seats = s.maxSeats
	}
	return seats
}

func resolveFormat(requested int, ccfg storage.ChannelConfig) int {
	if domain.GameFormat(requested).Valid() {
		return requested
	}
	if ccfg.DefaultFormat != nil && domain.GameFormat(*ccfg.DefaultFormat).Valid() {
		return *ccfg.DefaultFormat
	}
	return int(domain.FormatCommander)
}

func buildView(game storage.Game, players []storage.Player, gcfg storage.GuildConfig) GameView {
	v := GameView{
		GameID:      game.ID,
		Status:      game.Status,
		Format:      game.Format,
		Seats:       game.Seats,
		VoiceInvite: game.VoiceInviteLink,
		SessionLink: game.SessionLink,
		MOTD:        gcfg.MOTD,
		ShowPoints:  gcfg.ShowPoints,
	}
	if game.StartedAt != nil {
		ts := game.StartedAt.Unix()
		v.StartedAt = &ts
	}
	for _, p := range players {
		v.Players = append(v.Players, PlayerView{UserXID: p.UserXID, Points: p.Points})
	}
	return v
}
