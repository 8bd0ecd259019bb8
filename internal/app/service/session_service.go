package service

import (
	"context"
	"fmt"
	"log"

	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

// SessionService gobierna la transición pending→started. El "lock" es el
// update condicional de la DB: exactamente un caller concurrente gana, y
// sólo el ganador ejecuta los side effects one-shot (voz, invite).
type SessionService struct {
	games GameStore
	voice VoiceProvider

	// categoría fallback si el guild no configuró una propia
	voiceCategoryXID string
}

func NewSessionService(games GameStore, voice VoiceProvider, voiceCategoryXID string) *SessionService {
	return &SessionService{games: games, voice: voice, voiceCategoryXID: voiceCategoryXID}
}

// TryStart intenta arrancar la mesa. Devuelve true sólo para el caller cuyo
// update condicional aplicó el cambio; el resto ve la mesa ya started y no
// repite nada.
func (s *SessionService) TryStart(ctx context.Context, game storage.Game, gcfg storage.GuildConfig) (bool, error) {
	won, err := s.games.SetStarted(ctx, game.ID)
	if err != nil {
		return false, fmt.Errorf("set started: %w", err)
	}
	if !won {
		return false, nil
	}
	log.Printf("[session] mesa=%d started guild=%s", game.ID, game.GuildXID)

	if gcfg.VoiceCreate {
		s.provisionVoice(ctx, game, gcfg)
	}
	return true, nil
}

// provisionVoice: best-effort de punta a punta. Cualquier fallo deja la mesa
// started sin refs de voz, nunca es fatal para el seating.
func (s *SessionService) provisionVoice(ctx context.Context, game storage.Game, gcfg storage.GuildConfig) {
	category := s.voiceCategoryXID
	if gcfg.VoiceCategoryXID != nil && *gcfg.VoiceCategoryXID != "" {
		category = *gcfg.VoiceCategoryXID
	}

	voiceXID, err := s.voice.CreateVoiceChannel(ctx, game.GuildXID, category, fmt.Sprintf("Mesa #%d", game.ID))
	if err != nil {
		log.Printf("[session] voice create mesa=%d: %v", game.ID, err)
		return
	}

	var invite *string
	if url, err := s.voice.CreateInvite(ctx, voiceXID); err != nil {
		// sin invite igual sirve el canal
		log.Printf("[session] voice invite mesa=%d: %v", game.ID, err)
	} else {
		invite = &url
	}

	// write-back re-validando estado: si la mesa ya no está started, no aplica
	if err := s.games.SetVoiceRefs(ctx, game.ID, voiceXID, invite); err != nil {
		log.Printf("[session] voice refs mesa=%d: %v", game.ID, err)
	}
}
