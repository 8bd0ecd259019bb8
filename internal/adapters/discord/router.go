package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
	"github.com/jose-valero/mesa-queue-bot/internal/domain"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

type Router struct {
	s       *discordgo.Session
	guildID string // vacío = comandos globales

	matcher  *service.MatcherService
	settings *storage.SettingsRepo
	maxSeats int

	clickLimiter *userLimiter
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	matcher *service.MatcherService,
	settings *storage.SettingsRepo,
	maxSeats int,
) *Router {
	return &Router{
		s:            s,
		guildID:      guildID,
		matcher:      matcher,
		settings:     settings,
		maxSeats:     maxSeats,
		clickLimiter: newUserLimiter(1 * time.Second),
	}
}

func (r *Router) Register() error {
	appID := r.s.State.User.ID
	for _, cmd := range Commands(r.maxSeats) {
		if _, err := r.s.ApplicationCommandCreate(appID, r.guildID, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlash(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})
}

func (r *Router) handleSlash(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	log.Printf("slash: /%s by=%s guild=%s", data.Name, ic.Member.User.ID, ic.GuildID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic in slash /%s: %v", data.Name, rec)
			ReplyEphemeral(s, ic, "⚠️ Ocurrió un error inesperado.")
		}
	}()

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch data.Name {
	case "mesa":
		sub, _ := subcmdName(ic)
		switch sub {
		case "buscar":
			req := service.EnqueueRequest{
				RequesterXID: ic.Member.User.ID,
				GuildXID:     ic.GuildID,
				ChannelXID:   ic.ChannelID,
			}
			if f, ok := optInt(ic, "formato"); ok {
				req.Format = f
			}
			if n, ok := optInt(ic, "asientos"); ok {
				req.Seats = n
			}
			if raw, ok := optStr(ic, "amigos"); ok {
				req.Friends = raw
			}

			res, err := r.matcher.Enqueue(ctx, req)
			if err != nil {
				log.Printf("[mesa] enqueue user=%s: %v", ic.Member.User.ID, err)
				ReplyEphemeral(s, ic, userMsg(err))
				return
			}
			ReplyEphemeral(s, ic, seatingMsg(res))

		case "salir":
			res, err := r.matcher.Leave(ctx, ic.Member.User.ID)
			if err != nil {
				ReplyEphemeral(s, ic, userMsg(err))
				return
			}
			ReplyEphemeral(s, ic, fmt.Sprintf("✅ Te bajaste de la mesa #M%d.", res.Game.ID))

		default:
			ReplyEphemeral(s, ic, "Usa `/mesa buscar` o `/mesa salir`.")
		}

	case "mesa-config":
		r.handleConfig(ctx, s, ic)
	}
}

func (r *Router) handleConfig(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate) {
	if !r.requireAdmin(s, ic) {
		return
	}
	sub, _ := subcmdName(ic)
	switch sub {
	case "show":
		gcfg, err := r.settings.GuildConfig(ctx, ic.GuildID)
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ No pude leer la config: "+err.Error())
			return
		}
		ccfg, _ := r.settings.ChannelConfig(ctx, ic.ChannelID, ic.GuildID)
		ReplyEphemeral(s, ic, formatConfig(gcfg, ccfg))

	case "set":
		var u storage.GuildConfigUpdate
		if v, ok := optStr(ic, "motd"); ok {
			u.MOTD = &v
		}
		if v, ok := optBool(ic, "show_points"); ok {
			u.ShowPoints = &v
		}
		if v, ok := optBool(ic, "voice_create"); ok {
			u.VoiceCreate = &v
		}
		if v, ok := optStr(ic, "voice_category"); ok {
			u.VoiceCategoryXID = &v
		}
		if v, ok := optInt(ic, "default_seats"); ok {
			u.DefaultSeats = &v
		}
		if _, err := r.settings.UpdateGuildConfig(ctx, ic.GuildID, u); err != nil {
			ReplyEphemeral(s, ic, "⚠️ No pude actualizar: "+err.Error())
			return
		}

		chSeats, okSeats := optInt(ic, "channel_seats")
		chFormat, okFormat := optInt(ic, "channel_format")
		if okSeats || okFormat {
			var sp, fp *int
			if okSeats {
				sp = &chSeats
			}
			if okFormat {
				fp = &chFormat
			}
			if err := r.settings.SetChannelDefaults(ctx, ic.ChannelID, ic.GuildID, sp, fp); err != nil {
				ReplyEphemeral(s, ic, "⚠️ No pude actualizar el canal: "+err.Error())
				return
			}
		}
		ReplyEphemeral(s, ic, "✅ Config actualizada.")

	default:
		ReplyEphemeral(s, ic, "Usa `/mesa-config show` o `/mesa-config set`.")
	}
}

func seatingMsg(res service.SeatingResult) string {
	switch {
	case res.Started:
		return fmt.Sprintf("🎉 ¡Mesa #M%d completa! Mirá el post de la mesa.", res.Game.ID)
	case res.Created:
		return fmt.Sprintf("✅ Mesa #M%d creada, esperando jugadores.", res.Game.ID)
	default:
		return fmt.Sprintf("✅ Te sentaste en la mesa #M%d.", res.Game.ID)
	}
}

func formatConfig(g storage.GuildConfig, c storage.ChannelConfig) string {
	var b strings.Builder
	b.WriteString("⚙️ **Config de mesas**\n")
	fmt.Fprintf(&b, "- show_points: %v\n", g.ShowPoints)
	fmt.Fprintf(&b, "- voice_create: %v\n", g.VoiceCreate)
	if g.VoiceCategoryXID != nil {
		fmt.Fprintf(&b, "- voice_category: %s\n", *g.VoiceCategoryXID)
	}
	if g.DefaultSeats != nil {
		fmt.Fprintf(&b, "- default_seats (guild): %d\n", *g.DefaultSeats)
	}
	if c.DefaultSeats != nil {
		fmt.Fprintf(&b, "- default_seats (canal): %d\n", *c.DefaultSeats)
	}
	if c.DefaultFormat != nil {
		fmt.Fprintf(&b, "- default_format (canal): %s\n", domain.GameFormat(*c.DefaultFormat))
	}
	if g.MOTD != "" {
		fmt.Fprintf(&b, "- motd: %s\n", g.MOTD)
	}
	return b.String()
}
