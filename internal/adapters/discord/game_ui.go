package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
	"github.com/jose-valero/mesa-queue-bot/internal/domain"
	"github.com/jose-valero/mesa-queue-bot/internal/infra/storage"
)

const embedColor = 0x5A3EC8

// renderGamePost arma el embed + componentes del post de una mesa. El
// contenido estructural viene del core (GameView); acá sólo lo vestimos.
func renderGamePost(v service.GameView) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	if v.Status == storage.StatusStarted {
		return renderStarted(v)
	}
	return renderPending(v)
}

func renderPending(v service.GameView) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	missing := v.Seats - len(v.Players)
	title := fmt.Sprintf("**Esperando %d jugadores más...**", missing)
	if missing == 1 {
		title = "**Esperando 1 jugador más...**"
	}

	desc := "_El link de la sesión se crea cuando la mesa esté completa._"
	if v.MOTD != "" {
		desc += "\n\n" + v.MOTD
	}

	fields := []*discordgo.MessageEmbedField{}
	if len(v.Players) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Jugadores",
			Value: playersLine(v),
		})
	}
	fields = append(fields, &discordgo.MessageEmbedField{
		Name:   "Formato",
		Value:  domain.GameFormat(v.Format).String(),
		Inline: true,
	})

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc,
		Color:       embedColor,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Mesa ID: #M%d", v.GameID)},
	}

	comps := []discordgo.MessageComponent{discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{
				Style:    discordgo.PrimaryButton,
				Label:    "Me siento",
				CustomID: "mesa_join",
				Emoji:    &discordgo.ComponentEmoji{Name: "🪑"},
			},
			discordgo.Button{
				Style:    discordgo.SecondaryButton,
				Label:    "Me bajo",
				CustomID: "mesa_leave",
				Emoji:    &discordgo.ComponentEmoji{Name: "👋"},
			},
		},
	}}
	return embed, comps
}

func renderStarted(v service.GameView) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	var b strings.Builder
	if v.SessionLink != nil {
		fmt.Fprintf(&b, "[Entrá a la sesión acá](%s).\n\n", *v.SessionLink)
	} else {
		b.WriteString("Revisá tus mensajes directos para el link de la sesión.\n\n")
	}
	if v.VoiceInvite != nil {
		fmt.Fprintf(&b, "🔊 Voz: %s\n\n", *v.VoiceInvite)
	}
	if v.ShowPoints {
		b.WriteString("Cuando termine la partida reportá tus puntos con el menú de abajo.\n\n")
	}
	if v.MOTD != "" {
		b.WriteString(v.MOTD)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Jugadores", Value: playersLine(v)},
		{Name: "Formato", Value: domain.GameFormat(v.Format).String(), Inline: true},
	}
	if v.StartedAt != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Arrancó",
			Value:  fmt.Sprintf("<t:%d>", *v.StartedAt),
			Inline: true,
		})
	}

	embed := &discordgo.MessageEmbed{
		Title:       "**¡Tu mesa está lista!**",
		Description: strings.TrimSpace(b.String()),
		Color:       embedColor,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Mesa ID: #M%d", v.GameID)},
	}

	var comps []discordgo.MessageComponent
	if v.ShowPoints {
		opts := make([]discordgo.SelectMenuOption, 0, 11)
		for i := 0; i <= 10; i++ {
			opts = append(opts, discordgo.SelectMenuOption{
				Label: fmt.Sprintf("%d puntos", i),
				Value: fmt.Sprint(i),
			})
		}
		comps = []discordgo.MessageComponent{discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    "mesa_points",
					Placeholder: "Reportá tus puntos",
					Options:     opts,
				},
			},
		}}
	}
	return embed, comps
}

func playersLine(v service.GameView) string {
	parts := make([]string, 0, len(v.Players))
	for _, p := range v.Players {
		s := "<@" + p.UserXID + ">"
		if v.ShowPoints && p.Points != nil {
			s += fmt.Sprintf(" (%d puntos)", *p.Points)
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
