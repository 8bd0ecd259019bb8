package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/mesa-queue-bot/internal/domain"
)

func formatChoices() []*discordgo.ApplicationCommandOptionChoice {
	fs := domain.Formats()
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(fs))
	for _, f := range fs {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{
			Name:  f.String(),
			Value: int(f),
		})
	}
	return out
}

func Commands(maxSeats int) []*discordgo.ApplicationCommand {
	minSeats := float64(2)
	return []*discordgo.ApplicationCommand{
		{
			Name:        "mesa",
			Description: "Matchmaking de mesas en este canal",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "buscar",
					Description: "Buscar mesa (o crear una) y sentarte",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "formato",
							Description: "Formato de juego",
							Choices:     formatChoices(),
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "asientos",
							Description: "Capacidad de la mesa",
							MinValue:    &minSeats,
							MaxValue:    float64(maxSeats),
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "amigos",
							Description: "Menciones de amigos para sentar con vos",
						},
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "salir", Description: "Salir de tu mesa actual"},
			},
		},
		{
			Name:        "mesa-config",
			Description: "Ver o cambiar la config de mesas (admins)",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Ver configuración"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Actualizar configuración (sólo lo que pases)",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "motd", Description: "Mensaje al pie de cada mesa"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "show_points", Description: "Habilitar reporte de puntos"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "voice_create", Description: "Crear canal de voz al arrancar"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "voice_category", Description: "Categoría para canales de voz"},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "default_seats",
							Description: "Asientos por defecto del guild",
							MinValue:    &minSeats,
							MaxValue:    float64(maxSeats),
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "channel_seats",
							Description: "Asientos por defecto de ESTE canal",
							MinValue:    &minSeats,
							MaxValue:    float64(maxSeats),
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "channel_format",
							Description: "Formato por defecto de ESTE canal",
							Choices:     formatChoices(),
						},
					},
				},
			},
		},
	}
}
