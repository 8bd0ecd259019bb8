package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
)

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionString {
			return o.StringValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionString {
					return so.StringValue(), true
				}
			}
		}
	}
	return "", false
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return false, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionBoolean {
			return o.BoolValue(), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionBoolean {
					return so.BoolValue(), true
				}
			}
		}
	}
	return false, false
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return 0, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name && o.Type == discordgo.ApplicationCommandOptionInteger {
			return int(o.IntValue()), true
		}
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name && so.Type == discordgo.ApplicationCommandOptionInteger {
					return int(so.IntValue()), true
				}
			}
		}
	}
	return 0, false
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

// userMsg traduce los resultados tipados del core a mensajes para el user.
// MessageMismatch y NotInGame se colapsan a propósito en un genérico.
func userMsg(err error) string {
	switch {
	case errors.Is(err, service.ErrAlreadyInGame):
		return "⚠️ Vos (o un amigo mencionado) ya están sentados en una mesa."
	case errors.Is(err, service.ErrOversizedGroup):
		return "⚠️ El grupo no entra en la mesa pedida."
	case errors.Is(err, service.ErrBlockedPairing):
		return "🚫 No te podés unir a esta mesa."
	case errors.Is(err, service.ErrMessageMismatch), errors.Is(err, service.ErrNotInGame):
		return "ℹ️ No estás en esa mesa."
	case errors.Is(err, service.ErrStoreConflict):
		return "⏳ Mucha demanda en la cola, probá de nuevo en un momento."
	default:
		return "⚠️ Ocurrió un error inesperado."
	}
}
