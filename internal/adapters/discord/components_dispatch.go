package discord

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Botones y select del post de la mesa. La mesa destino se resuelve SIEMPRE
// por el message ref del post clickeado; si quedó stale el core lo reporta.
func (r *Router) handleMessageComponent(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()

	_ = DeferEphemeral(s, ic)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	uid := ic.Member.User.ID

	switch data.CustomID {
	case "mesa_join":
		if !r.clickLimiter.Allow(uid) {
			ReplyEphemeral(s, ic, "⏳ Esperá un segundo…")
			return
		}
		res, err := r.matcher.JoinByMessage(ctx, uid, ic.GuildID, ic.ChannelID, ic.Message.ID)
		if err != nil {
			log.Printf("[mesa] join user=%s msg=%s: %v", uid, ic.Message.ID, err)
			ReplyEphemeral(s, ic, userMsg(err))
			return
		}
		ReplyEphemeral(s, ic, seatingMsg(res))

	case "mesa_leave":
		if !r.clickLimiter.Allow(uid) {
			ReplyEphemeral(s, ic, "⏳ Esperá un segundo…")
			return
		}
		_, err := r.matcher.LeaveByMessage(ctx, uid, ic.ChannelID, ic.Message.ID)
		if err != nil {
			ReplyEphemeral(s, ic, userMsg(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Te bajaste de la mesa.")

	case "mesa_points":
		if len(data.Values) == 0 {
			ReplyEphemeral(s, ic, "⚠️ Selección inválida.")
			return
		}
		points, err := strconv.Atoi(data.Values[0])
		if err != nil {
			ReplyEphemeral(s, ic, "⚠️ Selección inválida.")
			return
		}
		res, err := r.matcher.ReportPoints(ctx, uid, ic.ChannelID, ic.Message.ID, points)
		if err != nil {
			ReplyEphemeral(s, ic, userMsg(err))
			return
		}
		ReplyEphemeral(s, ic, "✅ Reportaste "+strconv.Itoa(res.Points)+" puntos.")
	}
}
