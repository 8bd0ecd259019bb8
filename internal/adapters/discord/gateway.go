package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/mesa-queue-bot/internal/app/service"
)

// Gateway implementa los ports de render/voz del core contra la sesión de
// Discord. El core nunca ve discordgo.
type Gateway struct {
	s *discordgo.Session
}

func NewGateway(s *discordgo.Session) *Gateway { return &Gateway{s: s} }

func (g *Gateway) SendGamePost(ctx context.Context, channelXID string, v service.GameView) (string, error) {
	embed, comps := renderGamePost(v)
	msg, err := g.s.ChannelMessageSendComplex(channelXID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: comps,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *Gateway) UpdateGamePost(ctx context.Context, channelXID, messageXID string, v service.GameView) error {
	embed, comps := renderGamePost(v)
	em := []*discordgo.MessageEmbed{embed}
	_, err := g.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelXID,
		ID:         messageXID,
		Embeds:     &em,
		Components: &comps,
	}, discordgo.WithContext(ctx))
	return err
}

// FetchGamePost: ¿sigue existiendo el post? Unknown Message no es error,
// es "absent" y el caller repostea.
func (g *Gateway) FetchGamePost(ctx context.Context, channelXID, messageXID string) (bool, error) {
	_, err := g.s.ChannelMessage(channelXID, messageXID, discordgo.WithContext(ctx))
	if err != nil {
		var re *discordgo.RESTError
		if errors.As(err, &re) && re.Message != nil && re.Message.Code == discordgo.ErrCodeUnknownMessage {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *Gateway) CreateVoiceChannel(ctx context.Context, guildXID, categoryXID, name string) (string, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildXID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: categoryXID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (g *Gateway) CreateInvite(ctx context.Context, voiceXID string) (string, error) {
	inv, err := g.s.ChannelInviteCreate(voiceXID, discordgo.Invite{
		MaxAge:    4 * 60 * 60, // la mesa no vive más que esto
		MaxUses:   0,
		Temporary: false,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return "https://discord.gg/" + inv.Code, nil
}
