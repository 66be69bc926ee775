package bot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/clip-tender/clips"
)

// Button custom ids on the clip triage prompt.
const (
	ButtonMoveClip   = "clip_move"
	ButtonDeleteClip = "clip_delete"
)

// ChatPlatform is everything the bot needs from the chat service beyond the
// command interactions themselves.
type ChatPlatform interface {
	clips.Platform
	SendClipPrompt(ctx context.Context, channelID, clip string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

// DiscordPlatform implements ChatPlatform on a gateway session.
type DiscordPlatform struct {
	Session *discordgo.Session
}

var _ ChatPlatform = (*DiscordPlatform)(nil)

// GuildIDs lists the guilds in the session state cache.
func (d *DiscordPlatform) GuildIDs() []string {
	st := d.Session.State
	if st == nil {
		return nil
	}
	st.RLock()
	defer st.RUnlock()
	ids := make([]string, 0, len(st.Guilds))
	for _, g := range st.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

func (d *DiscordPlatform) Channels(ctx context.Context, guildID string) ([]clips.Channel, error) {
	chs, err := d.Session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]clips.Channel, 0, len(chs))
	for _, c := range chs {
		out = append(out, toChannel(c))
	}
	return out, nil
}

func (d *DiscordPlatform) CreateChannel(ctx context.Context, guildID, name string, kind clips.ChannelKind, parentID string) (clips.Channel, error) {
	data := discordgo.GuildChannelCreateData{Name: name, ParentID: parentID}
	switch kind {
	case clips.KindCategory:
		data.Type = discordgo.ChannelTypeGuildCategory
	case clips.KindText:
		data.Type = discordgo.ChannelTypeGuildText
	default:
		return clips.Channel{}, errors.New("unsupported channel kind")
	}
	c, err := d.Session.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return clips.Channel{}, err
	}
	return toChannel(c), nil
}

func (d *DiscordPlatform) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := d.Session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

// HasMessages fetches at most one message.
func (d *DiscordPlatform) HasMessages(ctx context.Context, channelID string) (bool, error) {
	msgs, err := d.Session.ChannelMessages(channelID, 1, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return false, err
	}
	return len(msgs) > 0, nil
}

func (d *DiscordPlatform) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := d.Session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return err
}

// SendClipPrompt posts the "clip detected" message with the move/delete buttons.
func (d *DiscordPlatform) SendClipPrompt(ctx context.Context, channelID, clip string) error {
	_, err := d.Session.ChannelMessageSendComplex(channelID, clipPrompt(clip), discordgo.WithContext(ctx))
	return err
}

func (d *DiscordPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return d.Session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func clipPrompt(clip string) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content: clips.DetectedMessage(clip),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "Move to edit", Style: discordgo.SuccessButton, CustomID: ButtonMoveClip},
				discordgo.Button{Label: "Delete", Style: discordgo.DangerButton, CustomID: ButtonDeleteClip},
			}},
		},
	}
}

func toChannel(c *discordgo.Channel) clips.Channel {
	out := clips.Channel{ID: c.ID, Name: c.Name, ParentID: c.ParentID, Kind: clips.KindOther}
	switch c.Type {
	case discordgo.ChannelTypeGuildCategory:
		out.Kind = clips.KindCategory
	case discordgo.ChannelTypeGuildText:
		out.Kind = clips.KindText
	}
	return out
}
