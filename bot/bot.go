package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/onnwee/clip-tender/clips"
	"github.com/onnwee/clip-tender/settings"
	"github.com/onnwee/clip-tender/telemetry"
)

const (
	msgClipDeleted   = "❌ Clip deleted"
	msgClipMoveError = "⚠️ Could not move the clip. Check the bot's channel permissions."
	msgClipMissing   = "⚠️ This message no longer holds a clip."
)

// Bot routes gateway events to the registry and to clip triage.
type Bot struct {
	Registry *Registry
	Settings settings.Store
	Platform ChatPlatform
	Triage   *clips.Triage

	// EventTimeout bounds the work done for a single gateway event.
	EventTimeout time.Duration
}

func (b *Bot) eventContext() (context.Context, context.CancelFunc) {
	d := b.EventTimeout
	if d <= 0 {
		d = time.Minute
	}
	ctx := telemetry.WithCorrelation(context.Background(), uuid.NewString())
	return context.WithTimeout(ctx, d)
}

// Register overwrites the application's commands with the registry definitions.
// An empty guildID registers them globally.
func (b *Bot) Register(s *discordgo.Session, appID, guildID string) error {
	created, err := s.ApplicationCommandBulkOverwrite(appID, guildID, b.Registry.Definitions())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	slog.Info("application commands registered", slog.Int("count", len(created)), slog.String("guild", guildID))
	return nil
}

// OnInteractionCreate is the discordgo handler for slash commands and buttons.
func (b *Bot) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.onCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.onComponent(s, i)
	}
}

// interactionSender is the part of *discordgo.Session that answers interactions.
type interactionSender interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseDelete(interaction *discordgo.Interaction, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (b *Bot) onCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := b.eventContext()
	defer cancel()
	b.answerCommand(ctx, s, i.Interaction, invocationFrom(i))
}

// answerCommand runs inv and delivers the reply. Rejected invocations are answered
// ephemerally without a deferral, since a deferred response fixes the visibility
// of everything that follows it.
func (b *Bot) answerCommand(ctx context.Context, s interactionSender, i *discordgo.Interaction, inv Invocation) {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("command", inv.Command))

	cmd, ok := b.Registry.Lookup(inv.Command)
	if !ok {
		logger.Warn("unknown command")
		return
	}
	if rejected, pass := b.Registry.Precheck(inv); !pass {
		telemetry.CountCommand(inv.Command, "rejected")
		if err := respond(s, i, rejected); err != nil {
			logger.Error("respond to interaction", slog.Any("err", err))
		}
		return
	}
	if !cmd.Deferred {
		reply, _ := b.Registry.Dispatch(ctx, inv)
		if err := respond(s, i, reply); err != nil {
			logger.Error("respond to interaction", slog.Any("err", err))
		}
		return
	}

	if err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		logger.Error("defer interaction", slog.Any("err", err))
		return
	}
	reply, _ := b.Registry.Dispatch(ctx, inv)
	params := &discordgo.WebhookParams{Content: reply.Content}
	if reply.Ephemeral {
		// drop the public "thinking" placeholder so the ephemeral followup is the only answer
		if err := s.InteractionResponseDelete(i); err != nil {
			logger.Warn("delete deferred response", slog.Any("err", err))
		}
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := s.FollowupMessageCreate(i, true, params); err != nil {
		logger.Error("send followup", slog.Any("err", err))
	}
}

func (b *Bot) onComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx, cancel := b.eventContext()
	defer cancel()
	data := i.MessageComponentData()
	if data.CustomID != ButtonMoveClip && data.CustomID != ButtonDeleteClip {
		return
	}
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("button", data.CustomID))

	// Channel creation can take longer than the interaction deadline.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		logger.Error("defer button interaction", slog.Any("err", err))
		return
	}

	var msgID, content string
	if i.Message != nil {
		msgID, content = i.Message.ID, i.Message.Content
	}
	reply := b.HandleClipButton(ctx, i.GuildID, i.ChannelID, msgID, content, data.CustomID)
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: reply.Content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}); err != nil {
		logger.Error("send button followup", slog.Any("err", err))
	}
}

// HandleClipButton applies a triage decision to the prompt message.
func (b *Bot) HandleClipButton(ctx context.Context, guildID, channelID, messageID, content, customID string) Reply {
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("guild", guildID))
	switch customID {
	case ButtonDeleteClip:
		if err := b.Platform.DeleteMessage(ctx, channelID, messageID); err != nil {
			logger.Warn("delete clip prompt", slog.Any("err", err))
		}
		telemetry.CountClipAction("delete")
		return Reply{Content: msgClipDeleted, Ephemeral: true}
	case ButtonMoveClip:
		clip, ok := clips.ClipFromDetected(content)
		if !ok {
			return Reply{Content: msgClipMissing, Ephemeral: true}
		}
		name, err := b.Triage.MoveToEdit(ctx, guildID, clip)
		if err != nil {
			logger.Error("move clip", slog.Any("err", err))
			return Reply{Content: msgClipMoveError, Ephemeral: true}
		}
		if err := b.Platform.DeleteMessage(ctx, channelID, messageID); err != nil {
			logger.Warn("delete clip prompt", slog.Any("err", err))
		}
		telemetry.CountClipAction("move")
		return Reply{Content: "✅ Clip moved to #" + name, Ephemeral: true}
	}
	return Reply{Content: msgInternal, Ephemeral: true}
}

// OnMessageCreate is the discordgo handler for new messages.
func (b *Bot) OnMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ctx, cancel := b.eventContext()
	defer cancel()
	if _, err := b.HandleClipMessage(ctx, m.GuildID, m.ChannelID, m.Content); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("clip prompt failed",
			slog.String("guild", m.GuildID),
			slog.Any("err", err))
	}
}

// HandleClipMessage posts a triage prompt when content is a clip link in the
// guild's clip channel. It reports whether a prompt was sent.
func (b *Bot) HandleClipMessage(ctx context.Context, guildID, channelID, content string) (bool, error) {
	if !clips.IsClipMessage(content) {
		return false, nil
	}
	gs, ok, err := b.Settings.Get(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	if !ok || gs.ClipChannelID == "" || gs.ClipChannelID != channelID {
		return false, nil
	}
	if err := b.Platform.SendClipPrompt(ctx, channelID, strings.TrimSpace(content)); err != nil {
		return false, fmt.Errorf("send clip prompt: %w", err)
	}
	telemetry.CountClipAction("detected")
	return true, nil
}

// Ready reports whether the gateway session has received its ready event.
func Ready(s *discordgo.Session) func(context.Context) error {
	return func(context.Context) error {
		if s == nil || !s.DataReady {
			return errors.New("discord session not ready")
		}
		return nil
	}
}

func respond(s interactionSender, i *discordgo.Interaction, r Reply) error {
	data := &discordgo.InteractionResponseData{Content: r.Content}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func invocationFrom(i *discordgo.InteractionCreate) Invocation {
	data := i.ApplicationCommandData()
	inv := Invocation{
		Command:   data.Name,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]string, len(data.Options)),
	}
	if i.Member != nil && i.Member.User != nil {
		inv.UserID = i.Member.User.ID
	} else if i.User != nil {
		inv.UserID = i.User.ID
	}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			inv.Options[opt.Name] = opt.StringValue()
			continue
		}
		inv.Options[opt.Name] = fmt.Sprint(opt.Value)
	}
	return inv
}
