package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/clip-tender/settings"
	"github.com/onnwee/clip-tender/telemetry"
)

const (
	msgInternal    = "⚠️ Something went wrong while handling the command."
	msgSetUnknown  = "❌ Unknown type. Use `/set main`"
	msgSetDone     = "✅ This channel is now the main clips channel."
	msgSetNoGuild  = "❌ This command only works inside a server."
	msgSetFailed   = "⚠️ Could not save the setting. Try again later."
	msgMissingArgs = "❌ Missing required options."
)

// LiveChecker answers /islive.
type LiveChecker interface {
	LiveMessage(ctx context.Context, channel string) string
}

// RankLooker answers /valrank.
type RankLooker interface {
	RankMessage(ctx context.Context, region, name, tag string) string
}

// Answerer answers /answer.
type Answerer interface {
	Answer(ctx context.Context, question string) string
}

func stringOption(name, desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: desc,
		Required:    true,
	}
}

// LiveCommand is /islive <channel>.
func LiveCommand(lc LiveChecker) Command {
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "islive",
			Description: "Check whether a Twitch channel is live.",
			Options:     []*discordgo.ApplicationCommandOption{stringOption("channel", "Twitch channel name")},
		},
		Deferred: true,
		Required: []string{"channel"},
		Handler: func(ctx context.Context, inv Invocation) Reply {
			return Reply{Content: lc.LiveMessage(ctx, strings.TrimSpace(inv.Option("channel")))}
		},
	}
}

// RankCommand is /valrank <region> <name> <tag>.
func RankCommand(rl RankLooker) Command {
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "valrank",
			Description: "Get a Valorant player's rank.",
			Options: []*discordgo.ApplicationCommandOption{
				stringOption("region", "Region, e.g. eu, na, ap"),
				stringOption("name", "Riot name"),
				stringOption("tag", "Riot tag without #"),
			},
		},
		Deferred: true,
		Required: []string{"region", "name", "tag"},
		Handler: func(ctx context.Context, inv Invocation) Reply {
			return Reply{Content: rl.RankMessage(ctx, inv.Option("region"), inv.Option("name"), inv.Option("tag"))}
		},
	}
}

// AnswerCommand is /answer <question>.
func AnswerCommand(a Answerer) Command {
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "answer",
			Description: "Ask the AI something and get an answer.",
			Options:     []*discordgo.ApplicationCommandOption{stringOption("question", "Your question")},
		},
		Deferred: true,
		Required: []string{"question"},
		Handler: func(ctx context.Context, inv Invocation) Reply {
			return Reply{Content: a.Answer(ctx, strings.TrimSpace(inv.Option("question")))}
		},
	}
}

// SetCommand is /set main: it stores the current channel as the guild's clip channel.
func SetCommand(store settings.Store) Command {
	return Command{
		Definition: &discordgo.ApplicationCommand{
			Name:        "set",
			Description: "Use this channel as the main clips channel.",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "kind",
				Description: "What to configure (only 'main')",
				Required:    true,
			}},
		},
		Handler: func(ctx context.Context, inv Invocation) Reply {
			if !strings.EqualFold(strings.TrimSpace(inv.Option("kind")), "main") {
				return Reply{Content: msgSetUnknown, Ephemeral: true}
			}
			if inv.GuildID == "" {
				return Reply{Content: msgSetNoGuild, Ephemeral: true}
			}
			if err := store.Put(ctx, inv.GuildID, settings.GuildSettings{ClipChannelID: inv.ChannelID}); err != nil {
				telemetry.LoggerWithCorr(ctx).Error("save guild settings", slog.String("guild", inv.GuildID), slog.Any("err", err))
				return Reply{Content: msgSetFailed, Ephemeral: true}
			}
			telemetry.LoggerWithCorr(ctx).Info("clip channel set", slog.String("guild", inv.GuildID), slog.String("channel", inv.ChannelID))
			return Reply{Content: msgSetDone, Ephemeral: true}
		},
	}
}
