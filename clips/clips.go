// Package clips implements clip triage: detecting Twitch clip links, moving approved
// clips into dated edit channels, and sweeping edit channels once they are empty.
//
// It talks to the chat platform only through the Platform interface, so the Discord
// session lives in package bot.
package clips

import (
	"context"
	"strings"
	"time"
)

// ClipHost identifies a Twitch clip link.
const ClipHost = "clips.twitch.tv"

// ChannelKind distinguishes categories from text channels.
type ChannelKind int

const (
	KindText ChannelKind = iota
	KindCategory
	KindOther
)

// Channel is the platform-neutral view of a guild channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
	Kind     ChannelKind
}

// Platform is the chat-platform surface needed by triage and the sweeper.
type Platform interface {
	GuildIDs() []string
	Channels(ctx context.Context, guildID string) ([]Channel, error)
	CreateChannel(ctx context.Context, guildID, name string, kind ChannelKind, parentID string) (Channel, error)
	SendMessage(ctx context.Context, channelID, content string) error
	HasMessages(ctx context.Context, channelID string) (bool, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

// IsClipMessage reports whether content carries a Twitch clip link.
func IsClipMessage(content string) bool {
	return strings.Contains(content, ClipHost)
}

// EditChannelName is the per-day edit channel, e.g. clips-edit-2024-05-01.
func EditChannelName(t time.Time) string {
	return "clips-edit-" + t.Format("2006-01-02")
}

// DetectedMessage is what the bot posts next to the triage buttons.
func DetectedMessage(clip string) string {
	return "📎 Clip detected:\n" + clip
}

// ClipFromDetected recovers the clip from a DetectedMessage.
func ClipFromDetected(content string) (string, bool) {
	clip, ok := strings.CutPrefix(content, "📎 Clip detected:\n")
	clip = strings.TrimSpace(clip)
	return clip, ok && clip != ""
}

func findChannel(chs []Channel, name string, kind ChannelKind, parentID string) (Channel, bool) {
	for _, c := range chs {
		if c.Kind != kind || c.Name != name {
			continue
		}
		if kind == KindText && c.ParentID != parentID {
			continue
		}
		return c, true
	}
	return Channel{}, false
}
