// Package bot wires the adapters to Discord: it owns the command registry, the
// slash-command and button handlers, and the discordgo-backed clips.Platform.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/clip-tender/telemetry"
)

// MaxMessageLen is Discord's content limit for a single message.
const MaxMessageLen = 2000

// Invocation is the platform-neutral view of a slash command.
type Invocation struct {
	Command   string
	GuildID   string
	ChannelID string
	UserID    string
	Options   map[string]string
}

// Option returns a named option or "".
func (inv Invocation) Option(name string) string { return inv.Options[name] }

// Reply is what a handler wants sent back.
type Reply struct {
	Content   string
	Ephemeral bool
}

// HandlerFunc serves one command. It must not block past ctx.
type HandlerFunc func(ctx context.Context, inv Invocation) Reply

// Command binds a Discord definition to its handler. Deferred commands are
// acknowledged first and answered with a followup.
type Command struct {
	Definition *discordgo.ApplicationCommand
	Deferred   bool
	// Required options must be non-blank; otherwise the invocation is rejected
	// before it is acknowledged and the handler never runs.
	Required []string
	Handler  HandlerFunc
}

// Registry is the validated command table; read-only after NewRegistry.
type Registry struct {
	commands map[string]Command
}

var (
	errEmptyName = errors.New("command has empty name")
	errNoHandler = errors.New("command has no handler")
)

// NewRegistry validates cmds and builds the table.
func NewRegistry(cmds ...Command) (*Registry, error) {
	r := &Registry{commands: make(map[string]Command, len(cmds))}
	for _, c := range cmds {
		if c.Definition == nil || c.Definition.Name == "" {
			return nil, errEmptyName
		}
		name := c.Definition.Name
		if c.Handler == nil {
			return nil, fmt.Errorf("%s: %w", name, errNoHandler)
		}
		if _, dup := r.commands[name]; dup {
			return nil, fmt.Errorf("duplicate command %q", name)
		}
		r.commands[name] = c
	}
	return r, nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Definitions returns the application commands sorted by name, for bulk registration.
func (r *Registry) Definitions() []*discordgo.ApplicationCommand {
	defs := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		defs = append(defs, c.Definition)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Precheck rejects an invocation of a known command that lacks a required option.
// The rejection reply is always ephemeral.
func (r *Registry) Precheck(inv Invocation) (Reply, bool) {
	cmd, ok := r.commands[inv.Command]
	if !ok {
		return Reply{}, true
	}
	for _, name := range cmd.Required {
		if strings.TrimSpace(inv.Option(name)) == "" {
			return Reply{Content: msgMissingArgs, Ephemeral: true}, false
		}
	}
	return Reply{}, true
}

// Dispatch runs the handler for inv.Command. Unknown commands report ok=false.
// The reply is truncated to MaxMessageLen.
func (r *Registry) Dispatch(ctx context.Context, inv Invocation) (reply Reply, ok bool) {
	cmd, ok := r.commands[inv.Command]
	if !ok {
		telemetry.CountCommand(inv.Command, "unknown")
		return Reply{}, false
	}
	if rejected, pass := r.Precheck(inv); !pass {
		telemetry.CountCommand(inv.Command, "rejected")
		return rejected, true
	}
	if telemetry.GetCorrelation(ctx) == "" {
		ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	}
	ctx, span := telemetry.StartSpan(ctx, "bot", "command."+inv.Command, attribute.String("guild", inv.GuildID))
	logger := telemetry.LoggerWithCorr(ctx).With(slog.String("command", inv.Command), slog.String("guild", inv.GuildID))
	start := time.Now()

	outcome := "ok"
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("command handler panicked", slog.Any("panic", rec))
			outcome = "panic"
			reply = Reply{Content: msgInternal, Ephemeral: true}
			ok = true
		}
		telemetry.CountCommand(inv.Command, outcome)
		telemetry.EndSpan(span, nil)
		logger.Debug("command handled", slog.String("outcome", outcome), slog.Duration("took", time.Since(start)))
	}()

	reply = cmd.Handler(ctx, inv)
	reply.Content = Truncate(reply.Content, MaxMessageLen)
	return reply, true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
