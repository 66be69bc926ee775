// Command clip-tender is the Discord bot entrypoint.
// It:
//   - Loads configuration and initializes structured logging.
//   - Opens the guild settings store (Postgres when DB_DSN is set, else a JSON file).
//   - Registers the slash commands whose backends are configured.
//   - Starts the empty edit-channel sweeper and the ops HTTP server
//     with /healthz, /readyz and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/onnwee/clip-tender/assistant"
	"github.com/onnwee/clip-tender/bot"
	"github.com/onnwee/clip-tender/clips"
	"github.com/onnwee/clip-tender/config"
	"github.com/onnwee/clip-tender/db"
	"github.com/onnwee/clip-tender/server"
	"github.com/onnwee/clip-tender/settings"
	"github.com/onnwee/clip-tender/telemetry"
	"github.com/onnwee/clip-tender/twitchapi"
	"github.com/onnwee/clip-tender/valorant"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format), slog.String("version", version))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdownTracing, err := telemetry.InitTracing("clip-tender", version)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openSettings(ctx, cfg)
	if err != nil {
		slog.Error("settings store unavailable", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	commands := []bot.Command{
		bot.SetCommand(store),
		bot.RankCommand(&valorant.Client{BaseURL: cfg.StatsBaseURL, Timeout: cfg.StatsTimeout}),
	}
	if err := cfg.StatusReady(); err != nil {
		slog.Warn("/islive disabled", slog.Any("err", err))
	} else if live, err := newHelixClient(cfg); err != nil {
		slog.Warn("/islive disabled", slog.Any("err", err))
	} else {
		commands = append(commands, bot.LiveCommand(live))
	}
	if err := cfg.AssistantReady(); err != nil {
		slog.Warn("/answer disabled", slog.Any("err", err))
	} else {
		commands = append(commands, bot.AnswerCommand(assistant.New(assistant.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})))
	}
	registry, err := bot.NewRegistry(commands...)
	if err != nil {
		slog.Error("command registry invalid", slog.Any("err", err))
		os.Exit(1)
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("discord session", slog.Any("err", err))
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	platform := &bot.DiscordPlatform{Session: session}
	triage := clips.NewTriage(platform, cfg.ClipCategory)
	b := &bot.Bot{
		Registry: registry,
		Settings: store,
		Platform: platform,
		Triage:   triage,
	}
	session.AddHandler(b.OnInteractionCreate)
	session.AddHandler(b.OnMessageCreate)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord connected", slog.String("user", r.User.String()), slog.Int("guilds", len(r.Guilds)))
	})

	if err := session.Open(); err != nil {
		slog.Error("could not open discord session", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("could not close discord session gracefully", slog.Any("err", err))
		}
	}()

	if err := b.Register(session, session.State.User.ID, cfg.DiscordGuildID); err != nil {
		slog.Error("command registration failed", slog.Any("err", err))
		os.Exit(1)
	}

	sweeper := &clips.Sweeper{
		Platform: platform,
		Category: cfg.ClipCategory,
		Interval: cfg.CleanupInterval,
		Locks:    triage.Locks,
	}
	go sweeper.Start(ctx)

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	go func() {
		err := server.Start(ctx, cfg.HTTPAddr,
			server.Check{Name: "discord", Fn: bot.Ready(session)},
			server.Check{Name: "settings", Fn: store.Ping},
		)
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

// openSettings picks Postgres when DB_DSN is set, otherwise the JSON file.
func openSettings(ctx context.Context, cfg *config.Config) (settings.Store, func(), error) {
	if cfg.DBDsn == "" {
		fs, err := settings.OpenFile(cfg.SettingsFile)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("guild settings backed by file", slog.String("path", cfg.SettingsFile))
		return fs, func() {}, nil
	}
	database, err := db.Connect(ctx, cfg.DBDsn)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.Migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}
	return &db.SettingsStore{DB: database}, closeFn, nil
}

// newHelixClient builds the status adapter and fetches the app token once so the
// first /islive does not pay for it.
func newHelixClient(cfg *config.Config) (*twitchapi.HelixClient, error) {
	tokens, err := twitchapi.NewTokenSource(twitchapi.TokenConfig{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		StaticToken:  cfg.TwitchOAuthToken,
		TokenURL:     cfg.TwitchTokenURL,
		FetchTimeout: cfg.StatusTimeout,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StatusTimeout)
	defer cancel()
	if tok, err := tokens.Token(ctx); err != nil {
		slog.Warn("twitch app token fetch failed", slog.Any("err", err))
	} else if len(tok.AccessToken) > 6 {
		slog.Info("twitch token ready", slog.String("tail", "***"+tok.AccessToken[len(tok.AccessToken)-6:]))
	}
	return &twitchapi.HelixClient{
		Tokens:   tokens,
		ClientID: cfg.TwitchClientID,
		BaseURL:  cfg.HelixBaseURL,
		Timeout:  cfg.StatusTimeout,
	}, nil
}
