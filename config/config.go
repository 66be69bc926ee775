// Package config loads environment variables into an immutable Config that is built once
// at startup and handed to every component constructor.
// It applies sensible defaults so the bot can run locally with minimal setup.
// Feature-specific credentials are checked with StatusReady and AssistantReady.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultHelixBaseURL    = "https://api.twitch.tv/helix"
	DefaultTwitchTokenURL  = "https://id.twitch.tv/oauth2/token"
	DefaultStatsBaseURL    = "https://splendid-groovy-feverfew.glitch.me/valorant"
	DefaultOpenAIModel     = "gpt-4o"
	DefaultClipCategory    = "CLIPS EDIT"
	DefaultSettingsFile    = "config.json"
	DefaultStatusTimeout   = 10 * time.Second
	DefaultStatsTimeout    = 15 * time.Second
	DefaultCleanupInterval = 5 * time.Minute
	DefaultHTTPAddr        = ":8080"
)

type Config struct {
	// Discord
	DiscordToken   string
	DiscordGuildID string // empty registers commands globally

	// Twitch (status)
	TwitchClientID     string
	TwitchOAuthToken   string
	TwitchClientSecret string
	TwitchTokenURL     string
	HelixBaseURL       string
	StatusTimeout      time.Duration

	// Valorant stats
	StatsBaseURL string
	StatsTimeout time.Duration

	// OpenAI
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Settings persistence: DBDsn wins over SettingsFile when set.
	SettingsFile string
	DBDsn        string

	// Clip moderation
	ClipCategory    string
	CleanupInterval time.Duration

	// Ops
	HTTPAddr string
}

// Load reads environment variables and applies defaults. Missing optional credentials
// disable the matching command instead of failing; call Validate for the hard requirements.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if cfg.DiscordToken == "" {
		// legacy name
		cfg.DiscordToken = os.Getenv("TOKEN")
	}
	cfg.DiscordGuildID = os.Getenv("DISCORD_GUILD_ID")

	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	cfg.TwitchOAuthToken = strings.TrimPrefix(os.Getenv("TWITCH_OAUTH_TOKEN"), "oauth:")
	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	cfg.TwitchTokenURL = envOr("TWITCH_TOKEN_URL", DefaultTwitchTokenURL)
	cfg.HelixBaseURL = strings.TrimSuffix(envOr("TWITCH_API_BASE_URL", DefaultHelixBaseURL), "/")

	var err error
	if cfg.StatusTimeout, err = durationEnv("STATUS_TIMEOUT", DefaultStatusTimeout); err != nil {
		return nil, err
	}

	cfg.StatsBaseURL = strings.TrimSuffix(envOr("STATS_BASE_URL", DefaultStatsBaseURL), "/")
	if cfg.StatsTimeout, err = durationEnv("STATS_TIMEOUT", DefaultStatsTimeout); err != nil {
		return nil, err
	}

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = envOr("OPENAI_MODEL", DefaultOpenAIModel)
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	cfg.SettingsFile = envOr("CONFIG_FILE", DefaultSettingsFile)
	cfg.DBDsn = os.Getenv("DB_DSN")

	cfg.ClipCategory = envOr("CLIP_CATEGORY_NAME", DefaultClipCategory)
	if cfg.CleanupInterval, err = durationEnv("CLEANUP_INTERVAL", DefaultCleanupInterval); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", DefaultHTTPAddr)

	return cfg, nil
}

// Validate checks the fields the bot cannot start without.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("missing discord env: require DISCORD_TOKEN")
	}
	return nil
}

// StatusReady reports whether /islive can be served.
func (c *Config) StatusReady() error {
	if c.TwitchClientID == "" {
		return errors.New("missing twitch env: require TWITCH_CLIENT_ID")
	}
	if c.TwitchOAuthToken == "" && c.TwitchClientSecret == "" {
		return errors.New("missing twitch env: require TWITCH_OAUTH_TOKEN or TWITCH_CLIENT_SECRET")
	}
	return nil
}

// AssistantReady reports whether /answer can be served.
func (c *Config) AssistantReady() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("missing openai env: require OPENAI_API_KEY")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s (duration): %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}
