// Package db provides the Postgres connection helper, schema migration, and the
// guild settings store used when DB_DSN is configured.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/onnwee/clip-tender/settings"
)

// Connect opens a Postgres pool for dsn and verifies it answers.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("db: empty dsn")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	database.SetMaxOpenConns(8)
	database.SetConnMaxIdleTime(5 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := database.PingContext(pingCtx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return database, nil
}

// Migrate applies idempotent schema changes.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS guild_settings (
			guild_id TEXT PRIMARY KEY,
			clip_channel_id TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// SettingsStore implements settings.Store on the guild_settings table.
type SettingsStore struct{ DB *sql.DB }

var _ settings.Store = (*SettingsStore)(nil)

func (s *SettingsStore) Get(ctx context.Context, guildID string) (settings.GuildSettings, bool, error) {
	var gs settings.GuildSettings
	err := s.DB.QueryRowContext(ctx, `SELECT clip_channel_id FROM guild_settings WHERE guild_id=$1`, guildID).Scan(&gs.ClipChannelID)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.GuildSettings{}, false, nil
	}
	if err != nil {
		return settings.GuildSettings{}, false, fmt.Errorf("select guild settings: %w", err)
	}
	return gs, true, nil
}

func (s *SettingsStore) Put(ctx context.Context, guildID string, gs settings.GuildSettings) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO guild_settings (guild_id, clip_channel_id, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (guild_id) DO UPDATE SET clip_channel_id=EXCLUDED.clip_channel_id, updated_at=NOW()`,
		guildID, gs.ClipChannelID)
	if err != nil {
		return fmt.Errorf("upsert guild settings: %w", err)
	}
	return nil
}

func (s *SettingsStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }
