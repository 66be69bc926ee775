// Package settings persists per-guild bot configuration.
package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GuildSettings is what a guild configured through /set.
type GuildSettings struct {
	ClipChannelID string `json:"suggestion_channel_id"`
}

// UnmarshalJSON accepts the channel id as a string or as a bare number, which is how
// older config files stored it.
func (g *GuildSettings) UnmarshalJSON(b []byte) error {
	var raw struct {
		ClipChannelID json.RawMessage `json:"suggestion_channel_id"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id := bytes.TrimSpace(raw.ClipChannelID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		g.ClipChannelID = ""
	case id[0] == '"':
		return json.Unmarshal(id, &g.ClipChannelID)
	default:
		var n json.Number
		if err := json.Unmarshal(id, &n); err != nil {
			return fmt.Errorf("suggestion_channel_id: %w", err)
		}
		g.ClipChannelID = n.String()
	}
	return nil
}

// Store is keyed by guild id.
type Store interface {
	Get(ctx context.Context, guildID string) (GuildSettings, bool, error)
	Put(ctx context.Context, guildID string, s GuildSettings) error
	Ping(ctx context.Context) error
}

// FileStore keeps all guilds in one JSON object on disk.
type FileStore struct {
	path string

	mu     sync.RWMutex
	guilds map[string]GuildSettings
}

// OpenFile loads path, treating a missing file as empty.
func OpenFile(path string) (*FileStore, error) {
	fs := &FileStore{path: path, guilds: make(map[string]GuildSettings)}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	if len(b) == 0 {
		return fs, nil
	}
	if err := json.Unmarshal(b, &fs.guilds); err != nil {
		return nil, fmt.Errorf("decode settings file %s: %w", path, err)
	}
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, guildID string) (GuildSettings, bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	s, ok := fs.guilds[guildID]
	return s, ok, nil
}

// Put replaces the guild entry and rewrites the file atomically.
func (fs *FileStore) Put(_ context.Context, guildID string, s GuildSettings) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	prev, had := fs.guilds[guildID]
	fs.guilds[guildID] = s
	if err := fs.flushLocked(); err != nil {
		if had {
			fs.guilds[guildID] = prev
		} else {
			delete(fs.guilds, guildID)
		}
		return err
	}
	return nil
}

// Ping reports whether the directory holding the file is reachable.
func (fs *FileStore) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(fs.path))
	return err
}

func (fs *FileStore) flushLocked() error {
	b, err := json.MarshalIndent(fs.guilds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	// CreateTemp uses 0600; keep the mode of the file being replaced.
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(fs.path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod settings: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("replace settings file: %w", err)
	}
	return nil
}
