package clips

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// GuildLocks serializes channel changes per guild. Triage holds a guild's lock
// from find-or-create until the clip is posted, and the sweeper holds it while
// sweeping that guild, so a fresh edit channel is never seen empty.
type GuildLocks struct {
	mu     sync.Mutex
	guilds map[string]*sync.Mutex
}

// Lock blocks until guildID's lock is held and returns its release.
func (g *GuildLocks) Lock(guildID string) (unlock func()) {
	g.mu.Lock()
	if g.guilds == nil {
		g.guilds = make(map[string]*sync.Mutex)
	}
	l, ok := g.guilds[guildID]
	if !ok {
		l = &sync.Mutex{}
		g.guilds[guildID] = l
	}
	g.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Triage moves approved clips into the dated edit channel under Category.
type Triage struct {
	Platform Platform
	Category string
	Now      func() time.Time
	// Locks is shared with the Sweeper; a nil Locks gets a private set.
	Locks *GuildLocks

	once sync.Once
}

// NewTriage returns a Triage using the wall clock.
func NewTriage(p Platform, category string) *Triage {
	return &Triage{Platform: p, Category: category, Now: time.Now, Locks: &GuildLocks{}}
}

func (t *Triage) locks() *GuildLocks {
	t.once.Do(func() {
		if t.Locks == nil {
			t.Locks = &GuildLocks{}
		}
	})
	return t.Locks
}

// MoveToEdit ensures the category and today's edit channel exist, then posts the
// clip there. It returns the edit channel name.
func (t *Triage) MoveToEdit(ctx context.Context, guildID, clip string) (string, error) {
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	name := EditChannelName(now())

	unlock := t.locks().Lock(guildID)
	defer unlock()

	chs, err := t.Platform.Channels(ctx, guildID)
	if err != nil {
		return "", fmt.Errorf("list channels: %w", err)
	}
	category, ok := findChannel(chs, t.Category, KindCategory, "")
	if !ok {
		category, err = t.Platform.CreateChannel(ctx, guildID, t.Category, KindCategory, "")
		if err != nil {
			return "", fmt.Errorf("create category %q: %w", t.Category, err)
		}
	}
	target, ok := findChannel(chs, name, KindText, category.ID)
	if !ok {
		target, err = t.Platform.CreateChannel(ctx, guildID, name, KindText, category.ID)
		if err != nil {
			return "", fmt.Errorf("create channel %q: %w", name, err)
		}
	}
	if err := t.Platform.SendMessage(ctx, target.ID, "🎬 "+clip); err != nil {
		return "", fmt.Errorf("post clip: %w", err)
	}
	return name, nil
}
