package clips

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/onnwee/clip-tender/telemetry"
)

// Sweeper deletes text channels under the edit category once they hold no messages.
type Sweeper struct {
	Platform Platform
	Category string
	Interval time.Duration
	// Locks, when set, is the Triage's lock set; a guild is swept under its lock.
	Locks *GuildLocks
}

// Start runs a sweep immediately and then every Interval until ctx is cancelled.
// It blocks; callers run it in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	slog.Info("clip sweeper starting", slog.String("category", s.Category), slog.Duration("interval", interval))

	s.runSafe(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("clip sweeper stopped")
			return
		case <-ticker.C:
			s.runSafe(ctx)
		}
	}
}

// runSafe keeps a panicking sweep from killing the scheduler.
func (s *Sweeper) runSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.CountSweepFailure()
			slog.Error("clip sweep panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
		}
	}()
	deleted := s.SweepOnce(ctx)
	if deleted > 0 {
		slog.Info("clip sweep removed empty channels", slog.Int("deleted", deleted))
	}
}

// SweepOnce walks every guild once and returns how many channels were deleted.
// A failure on one guild or channel is logged and the sweep moves on.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	logger := slog.Default().With(slog.String("component", "clip_sweeper"))
	deleted := 0
	for _, guildID := range s.Platform.GuildIDs() {
		if ctx.Err() != nil {
			return deleted
		}
		deleted += s.sweepGuild(ctx, logger, guildID)
	}
	return deleted
}

func (s *Sweeper) sweepGuild(ctx context.Context, logger *slog.Logger, guildID string) int {
	if s.Locks != nil {
		unlock := s.Locks.Lock(guildID)
		defer unlock()
	}
	chs, err := s.Platform.Channels(ctx, guildID)
	if err != nil {
		telemetry.CountSweepFailure()
		logger.Warn("list channels failed", slog.String("guild", guildID), slog.Any("err", err))
		return 0
	}
	category, ok := findChannel(chs, s.Category, KindCategory, "")
	if !ok {
		return 0
	}
	deleted := 0
	for _, ch := range chs {
		if ch.Kind != KindText || ch.ParentID != category.ID {
			continue
		}
		removed, err := s.sweepChannel(ctx, ch)
		if err != nil {
			telemetry.CountSweepFailure()
			logger.Warn("sweep channel failed",
				slog.String("guild", guildID),
				slog.String("channel", ch.Name),
				slog.Any("err", err))
			continue
		}
		if removed {
			deleted++
			telemetry.CountChannelDeleted()
			logger.Info("deleted empty edit channel", slog.String("guild", guildID), slog.String("channel", ch.Name))
		}
	}
	return deleted
}

func (s *Sweeper) sweepChannel(ctx context.Context, ch Channel) (bool, error) {
	has, err := s.Platform.HasMessages(ctx, ch.ID)
	if err != nil {
		return false, fmt.Errorf("read messages: %w", err)
	}
	if has {
		return false, nil
	}
	if err := s.Platform.DeleteChannel(ctx, ch.ID); err != nil {
		return false, fmt.Errorf("delete channel: %w", err)
	}
	return true, nil
}
