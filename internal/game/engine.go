// Package game computes XP/level progression and records its side effects in
// the activity feed.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/model"
)

// Level returns the level for a cumulative XP total: every 100 XP is one
// level, starting at 1.
func Level(xp int) int {
	return xp/100 + 1
}

// XPToNext returns the XP remaining until the next level boundary.
func XPToNext(xp int) int {
	return Level(xp)*100 - xp
}

// Notifier receives level-up events, e.g. to send a push notification.
type Notifier interface {
	LevelUp(ownerID string, level int)
}

type Engine struct {
	store    docstore.Store
	notifier Notifier // optional
	logger   *slog.Logger
}

func NewEngine(store docstore.Store, notifier Notifier, logger *slog.Logger) *Engine {
	return &Engine{store: store, notifier: notifier, logger: logger}
}

// AwardXP adds gain to the profile, persists the recomputed level fields, and
// appends a chore_complete feed entry. When the level rises it also appends
// an achievement entry carrying a 100 XP display value; that bonus is shown
// in the feed but never added to the profile total. That asymmetry matches
// the launch behavior and is kept deliberately.
//
// The returned profile reflects the persisted values so the caller can
// refresh its cache without waiting for a snapshot.
func (e *Engine) AwardXP(ctx context.Context, prof model.Profile, gain int) (model.Profile, error) {
	if gain < 0 {
		return prof, fmt.Errorf("award xp: negative gain %d", gain)
	}

	updated := prof
	updated.XP = prof.XP + gain
	updated.Level = Level(updated.XP)
	updated.XPToNextLevel = XPToNext(updated.XP)

	err := e.store.Update(ctx, prof.ID, model.CollectionUsers, prof.ID, map[string]any{
		"xp":            updated.XP,
		"level":         updated.Level,
		"xpToNextLevel": updated.XPToNextLevel,
	})
	if err != nil {
		return prof, fmt.Errorf("persist xp: %w", err)
	}

	entry := model.FeedItem{
		Type:        model.FeedChoreComplete,
		Title:       "XP Earned!",
		Description: fmt.Sprintf("You earned %d XP!", gain),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		XP:          gain,
		OwnerID:     prof.ID,
	}
	if _, err := e.store.Add(ctx, prof.ID, model.CollectionFeed, entry.Fields()); err != nil {
		return updated, fmt.Errorf("record xp gain: %w", err)
	}

	if updated.Level > prof.Level {
		levelUp := model.FeedItem{
			Type:        model.FeedAchievement,
			Title:       "Level Up!",
			Description: fmt.Sprintf("You reached level %d! Keep up the great work!", updated.Level),
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
			XP:          100,
			OwnerID:     prof.ID,
		}
		if _, err := e.store.Add(ctx, prof.ID, model.CollectionFeed, levelUp.Fields()); err != nil {
			return updated, fmt.Errorf("record level up: %w", err)
		}
		e.logger.Info("level up", "user", prof.ID, "level", updated.Level)
		if e.notifier != nil {
			e.notifier.LevelUp(prof.ID, updated.Level)
		}
	}

	return updated, nil
}

// CompleteChore marks the chore completed, then awards its XP. The two
// writes are not transactional; completion is persisted first so a failure
// in between leaves a completed chore with no award, never the reverse.
func (e *Engine) CompleteChore(ctx context.Context, prof model.Profile, choreID string, xpReward int) (model.Profile, error) {
	err := e.store.Update(ctx, prof.ID, model.CollectionChores, choreID, map[string]any{
		"completed": true,
	})
	if err != nil {
		return prof, fmt.Errorf("complete chore: %w", err)
	}
	return e.AwardXP(ctx, prof, xpReward)
}
