package game

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/dukerupert/homequest/internal/database"
	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/model"
)

func TestLevelFormula(t *testing.T) {
	tests := []struct {
		xp         int
		wantLevel  int
		wantToNext int
	}{
		{0, 1, 100},
		{99, 1, 1},
		{100, 2, 100},
		{115, 2, 85},
		{250, 3, 50},
	}
	for _, tt := range tests {
		if got := Level(tt.xp); got != tt.wantLevel {
			t.Errorf("Level(%d) = %d, want %d", tt.xp, got, tt.wantLevel)
		}
		if got := XPToNext(tt.xp); got != tt.wantToNext {
			t.Errorf("XPToNext(%d) = %d, want %d", tt.xp, got, tt.wantToNext)
		}
	}
}

type recordingNotifier struct {
	levels []int
}

func (n *recordingNotifier) LevelUp(ownerID string, level int) {
	n.levels = append(n.levels, level)
}

func setupTestEngine(t *testing.T) (*Engine, *docstore.SQLiteStore, *recordingNotifier) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := docstore.NewSQLiteStore(db, logger)
	t.Cleanup(func() { store.Close() })

	notifier := &recordingNotifier{}
	return NewEngine(store, notifier, logger), store, notifier
}

func seedProfile(t *testing.T, store *docstore.SQLiteStore, prof model.Profile) {
	t.Helper()
	if err := store.SetByID(context.Background(), prof.ID, model.CollectionUsers, prof.ID, prof.Fields()); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func feedEntries(t *testing.T, store *docstore.SQLiteStore, owner string) []model.FeedItem {
	t.Helper()
	docs, err := store.ListByOwner(context.Background(), owner, model.CollectionFeed)
	if err != nil {
		t.Fatalf("list feed: %v", err)
	}
	items := make([]model.FeedItem, 0, len(docs))
	for _, d := range docs {
		item, err := model.DecodeFeedItem(d)
		if err != nil {
			t.Fatalf("decode feed entry: %v", err)
		}
		items = append(items, item)
	}
	return items
}

func TestAwardXP(t *testing.T) {
	engine, store, _ := setupTestEngine(t)
	ctx := context.Background()

	prof := model.Profile{ID: "u1", Name: "Alice", XP: 50, Level: 1, XPToNextLevel: 50}
	seedProfile(t, store, prof)

	updated, err := engine.AwardXP(ctx, prof, 10)
	if err != nil {
		t.Fatalf("award xp: %v", err)
	}
	if updated.XP != 60 {
		t.Errorf("xp = %d, want 60", updated.XP)
	}
	if updated.Level != 1 {
		t.Errorf("level = %d, want 1", updated.Level)
	}
	if updated.XPToNextLevel != 40 {
		t.Errorf("xpToNextLevel = %d, want 40", updated.XPToNextLevel)
	}

	entries := feedEntries(t, store, "u1")
	if len(entries) != 1 {
		t.Fatalf("feed has %d entries, want 1", len(entries))
	}
	if entries[0].Type != model.FeedChoreComplete {
		t.Errorf("entry type = %q, want %q", entries[0].Type, model.FeedChoreComplete)
	}
	if entries[0].XP != 10 {
		t.Errorf("entry xp = %d, want 10", entries[0].XP)
	}
	if entries[0].Description != "You earned 10 XP!" {
		t.Errorf("entry description = %q", entries[0].Description)
	}
}

func TestAwardXPLevelUp(t *testing.T) {
	engine, store, notifier := setupTestEngine(t)
	ctx := context.Background()

	prof := model.Profile{ID: "u1", Name: "Alice", XP: 90, Level: 1, XPToNextLevel: 10}
	seedProfile(t, store, prof)

	updated, err := engine.AwardXP(ctx, prof, 25)
	if err != nil {
		t.Fatalf("award xp: %v", err)
	}
	if updated.XP != 115 {
		t.Errorf("xp = %d, want 115 (feed bonus must not leak into the total)", updated.XP)
	}
	if updated.Level != 2 {
		t.Errorf("level = %d, want 2", updated.Level)
	}
	if updated.XPToNextLevel != 85 {
		t.Errorf("xpToNextLevel = %d, want 85", updated.XPToNextLevel)
	}

	entries := feedEntries(t, store, "u1")
	if len(entries) != 2 {
		t.Fatalf("feed has %d entries, want 2", len(entries))
	}
	var gain, achievement *model.FeedItem
	for i := range entries {
		switch entries[i].Type {
		case model.FeedChoreComplete:
			gain = &entries[i]
		case model.FeedAchievement:
			achievement = &entries[i]
		}
	}
	if gain == nil || gain.XP != 25 {
		t.Errorf("gain entry = %+v, want xp 25", gain)
	}
	if achievement == nil {
		t.Fatal("missing achievement entry")
	}
	if achievement.XP != 100 {
		t.Errorf("achievement xp = %d, want display value 100", achievement.XP)
	}
	if achievement.Description != "You reached level 2! Keep up the great work!" {
		t.Errorf("achievement description = %q", achievement.Description)
	}

	if len(notifier.levels) != 1 || notifier.levels[0] != 2 {
		t.Errorf("notifier levels = %v, want [2]", notifier.levels)
	}

	// The persisted document must match the returned profile.
	doc, err := store.GetByID(ctx, "u1", model.CollectionUsers, "u1")
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	stored, _ := model.DecodeProfile(*doc)
	if stored.XP != 115 || stored.Level != 2 {
		t.Errorf("stored xp/level = %d/%d, want 115/2", stored.XP, stored.Level)
	}
}

func TestAwardXPNegative(t *testing.T) {
	engine, store, _ := setupTestEngine(t)

	prof := model.Profile{ID: "u1", XP: 50, Level: 1, XPToNextLevel: 50}
	seedProfile(t, store, prof)

	if _, err := engine.AwardXP(context.Background(), prof, -5); err == nil {
		t.Fatal("expected error for negative gain")
	}
	if entries := feedEntries(t, store, "u1"); len(entries) != 0 {
		t.Errorf("feed has %d entries, want 0", len(entries))
	}
}

func TestCompleteChore(t *testing.T) {
	engine, store, _ := setupTestEngine(t)
	ctx := context.Background()

	prof := model.Profile{ID: "u1", Name: "Alice", XP: 0, Level: 1, XPToNextLevel: 100}
	seedProfile(t, store, prof)

	chore := model.Chore{Title: "Take out trash", XPReward: 25, OwnerID: "u1"}
	choreID, err := store.Add(ctx, "u1", model.CollectionChores, chore.Fields())
	if err != nil {
		t.Fatalf("add chore: %v", err)
	}

	updated, err := engine.CompleteChore(ctx, prof, choreID, 25)
	if err != nil {
		t.Fatalf("complete chore: %v", err)
	}
	if updated.XP != 25 {
		t.Errorf("xp = %d, want 25", updated.XP)
	}

	doc, err := store.GetByID(ctx, "u1", model.CollectionChores, choreID)
	if err != nil {
		t.Fatalf("reload chore: %v", err)
	}
	got, err := model.DecodeChore(*doc)
	if err != nil {
		t.Fatalf("decode chore: %v", err)
	}
	if !got.Completed {
		t.Error("chore not marked completed")
	}
}

func TestCompleteChoreMissing(t *testing.T) {
	engine, store, _ := setupTestEngine(t)

	prof := model.Profile{ID: "u1", XP: 0, Level: 1, XPToNextLevel: 100}
	seedProfile(t, store, prof)

	if _, err := engine.CompleteChore(context.Background(), prof, "missing", 25); err == nil {
		t.Fatal("expected error for missing chore")
	}
	// No award happens when completion itself fails.
	if entries := feedEntries(t, store, "u1"); len(entries) != 0 {
		t.Errorf("feed has %d entries, want 0", len(entries))
	}
}
