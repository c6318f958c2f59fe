// Package seed populates a brand-new household with starter data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/model"
)

// Counts is the emptiness heuristic: a household with no chores, no lists,
// and no feed entries is considered new.
type Counts struct {
	Chores int
	Lists  int
	Feed   int
}

type Seeder struct {
	store  docstore.Store
	logger *slog.Logger
	group  singleflight.Group
}

func NewSeeder(store docstore.Store, logger *slog.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// SeedIfEmpty creates the starter list, chores, and welcome feed entry when
// every tracked count is zero. Concurrent calls for the same owner collapse
// into a single seeding pass.
func (s *Seeder) SeedIfEmpty(ctx context.Context, ownerID string, counts Counts) error {
	if counts.Chores > 0 || counts.Lists > 0 || counts.Feed > 0 {
		return nil
	}

	_, err, _ := s.group.Do(ownerID, func() (any, error) {
		return nil, s.seed(ctx, ownerID)
	})
	return err
}

func (s *Seeder) seed(ctx context.Context, ownerID string) error {
	today := time.Now().Format("2006-01-02")

	groceries := model.List{
		Name:    "Grocery List",
		OwnerID: ownerID,
		Items: []model.ListItem{
			{ID: "1", Text: "Milk"},
			{ID: "2", Text: "Bread"},
			{ID: "3", Text: "Eggs"},
		},
	}
	if _, err := s.store.Add(ctx, ownerID, model.CollectionLists, groceries.Fields()); err != nil {
		return fmt.Errorf("seed grocery list: %w", err)
	}

	chores := []model.Chore{
		{
			Title:       "Take out trash",
			Description: "Empty all bins and take to curb",
			XPReward:    25,
			DueDate:     today,
			Category:    "cleaning",
			OwnerID:     ownerID,
		},
		{
			Title:       "Load dishwasher",
			Description: "Load dirty dishes and start cycle",
			XPReward:    15,
			DueDate:     today,
			Category:    "kitchen",
			OwnerID:     ownerID,
		},
	}
	for _, chore := range chores {
		if _, err := s.store.Add(ctx, ownerID, model.CollectionChores, chore.Fields()); err != nil {
			return fmt.Errorf("seed chore %q: %w", chore.Title, err)
		}
	}

	welcome := model.FeedItem{
		Type:        model.FeedAchievement,
		Title:       "Welcome to HomeQuest!",
		Description: "Your journey begins now. Complete tasks to earn XP and level up!",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		XP:          0,
		OwnerID:     ownerID,
	}
	if _, err := s.store.Add(ctx, ownerID, model.CollectionFeed, welcome.Fields()); err != nil {
		return fmt.Errorf("seed welcome entry: %w", err)
	}

	s.logger.Info("household seeded", "user", ownerID)
	return nil
}
