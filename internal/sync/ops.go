package sync

import (
	"context"

	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/seed"
)

// The operations below are fire-and-forget with respect to the aggregate:
// a successful write does not touch the cached collections, which refresh
// only when the store delivers the next snapshot. Failures are both
// returned and reported to the banner.

// AddChore creates a chore owned by the current identity.
func (s *Synchronizer) AddChore(ctx context.Context, c model.Chore) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	c.OwnerID = owner
	if _, err := s.store.Add(ctx, owner, model.CollectionChores, c.Fields()); err != nil {
		s.reportError("adding chore", err)
		return err
	}
	return nil
}

// UpdateChore merges fields into an existing chore.
func (s *Synchronizer) UpdateChore(ctx context.Context, choreID string, fields map[string]any) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, owner, model.CollectionChores, choreID, fields); err != nil {
		s.reportError("updating chore", err)
		return err
	}
	return nil
}

// CompleteChore marks the chore done and awards its XP. The cached profile
// is replaced with the persisted result immediately so that back-to-back
// completions compound instead of re-reading a stale XP total.
func (s *Synchronizer) CompleteChore(ctx context.Context, choreID string, xpReward int) error {
	prof, err := s.currentProfile()
	if err != nil {
		return err
	}
	updated, err := s.engine.CompleteChore(ctx, prof, choreID, xpReward)
	s.setProfile(updated)
	if err != nil {
		s.reportError("completing chore", err)
		return err
	}
	return nil
}

// AwardXP grants XP directly, outside any chore.
func (s *Synchronizer) AwardXP(ctx context.Context, gain int) error {
	prof, err := s.currentProfile()
	if err != nil {
		return err
	}
	updated, err := s.engine.AwardXP(ctx, prof, gain)
	s.setProfile(updated)
	if err != nil {
		s.reportError("updating XP", err)
		return err
	}
	return nil
}

// UpdateProfile merges fields into the current identity's profile document
// and refreshes the cached copy for the fields it knows about.
func (s *Synchronizer) UpdateProfile(ctx context.Context, fields map[string]any) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	if err := s.profiles.UpdateProfile(ctx, owner, fields); err != nil {
		s.reportError("updating profile", err)
		return err
	}

	s.mu.Lock()
	if s.agg.Profile != nil {
		applyProfileFields(s.agg.Profile, fields)
	}
	s.mu.Unlock()
	s.emit(model.CollectionUsers)
	return nil
}

// AddBill creates a bill owned by the current identity.
func (s *Synchronizer) AddBill(ctx context.Context, b model.Bill) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	b.OwnerID = owner
	if !model.ValidBillStatus(b.Status) {
		b.Status = model.BillPending
	}
	if _, err := s.store.Add(ctx, owner, model.CollectionBills, b.Fields()); err != nil {
		s.reportError("adding bill", err)
		return err
	}
	return nil
}

// UpdateBill merges fields into an existing bill.
func (s *Synchronizer) UpdateBill(ctx context.Context, billID string, fields map[string]any) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, owner, model.CollectionBills, billID, fields); err != nil {
		s.reportError("updating bill", err)
		return err
	}
	return nil
}

// AddList creates a list owned by the current identity.
func (s *Synchronizer) AddList(ctx context.Context, l model.List) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	l.OwnerID = owner
	if _, err := s.store.Add(ctx, owner, model.CollectionLists, l.Fields()); err != nil {
		s.reportError("adding list", err)
		return err
	}
	return nil
}

// UpdateList merges fields into an existing list. Items are embedded, so
// changing any item means sending the full rewritten item collection.
func (s *Synchronizer) UpdateList(ctx context.Context, listID string, fields map[string]any) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}
	if err := s.store.Update(ctx, owner, model.CollectionLists, listID, fields); err != nil {
		s.reportError("updating list", err)
		return err
	}
	return nil
}

// SeedIfEmpty creates the starter data when the aggregate shows a brand-new
// household: no chores, no lists, no feed entries.
func (s *Synchronizer) SeedIfEmpty(ctx context.Context) error {
	owner, err := s.requireOwner()
	if err != nil {
		return err
	}

	s.mu.Lock()
	counts := seed.Counts{
		Chores: len(s.agg.Chores),
		Lists:  len(s.agg.Lists),
		Feed:   len(s.agg.Feed),
	}
	s.mu.Unlock()

	if err := s.seeder.SeedIfEmpty(ctx, owner, counts); err != nil {
		s.reportError("creating starter data", err)
		return err
	}
	return nil
}

func applyProfileFields(p *model.Profile, fields map[string]any) {
	for key, v := range fields {
		switch key {
		case "name":
			if s, ok := v.(string); ok {
				p.Name = s
			}
		case "avatar":
			if s, ok := v.(string); ok {
				p.Avatar = s
			}
		case "address":
			if s, ok := v.(string); ok {
				p.Address = s
			}
		case "homeName":
			if s, ok := v.(string); ok {
				p.HomeName = s
			}
		case "roommates":
			switch n := v.(type) {
			case float64:
				p.Roommates = int(n)
			case int:
				p.Roommates = n
			}
		}
	}
}
