// Package profile guarantees that exactly one well-formed profile document
// exists per identity.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/model"
)

// DefaultAvatarURL is used when the identity carries no photo.
const DefaultAvatarURL = "https://images.pexels.com/photos/774909/pexels-photo-774909.jpeg?auto=compress&cs=tinysrgb&w=150&h=150&fit=crop"

type Manager struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewManager(store docstore.Store, logger *slog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// EnsureProfile loads the identity's profile document, creating it with
// defaults when absent. Stored numeric fields that are not valid numbers are
// reset to their defaults independently, and any corrections are written
// back.
func (m *Manager) EnsureProfile(ctx context.Context, ident identity.Identity) (model.Profile, error) {
	doc, err := m.store.GetByID(ctx, ident.ID, model.CollectionUsers, ident.ID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("load profile: %w", err)
	}

	if doc == nil {
		prof := model.Profile{
			ID:            ident.ID,
			Name:          ident.Name,
			Email:         ident.Email,
			XP:            model.DefaultXP,
			Level:         model.DefaultLevel,
			XPToNextLevel: model.DefaultXPToNextLevel,
			Streak:        model.DefaultStreak,
			Avatar:        avatarOrDefault(ident.Photo),
		}
		if prof.Name == "" {
			prof.Name = "User"
		}
		if err := m.store.SetByID(ctx, ident.ID, model.CollectionUsers, ident.ID, prof.Fields()); err != nil {
			return model.Profile{}, fmt.Errorf("create profile: %w", err)
		}
		m.logger.Info("profile created", "user", ident.ID)
		return prof, nil
	}

	prof, corrected := model.DecodeProfile(*doc)
	prof.ID = ident.ID
	if prof.Name == "" {
		prof.Name = ident.Name
	}
	if prof.Name == "" {
		prof.Name = "User"
	}
	if prof.Email == "" {
		prof.Email = ident.Email
	}
	if prof.Avatar == "" {
		prof.Avatar = avatarOrDefault(ident.Photo)
	}

	if len(corrected) > 0 {
		m.logger.Warn("normalizing profile fields", "user", ident.ID, "fields", corrected)
		fix := map[string]any{
			"xp":            prof.XP,
			"level":         prof.Level,
			"xpToNextLevel": prof.XPToNextLevel,
			"streak":        prof.Streak,
		}
		if err := m.store.Update(ctx, ident.ID, model.CollectionUsers, ident.ID, fix); err != nil {
			return model.Profile{}, fmt.Errorf("normalize profile: %w", err)
		}
	}

	return prof, nil
}

// UpdateProfile merges arbitrary fields (household name, address, roommate
// count, ...) into the caller's own profile document.
func (m *Manager) UpdateProfile(ctx context.Context, ownerID string, fields map[string]any) error {
	if err := m.store.Update(ctx, ownerID, model.CollectionUsers, ownerID, fields); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func avatarOrDefault(photo string) string {
	if photo != "" {
		return photo
	}
	return DefaultAvatarURL
}
