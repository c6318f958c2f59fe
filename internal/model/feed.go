package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
)

// Feed entry types.
const (
	FeedAchievement   = "achievement"
	FeedChoreComplete = "chore_complete"
	FeedStreak        = "streak"
	FeedOther         = "other"
)

// FeedItem is an append-only activity feed entry. The XP value is display
// content; it is not necessarily reflected in the profile total.
type FeedItem struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Timestamp   string    `json:"timestamp"`
	XP          int       `json:"xp"`
	OwnerID     string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DecodeFeedItem validates and decodes a feed document. Unknown types are
// mapped to "other".
func DecodeFeedItem(doc docstore.Document) (FeedItem, error) {
	f := doc.Fields

	title, ok := stringField(f, "title")
	if !ok || title == "" {
		return FeedItem{}, fmt.Errorf("feed entry %s: missing title", doc.ID)
	}

	item := FeedItem{
		ID:        doc.ID,
		Title:     title,
		OwnerID:   doc.Owner,
		CreatedAt: doc.CreatedAt,
	}
	item.Description, _ = stringField(f, "description")
	item.Timestamp, _ = stringField(f, "timestamp")
	item.XP, _ = intField(f, "xp")

	switch t, _ := stringField(f, "type"); t {
	case FeedAchievement, FeedChoreComplete, FeedStreak:
		item.Type = t
	default:
		item.Type = FeedOther
	}
	return item, nil
}

// Fields encodes the feed entry as a store document body.
func (i FeedItem) Fields() map[string]any {
	return map[string]any{
		"type":        i.Type,
		"title":       i.Title,
		"description": i.Description,
		"timestamp":   i.Timestamp,
		"xp":          i.XP,
		"userId":      i.OwnerID,
	}
}
