package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
)

// Chore is a household task worth XP. Completed only ever flips false→true.
type Chore struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	XPReward    int       `json:"xpReward"`
	Completed   bool      `json:"completed"`
	DueDate     string    `json:"dueDate"`
	Category    string    `json:"category"`
	OwnerID     string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DecodeChore validates and decodes a chore document.
func DecodeChore(doc docstore.Document) (Chore, error) {
	f := doc.Fields

	title, ok := stringField(f, "title")
	if !ok || title == "" {
		return Chore{}, fmt.Errorf("chore %s: missing title", doc.ID)
	}
	xp, ok := intField(f, "xpReward")
	if !ok {
		return Chore{}, fmt.Errorf("chore %s: xpReward is not a number", doc.ID)
	}

	c := Chore{
		ID:        doc.ID,
		Title:     title,
		XPReward:  xp,
		Completed: boolField(f, "completed"),
		OwnerID:   doc.Owner,
		CreatedAt: doc.CreatedAt,
	}
	c.Description, _ = stringField(f, "description")
	c.DueDate, _ = stringField(f, "dueDate")
	c.Category, _ = stringField(f, "category")
	return c, nil
}

// Fields encodes the chore as a store document body.
func (c Chore) Fields() map[string]any {
	return map[string]any{
		"title":       c.Title,
		"description": c.Description,
		"xpReward":    c.XPReward,
		"completed":   c.Completed,
		"dueDate":     c.DueDate,
		"category":    c.Category,
		"userId":      c.OwnerID,
	}
}
