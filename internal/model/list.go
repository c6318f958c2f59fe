package model

import (
	"fmt"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
)

// ListItem is a single entry embedded in a list document. Items are not
// separately addressable; changing one means rewriting the parent list's
// whole item collection.
type ListItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// List is a named checklist with embedded items.
type List struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Items     []ListItem `json:"items"`
	OwnerID   string     `json:"userId"`
	CreatedAt time.Time  `json:"createdAt"`
}

// DecodeList validates and decodes a list document. Malformed embedded items
// are dropped rather than failing the whole list.
func DecodeList(doc docstore.Document) (List, error) {
	f := doc.Fields

	name, ok := stringField(f, "name")
	if !ok || name == "" {
		return List{}, fmt.Errorf("list %s: missing name", doc.ID)
	}

	l := List{
		ID:        doc.ID,
		Name:      name,
		OwnerID:   doc.Owner,
		CreatedAt: doc.CreatedAt,
	}

	raw, _ := f["items"].([]any)
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := ListItem{Completed: boolField(m, "completed")}
		item.ID, _ = stringField(m, "id")
		if item.Text, ok = stringField(m, "text"); !ok {
			continue
		}
		l.Items = append(l.Items, item)
	}
	return l, nil
}

// Fields encodes the list as a store document body.
func (l List) Fields() map[string]any {
	items := make([]any, 0, len(l.Items))
	for _, item := range l.Items {
		items = append(items, map[string]any{
			"id":        item.ID,
			"text":      item.Text,
			"completed": item.Completed,
		})
	}
	return map[string]any{
		"name":   l.Name,
		"items":  items,
		"userId": l.OwnerID,
	}
}
