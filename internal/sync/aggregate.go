package sync

import "github.com/dukerupert/homequest/internal/model"

// Aggregate is the merged client-side view of one identity's data: the
// profile plus all four tracked collections. The presentation layer only
// ever reads copies of it; the synchronizer is the sole writer.
type Aggregate struct {
	Profile *model.Profile   `json:"user"`
	Chores  []model.Chore    `json:"chores"`
	Bills   []model.Bill     `json:"bills"`
	Lists   []model.List     `json:"lists"`
	Feed    []model.FeedItem `json:"feed"`
}

// emptyAggregate is the defined-but-empty shape installed the moment an
// identity appears, before any snapshot resolves.
func emptyAggregate() Aggregate {
	return Aggregate{
		Chores: []model.Chore{},
		Bills:  []model.Bill{},
		Lists:  []model.List{},
		Feed:   []model.FeedItem{},
	}
}

func (a Aggregate) clone() Aggregate {
	out := a
	if a.Profile != nil {
		p := *a.Profile
		out.Profile = &p
	}
	out.Chores = append([]model.Chore(nil), a.Chores...)
	out.Bills = append([]model.Bill(nil), a.Bills...)
	out.Feed = append([]model.FeedItem(nil), a.Feed...)
	out.Lists = make([]model.List, len(a.Lists))
	for i, l := range a.Lists {
		l.Items = append([]model.ListItem(nil), l.Items...)
		out.Lists[i] = l
	}
	return out
}
