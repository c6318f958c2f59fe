// Package model holds the household entities and the decode functions that
// turn schemaless store documents into them. Documents come back as untyped
// JSON, so every snapshot handler and the profile manager go through the
// Decode functions here rather than poking at raw maps.
package model

// Collection names in the document store.
const (
	CollectionUsers  = "users"
	CollectionChores = "chores"
	CollectionBills  = "bills"
	CollectionLists  = "lists"
	CollectionFeed   = "feed"
)

// TrackedCollections are the collections the synchronizer keeps live.
var TrackedCollections = []string{
	CollectionChores,
	CollectionBills,
	CollectionLists,
	CollectionFeed,
}

func stringField(fields map[string]any, key string) (string, bool) {
	s, ok := fields[key].(string)
	return s, ok
}

func boolField(fields map[string]any, key string) bool {
	b, _ := fields[key].(bool)
	return b
}

// intField accepts the numeric shapes a schemaless document can carry:
// float64 from JSON decoding, or int/int64 from maps built in-process.
func intField(fields map[string]any, key string) (int, bool) {
	switch v := fields[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

func floatField(fields map[string]any, key string) (float64, bool) {
	switch v := fields[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
