// Package docstore defines the schemaless, per-owner document store that the
// synchronization layer is built against, along with a SQLite-backed
// implementation. Every operation is scoped to a principal: callers may only
// read and write documents whose owner matches their own identity.
package docstore

import (
	"context"
	"time"
)

// Document is a single schemaless record within a collection. ID, Owner, and
// CreatedAt are managed by the store; everything else lives in Fields.
type Document struct {
	ID        string
	Owner     string
	CreatedAt time.Time
	Fields    map[string]any
}

// Query selects the documents of one owner within a collection.
type Query struct {
	// Owner is the principal whose documents are returned. Required.
	Owner string

	// Ordered requests newest-first ordering by creation time. An ordered
	// subscription needs a provisioned composite index on the collection
	// and fails with *IndexError until one exists.
	Ordered bool
}

// Subscription is a live query. Snapshots delivers the full matching document
// set initially and again after every change to the collection, until Close
// is called or the subscription's context ends, at which point the channel
// is closed.
type Subscription interface {
	Snapshots() <-chan []Document
	Close() error
}

// Store is the document store contract. The owner argument on each call is
// the caller's identity; operations touching documents owned by anyone else
// fail with *PermissionError.
type Store interface {
	// GetByID returns the document, or nil if it does not exist.
	GetByID(ctx context.Context, owner, collection, id string) (*Document, error)

	// SetByID creates or fully replaces a document with the given id,
	// owned by the caller. Creation time is set once, on first write.
	SetByID(ctx context.Context, owner, collection, id string, fields map[string]any) error

	// Update merges fields into an existing document. It fails with
	// ErrNotFound if the document does not exist.
	Update(ctx context.Context, owner, collection, id string, fields map[string]any) error

	// Add creates a document with a generated id and a server-side
	// creation timestamp, returning the id.
	Add(ctx context.Context, owner, collection string, fields map[string]any) (string, error)

	// Subscribe opens a live query for the documents matching q.
	Subscribe(ctx context.Context, collection string, q Query) (Subscription, error)
}
