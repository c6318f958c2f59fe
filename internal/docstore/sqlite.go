package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Documents may carry their owner id in the body as well (the "userId" field
// the UI reads); writes are rejected when it names someone else.
const ownerField = "userId"

var validCollection = regexp.MustCompile(`^[a-z_]+$`)

// SQLiteStore implements Store on a single SQLite documents table. Live
// subscriptions are driven by write notifications: each write marks the
// collection's subscriptions dirty, and every dirty subscription re-runs its
// query and delivers a fresh snapshot.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu     sync.Mutex
	nextID int64
	subs   map[string]map[int64]*liveQuery
	closed bool
}

// NewSQLiteStore wraps an open database (see the database package) as a
// document store.
func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
		subs:   make(map[string]map[int64]*liveQuery),
	}
}

func scanDocument(scanner interface{ Scan(...any) error }) (*Document, error) {
	var d Document
	var createdAt int64
	var body []byte

	if err := scanner.Scan(&d.ID, &d.Owner, &createdAt, &body); err != nil {
		return nil, err
	}

	d.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal(body, &d.Fields); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &d, nil
}

const documentCols = `id, owner_id, created_at, body`

func (s *SQLiteStore) GetByID(ctx context.Context, owner, collection, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc.Owner != owner {
		return nil, &PermissionError{Collection: collection, Op: "read"}
	}
	return doc, nil
}

func (s *SQLiteStore) SetByID(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	if err := checkOwnerField(collection, owner, fields); err != nil {
		return err
	}

	existing, err := s.GetByID(ctx, owner, collection, id)
	if err != nil {
		return err
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	if existing == nil {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO documents (collection, id, owner_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
			collection, id, owner, body, time.Now().UTC().UnixNano(),
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
			body, collection, id,
		)
	}
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}

	s.notify(collection)
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	if err := checkOwnerField(collection, owner, fields); err != nil {
		return err
	}

	existing, err := s.GetByID(ctx, owner, collection, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}

	merged := existing.Fields
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		merged[k] = v
	}

	body, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`,
		body, collection, id,
	); err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	s.notify(collection)
	return nil
}

func (s *SQLiteStore) Add(ctx context.Context, owner, collection string, fields map[string]any) (string, error) {
	if err := checkOwnerField(collection, owner, fields); err != nil {
		return "", err
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, owner_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, owner, body, time.Now().UTC().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}

	s.notify(collection)
	return id, nil
}

func (s *SQLiteStore) Subscribe(ctx context.Context, collection string, q Query) (Subscription, error) {
	if q.Owner == "" {
		return nil, &PermissionError{Collection: collection, Op: "subscribe to"}
	}
	if q.Ordered {
		ready, err := s.indexReady(ctx, collection)
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, &IndexError{Collection: collection}
		}
	}

	lq := &liveQuery{
		store:      s,
		collection: collection,
		query:      q,
		snapshots:  make(chan []Document, 1),
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: store closed", collection)
	}
	s.nextID++
	lq.id = s.nextID
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[int64]*liveQuery)
	}
	s.subs[collection][lq.id] = lq
	s.mu.Unlock()

	// Prime the initial snapshot.
	lq.dirty <- struct{}{}
	go lq.run(ctx)

	return lq, nil
}

// ProvisionIndexes builds the composite (owner, created_at) index for each
// collection and marks it ready, after which ordered subscriptions succeed.
// Intended to run in the background at startup; a fresh database serves
// unordered fallback queries until it completes.
func (s *SQLiteStore) ProvisionIndexes(ctx context.Context, collections ...string) error {
	for _, c := range collections {
		if !validCollection.MatchString(c) {
			return fmt.Errorf("provision index: invalid collection %q", c)
		}
		ddl := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_documents_%s_owner_created ON documents (owner_id, created_at DESC) WHERE collection = '%s'`,
			c, c,
		)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("provision index for %s: %w", c, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO collection_indexes (collection, ready) VALUES (?, 1)
			 ON CONFLICT(collection) DO UPDATE SET ready = 1`,
			c,
		); err != nil {
			return fmt.Errorf("mark index ready for %s: %w", c, err)
		}
		s.logger.Info("index provisioned", "collection", c)
	}
	return nil
}

// ListByOwner is a one-shot query for the owner's documents in a collection,
// in unspecified order. Components that are not part of the live-sync loop
// (e.g. push delivery) use this instead of holding a subscription open.
func (s *SQLiteStore) ListByOwner(ctx context.Context, owner, collection string) ([]Document, error) {
	return s.list(ctx, collection, Query{Owner: owner})
}

// DeleteByID removes a document owned by the caller. Deleting someone
// else's document fails with *PermissionError.
func (s *SQLiteStore) DeleteByID(ctx context.Context, owner, collection, id string) error {
	existing, err := s.GetByID(ctx, owner, collection, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id,
	); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.notify(collection)
	return nil
}

// Close shuts down all live subscriptions. The underlying database is owned
// by the caller and stays open.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	s.closed = true
	var all []*liveQuery
	for _, byID := range s.subs {
		for _, lq := range byID {
			all = append(all, lq)
		}
	}
	s.mu.Unlock()

	var errs error
	for _, lq := range all {
		errs = multierr.Append(errs, lq.Close())
	}
	return errs
}

func (s *SQLiteStore) indexReady(ctx context.Context, collection string) (bool, error) {
	var ready int
	err := s.db.QueryRowContext(ctx,
		`SELECT ready FROM collection_indexes WHERE collection = ?`, collection,
	).Scan(&ready)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	return ready != 0, nil
}

func (s *SQLiteStore) list(ctx context.Context, collection string, q Query) ([]Document, error) {
	query := `SELECT ` + documentCols + ` FROM documents WHERE collection = ? AND owner_id = ?`
	if q.Ordered {
		query += ` ORDER BY created_at DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, collection, q.Owner)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lq := range s.subs[collection] {
		select {
		case lq.dirty <- struct{}{}:
		default:
			// Already dirty; the pending re-query will pick this write up.
		}
	}
}

func (s *SQLiteStore) unregister(lq *liveQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if byID, ok := s.subs[lq.collection]; ok {
		delete(byID, lq.id)
	}
}

func checkOwnerField(collection, owner string, fields map[string]any) error {
	v, ok := fields[ownerField]
	if !ok {
		return nil
	}
	if id, ok := v.(string); !ok || id != owner {
		return &PermissionError{Collection: collection, Op: "write to"}
	}
	return nil
}

// liveQuery is one live subscription: a dirty flag, a re-query loop, and a
// snapshot channel.
type liveQuery struct {
	store      *SQLiteStore
	collection string
	query      Query
	id         int64
	snapshots  chan []Document
	dirty      chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func (q *liveQuery) Snapshots() <-chan []Document {
	return q.snapshots
}

func (q *liveQuery) Close() error {
	q.closeOnce.Do(func() {
		q.store.unregister(q)
		close(q.done)
	})
	return nil
}

func (q *liveQuery) run(ctx context.Context) {
	defer close(q.snapshots)
	defer q.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.done:
			return
		case <-q.dirty:
		}

		docs, err := q.store.list(ctx, q.collection, q.query)
		if err != nil {
			if ctx.Err() == nil {
				q.store.logger.Error("live query", "collection", q.collection, "error", err)
			}
			continue
		}

		select {
		case q.snapshots <- docs:
		case <-ctx.Done():
			return
		case <-q.done:
			return
		}
	}
}
