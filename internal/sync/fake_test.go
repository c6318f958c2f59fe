package sync

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	gosync "sync"
	"time"

	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/identity"
)

// fakeStore is an in-memory docstore.Store with injectable subscription
// failures, for driving the synchronizer's state machine deterministically.
type fakeStore struct {
	mu     gosync.Mutex
	docs   map[string]map[string]docstore.Document
	nextID int
	clock  time.Time

	// subscribeErr, when set, is consulted before opening a subscription.
	subscribeErr func(collection string, q docstore.Query) error
	subCalls     []subCall
	subs         []*fakeSub
}

type subCall struct {
	collection string
	ordered    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:  make(map[string]map[string]docstore.Document),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) GetByID(ctx context.Context, owner, collection, id string) (*docstore.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[collection][id]
	if !ok {
		return nil, nil
	}
	if doc.Owner != owner {
		return nil, &docstore.PermissionError{Collection: collection, Op: "read"}
	}
	copied := doc
	return &copied, nil
}

func (f *fakeStore) SetByID(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	existing, ok := f.docs[collection][id]
	createdAt := f.tick()
	if ok {
		if existing.Owner != owner {
			f.mu.Unlock()
			return &docstore.PermissionError{Collection: collection, Op: "write to"}
		}
		createdAt = existing.CreatedAt
	}
	f.put(collection, docstore.Document{ID: id, Owner: owner, CreatedAt: createdAt, Fields: fields})
	f.mu.Unlock()
	f.broadcast(collection)
	return nil
}

func (f *fakeStore) Update(ctx context.Context, owner, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	doc, ok := f.docs[collection][id]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if doc.Owner != owner {
		f.mu.Unlock()
		return &docstore.PermissionError{Collection: collection, Op: "write to"}
	}
	merged := make(map[string]any, len(doc.Fields)+len(fields))
	for k, v := range doc.Fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	doc.Fields = merged
	f.put(collection, doc)
	f.mu.Unlock()
	f.broadcast(collection)
	return nil
}

func (f *fakeStore) Add(ctx context.Context, owner, collection string, fields map[string]any) (string, error) {
	f.mu.Lock()
	f.nextID++
	id := "doc-" + strconv.Itoa(f.nextID)
	f.put(collection, docstore.Document{ID: id, Owner: owner, CreatedAt: f.tick(), Fields: fields})
	f.mu.Unlock()
	f.broadcast(collection)
	return id, nil
}

func (f *fakeStore) Subscribe(ctx context.Context, collection string, q docstore.Query) (docstore.Subscription, error) {
	f.mu.Lock()
	f.subCalls = append(f.subCalls, subCall{collection: collection, ordered: q.Ordered})
	hook := f.subscribeErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(collection, q); err != nil {
			return nil, err
		}
	}

	sub := &fakeSub{
		collection: collection,
		query:      q,
		ch:         make(chan []docstore.Document, 64),
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	snapshot := f.snapshotLocked(collection, q)
	f.mu.Unlock()
	sub.push(snapshot)
	return sub, nil
}

// addDoc injects a document with an explicit creation time, bypassing
// broadcast. For pre-populating scenarios before a session starts.
func (f *fakeStore) addDoc(collection string, doc docstore.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(collection, doc)
}

func (f *fakeStore) setSubscribeErr(hook func(collection string, q docstore.Query) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeErr = hook
}

func (f *fakeStore) orderedCalls(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.subCalls {
		if c.collection == collection && c.ordered {
			n++
		}
	}
	return n
}

func (f *fakeStore) put(collection string, doc docstore.Document) {
	if f.docs[collection] == nil {
		f.docs[collection] = make(map[string]docstore.Document)
	}
	f.docs[collection][doc.ID] = doc
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeStore) snapshotLocked(collection string, q docstore.Query) []docstore.Document {
	var docs []docstore.Document
	for _, d := range f.docs[collection] {
		if d.Owner == q.Owner {
			docs = append(docs, d)
		}
	}
	if q.Ordered {
		sort.Slice(docs, func(i, j int) bool {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		})
	}
	return docs
}

func (f *fakeStore) broadcast(collection string) {
	f.mu.Lock()
	type delivery struct {
		sub  *fakeSub
		docs []docstore.Document
	}
	var out []delivery
	for _, sub := range f.subs {
		if sub.collection == collection && !sub.isClosed() {
			out = append(out, delivery{sub, f.snapshotLocked(collection, sub.query)})
		}
	}
	f.mu.Unlock()
	for _, d := range out {
		d.sub.push(d.docs)
	}
}

type fakeSub struct {
	collection string
	query      docstore.Query
	ch         chan []docstore.Document

	mu     gosync.Mutex
	closed bool
}

func (s *fakeSub) Snapshots() <-chan []docstore.Document {
	return s.ch
}

func (s *fakeSub) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSub) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSub) push(docs []docstore.Document) {
	select {
	case s.ch <- docs:
	default:
	}
}

// fakeProvider is a hand-driven identity source.
type fakeProvider struct {
	mu      gosync.Mutex
	current *identity.Identity
	ch      chan *identity.Identity
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{ch: make(chan *identity.Identity, 8)}
}

func (p *fakeProvider) Current() *identity.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	ident := *p.current
	return &ident
}

func (p *fakeProvider) Watch() <-chan *identity.Identity {
	return p.ch
}

func (p *fakeProvider) signIn(ident identity.Identity) {
	p.mu.Lock()
	p.current = &ident
	p.mu.Unlock()
	p.ch <- &ident
}

func (p *fakeProvider) signOut() {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()
	p.ch <- nil
}

func (p *fakeProvider) Register(ctx context.Context, name, email, password string) (*identity.Identity, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *fakeProvider) Login(ctx context.Context, email, password string) (*identity.Identity, error) {
	return nil, fmt.Errorf("not implemented")
}

func (p *fakeProvider) Logout(ctx context.Context) error {
	p.signOut()
	return nil
}
