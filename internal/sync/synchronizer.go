// Package sync binds the document store to an in-memory aggregate: one live
// subscription per tracked collection, filtered to the current identity and
// ordered newest-first, with a client-sorted fallback when the store cannot
// serve ordered queries yet.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	gosync "sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/game"
	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/profile"
	"github.com/dukerupert/homequest/internal/seed"
)

// ErrNotSignedIn is returned by operations invoked without an active session.
var ErrNotSignedIn = errors.New("not signed in")

// Config tunes the ordered-subscription retry loop. The zero value gets the
// production defaults.
type Config struct {
	// RetryDelay between ordered subscribe attempts while an index is
	// missing. Defaults to 5 seconds.
	RetryDelay time.Duration
	// MaxRetries after the initial attempt. Defaults to 3.
	MaxRetries uint64
}

func (c Config) withDefaults() Config {
	if c.RetryDelay == 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	return c
}

// Synchronizer owns the aggregate and every subscription feeding it. All
// mutation operations are exposed here so that the presentation layer never
// touches the store directly.
type Synchronizer struct {
	store    docstore.Store
	ids      identity.Provider
	profiles *profile.Manager
	engine   *game.Engine
	seeder   *seed.Seeder
	cfg      Config
	logger   *slog.Logger
	onChange func(entity string)

	mu      gosync.Mutex
	agg     Aggregate
	owner   string
	loading bool
	errMsg  string
	states  map[string]CollectionState
	cancel  context.CancelFunc
	wg      gosync.WaitGroup
}

func New(
	store docstore.Store,
	ids identity.Provider,
	profiles *profile.Manager,
	engine *game.Engine,
	seeder *seed.Seeder,
	cfg Config,
	logger *slog.Logger,
) *Synchronizer {
	states := make(map[string]CollectionState, len(model.TrackedCollections))
	for _, c := range model.TrackedCollections {
		states[c] = StateIdle
	}
	return &Synchronizer{
		store:    store,
		ids:      ids,
		profiles: profiles,
		engine:   engine,
		seeder:   seeder,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		states:   states,
	}
}

// SetOnChange registers a hook invoked after every aggregate change with the
// entity that changed. Must be called before Run.
func (s *Synchronizer) SetOnChange(fn func(entity string)) {
	s.onChange = fn
}

// Run reacts to identity changes until ctx ends: starting a session when an
// identity appears and tearing everything down when it goes away.
func (s *Synchronizer) Run(ctx context.Context) error {
	watch := s.ids.Watch()
	if ident := s.ids.Current(); ident != nil {
		s.startSession(ctx, *ident)
	}

	for {
		select {
		case <-ctx.Done():
			s.stopSession()
			return nil
		case ident := <-watch:
			s.stopSession()
			if ident != nil {
				s.startSession(ctx, *ident)
			}
		}
	}
}

func (s *Synchronizer) startSession(parent context.Context, ident identity.Identity) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	s.cancel = cancel
	s.owner = ident.ID
	s.agg = emptyAggregate()
	s.loading = true
	s.errMsg = ""
	for _, c := range model.TrackedCollections {
		s.states[c] = StateConnecting
	}
	s.mu.Unlock()
	s.emit("session")

	s.logger.Info("session started", "user", ident.ID)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		prof, err := s.profiles.EnsureProfile(ctx, ident)
		if err != nil {
			s.reportError("loading your profile", err)
		} else {
			s.setProfile(prof)
		}
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.emit("session")
	}()

	for _, collection := range model.TrackedCollections {
		s.wg.Add(1)
		go func(collection string) {
			defer s.wg.Done()
			s.watchCollection(ctx, collection, ident.ID)
		}(collection)
	}
}

func (s *Synchronizer) stopSession() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.owner = ""
	s.agg = Aggregate{}
	s.loading = false
	s.errMsg = ""
	for _, c := range model.TrackedCollections {
		s.states[c] = StateIdle
	}
	s.mu.Unlock()
	s.emit("session")

	s.logger.Info("session stopped")
}

// watchCollection runs one collection's subscription state machine for the
// lifetime of the session.
func (s *Synchronizer) watchCollection(ctx context.Context, collection, owner string) {
	var sub docstore.Subscription
	backoff := retry.WithMaxRetries(s.cfg.MaxRetries, retry.NewConstant(s.cfg.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		sub, err = s.store.Subscribe(ctx, collection, docstore.Query{Owner: owner, Ordered: true})
		if docstore.IsIndexMissing(err) {
			s.logger.Warn("ordered query needs an index, will retry",
				"collection", collection, "delay", s.cfg.RetryDelay)
			return retry.RetryableError(err)
		}
		return err
	})

	ordered := true
	if err != nil {
		switch {
		case ctx.Err() != nil:
			// Session ended while a retry was pending.
			return
		case docstore.IsIndexMissing(err):
			// Retries exhausted. Serve unordered results and sort them
			// here rather than blocking the user on index provisioning.
			s.setState(collection, StateConnectingFallback)
			ordered = false
			sub, err = s.store.Subscribe(ctx, collection, docstore.Query{Owner: owner})
			if err != nil {
				s.subscribeFailed(collection, err)
				return
			}
		default:
			s.subscribeFailed(collection, err)
			return
		}
	}
	defer sub.Close()

	if ordered {
		s.setState(collection, StateLive)
	} else {
		s.setState(collection, StateLiveFallback)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case docs, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if !ordered {
				sortNewestFirst(docs)
			}
			s.apply(collection, owner, docs)
		}
	}
}

// sortNewestFirst orders documents by creation time descending. Documents
// without a creation time carry the zero value, which lands them last.
func sortNewestFirst(docs []docstore.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
}

// apply replaces one collection's slice of the aggregate with a decoded
// snapshot. Documents that fail to decode are logged and skipped; they never
// surface as user-visible errors.
func (s *Synchronizer) apply(collection, owner string, docs []docstore.Document) {
	s.mu.Lock()
	if s.owner != owner {
		// Snapshot from a torn-down session; drop it.
		s.mu.Unlock()
		return
	}

	switch collection {
	case model.CollectionChores:
		chores := make([]model.Chore, 0, len(docs))
		for _, d := range docs {
			c, err := model.DecodeChore(d)
			if err != nil {
				s.logger.Warn("skipping malformed chore", "id", d.ID, "error", err)
				continue
			}
			chores = append(chores, c)
		}
		s.agg.Chores = chores
	case model.CollectionBills:
		bills := make([]model.Bill, 0, len(docs))
		for _, d := range docs {
			b, err := model.DecodeBill(d)
			if err != nil {
				s.logger.Warn("skipping malformed bill", "id", d.ID, "error", err)
				continue
			}
			bills = append(bills, b)
		}
		s.agg.Bills = bills
	case model.CollectionLists:
		lists := make([]model.List, 0, len(docs))
		for _, d := range docs {
			l, err := model.DecodeList(d)
			if err != nil {
				s.logger.Warn("skipping malformed list", "id", d.ID, "error", err)
				continue
			}
			lists = append(lists, l)
		}
		s.agg.Lists = lists
	case model.CollectionFeed:
		feed := make([]model.FeedItem, 0, len(docs))
		for _, d := range docs {
			f, err := model.DecodeFeedItem(d)
			if err != nil {
				s.logger.Warn("skipping malformed feed entry", "id", d.ID, "error", err)
				continue
			}
			feed = append(feed, f)
		}
		s.agg.Feed = feed
	}
	s.mu.Unlock()

	s.emit(collection)
}

func (s *Synchronizer) subscribeFailed(collection string, err error) {
	s.setState(collection, StateFailed)
	if docstore.IsPermissionDenied(err) {
		s.logger.Error("subscription refused", "collection", collection, "error", err)
		s.setError(fmt.Sprintf("Permission denied accessing %s.", collection))
		return
	}
	s.logger.Error("subscription failed", "collection", collection, "error", err)
	s.setError(fmt.Sprintf("Failed to load %s. Please try again.", collection))
}

// reportError converts an operation failure into the dismissible banner.
// action reads like "updating chore".
func (s *Synchronizer) reportError(action string, err error) {
	if docstore.IsPermissionDenied(err) {
		s.setError(fmt.Sprintf("Permission denied %s.", action))
		return
	}
	s.logger.Error("operation failed", "action", action, "error", err)
	s.setError(fmt.Sprintf("Something went wrong %s. Please try again.", action))
}

func (s *Synchronizer) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.emit("error")
}

func (s *Synchronizer) setState(collection string, state CollectionState) {
	s.mu.Lock()
	s.states[collection] = state
	s.mu.Unlock()
}

func (s *Synchronizer) setProfile(prof model.Profile) {
	s.mu.Lock()
	if s.owner != prof.ID {
		s.mu.Unlock()
		return
	}
	s.agg.Profile = &prof
	s.mu.Unlock()
	s.emit(model.CollectionUsers)
}

func (s *Synchronizer) emit(entity string) {
	if s.onChange != nil {
		s.onChange(entity)
	}
}

// Snapshot returns a copy of the aggregate. Never nil-shaped once an
// identity is present.
func (s *Synchronizer) Snapshot() Aggregate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg.clone()
}

// Loading reports whether the current session is still resolving its first
// profile fetch.
func (s *Synchronizer) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Error returns the current banner message, or "".
func (s *Synchronizer) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ClearError dismisses the banner.
func (s *Synchronizer) ClearError() {
	s.setError("")
}

// State reports one collection's subscription state.
func (s *Synchronizer) State(collection string) CollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[collection]
}

func (s *Synchronizer) requireOwner() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return "", ErrNotSignedIn
	}
	return s.owner, nil
}

func (s *Synchronizer) currentProfile() (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == "" {
		return model.Profile{}, ErrNotSignedIn
	}
	if s.agg.Profile == nil {
		return model.Profile{}, errors.New("profile not loaded yet")
	}
	return *s.agg.Profile, nil
}
