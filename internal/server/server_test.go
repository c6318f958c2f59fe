package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/homequest/internal/database"
	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/game"
	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/profile"
	"github.com/dukerupert/homequest/internal/seed"
	"github.com/dukerupert/homequest/internal/sync"
	ws "github.com/dukerupert/homequest/internal/websocket"
)

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := docstore.NewSQLiteStore(db, logger)
	t.Cleanup(func() { store.Close() })
	if err := store.ProvisionIndexes(context.Background(), model.TrackedCollections...); err != nil {
		t.Fatalf("provision indexes: %v", err)
	}

	provider := identity.NewSQLiteProvider(db, logger)
	syncer := sync.New(
		store,
		provider,
		profile.NewManager(store, logger),
		game.NewEngine(store, nil, logger),
		seed.NewSeeder(store, logger),
		sync.Config{RetryDelay: 5 * time.Millisecond, MaxRetries: 2},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		syncer.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	hub := ws.NewHub(logger)
	srv := New(syncer, provider, hub, nil, []byte("test-secret"), logger)
	return srv.Router()
}

type dataPayload struct {
	User    *model.Profile   `json:"user"`
	Chores  []model.Chore    `json:"chores"`
	Bills   []model.Bill     `json:"bills"`
	Lists   []model.List     `json:"lists"`
	Feed    []model.FeedItem `json:"feed"`
	Loading bool             `json:"loading"`
	Error   string           `json:"error"`
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func fetchData(t *testing.T, h http.Handler, cookies []*http.Cookie) dataPayload {
	t.Helper()
	rec := doJSON(t, h, http.MethodGet, "/api/data", nil, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/data = %d: %s", rec.Code, rec.Body.String())
	}
	var data dataPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	return data
}

func waitForData(t *testing.T, h http.Handler, cookies []*http.Cookie, what string, cond func(dataPayload) bool) dataPayload {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		data := fetchData(t, h, cookies)
		if cond(data) {
			return data
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
	return dataPayload{}
}

func TestServerEndToEnd(t *testing.T) {
	h := setupTestServer(t)

	// Unauthenticated requests never reach the data surface.
	if rec := doJSON(t, h, http.MethodGet, "/api/data", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated GET /api/data = %d, want 401", rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "hunter2",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("register set no session cookie")
	}

	data := waitForData(t, h, cookies, "profile", func(d dataPayload) bool {
		return !d.Loading && d.User != nil
	})
	if data.User.XP != 0 || data.User.Level != 1 {
		t.Errorf("fresh profile xp/level = %d/%d, want 0/1", data.User.XP, data.User.Level)
	}

	// Starter data for the new household.
	if rec := doJSON(t, h, http.MethodPost, "/api/seed", nil, cookies); rec.Code != http.StatusAccepted {
		t.Fatalf("seed = %d: %s", rec.Code, rec.Body.String())
	}
	data = waitForData(t, h, cookies, "seeded data", func(d dataPayload) bool {
		return len(d.Chores) == 2 && len(d.Lists) == 1 && len(d.Feed) == 1
	})

	// Complete a seeded chore and watch the XP land.
	var trash *model.Chore
	for i := range data.Chores {
		if data.Chores[i].Title == "Take out trash" {
			trash = &data.Chores[i]
		}
	}
	if trash == nil {
		t.Fatalf("seeded chores = %+v, want one titled %q", data.Chores, "Take out trash")
	}
	if rec := doJSON(t, h, http.MethodPost, "/api/chores/"+trash.ID+"/complete", nil, cookies); rec.Code != http.StatusAccepted {
		t.Fatalf("complete = %d: %s", rec.Code, rec.Body.String())
	}
	data = waitForData(t, h, cookies, "xp award", func(d dataPayload) bool {
		return d.User.XP == 25 && len(d.Feed) == 2
	})
	for _, c := range data.Chores {
		if c.ID == trash.ID && !c.Completed {
			t.Error("completed chore not marked done in the aggregate")
		}
	}

	// Newest feed entry first.
	if data.Feed[0].Type != model.FeedChoreComplete {
		t.Errorf("feed[0].type = %q, want %q", data.Feed[0].Type, model.FeedChoreComplete)
	}

	// Create a chore through the API.
	rec = doJSON(t, h, http.MethodPost, "/api/chores", map[string]any{
		"title": "Water plants", "xpReward": 10, "category": "garden",
	}, cookies)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("create chore = %d: %s", rec.Code, rec.Body.String())
	}
	waitForData(t, h, cookies, "new chore", func(d dataPayload) bool {
		return len(d.Chores) == 3 && d.Chores[0].Title == "Water plants"
	})

	// Validation failures never become writes.
	rec = doJSON(t, h, http.MethodPost, "/api/chores", map[string]any{"title": "", "xpReward": 10}, cookies)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty title = %d, want 400", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/api/chores/nope/complete", nil, cookies)
	if rec.Code != http.StatusNotFound {
		t.Errorf("complete missing chore = %d, want 404", rec.Code)
	}

	// Logout invalidates the cookie even though it has not expired.
	if rec := doJSON(t, h, http.MethodPost, "/api/logout", nil, cookies); rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/data", nil, cookies); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/data after logout = %d, want 401", rec.Code)
	}
}

func TestLoginFlow(t *testing.T) {
	h := setupTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/register", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "hunter2",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if rec := doJSON(t, h, http.MethodPost, "/api/logout", nil, cookies); rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/login", map[string]string{
		"email": "alice@example.com", "password": "hunter2",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
	cookies = rec.Result().Cookies()

	waitForData(t, h, cookies, "profile after login", func(d dataPayload) bool {
		return !d.Loading && d.User != nil
	})
}

func TestHealth(t *testing.T) {
	h := setupTestServer(t)
	rec := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}
