package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/homequest/internal/database"
	"github.com/dukerupert/homequest/internal/docstore"
	"github.com/dukerupert/homequest/internal/game"
	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/logging"
	"github.com/dukerupert/homequest/internal/model"
	"github.com/dukerupert/homequest/internal/profile"
	"github.com/dukerupert/homequest/internal/push"
	"github.com/dukerupert/homequest/internal/seed"
	"github.com/dukerupert/homequest/internal/server"
	"github.com/dukerupert/homequest/internal/sync"
	ws "github.com/dukerupert/homequest/internal/websocket"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "vapid" {
		pub, priv, err := push.GenerateVAPIDKeys()
		if err != nil {
			log.Fatalf("failed to generate VAPID keys: %v", err)
		}
		fmt.Printf("HOMEQUEST_VAPID_PUBLIC_KEY=%s\nHOMEQUEST_VAPID_PRIVATE_KEY=%s\n", pub, priv)
		return
	}

	port := os.Getenv("HOMEQUEST_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("HOMEQUEST_DB_PATH")
	if dbPath == "" {
		dbPath = "homequest.db"
	}

	secret := os.Getenv("HOMEQUEST_SESSION_SECRET")
	if secret == "" {
		log.Fatal("HOMEQUEST_SESSION_SECRET must be set")
	}

	logger := logging.Setup(os.Getenv("HOMEQUEST_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	store := docstore.NewSQLiteStore(db, logger.With("component", "docstore"))
	defer store.Close()

	provider := identity.NewSQLiteProvider(db, logger.With("component", "identity"))
	profiles := profile.NewManager(store, logger.With("component", "profile"))

	var pushSvc *push.Service
	pushCfg := push.Config{
		VAPIDPublicKey:  os.Getenv("HOMEQUEST_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("HOMEQUEST_VAPID_PRIVATE_KEY"),
	}
	if pushCfg.VAPIDPublicKey != "" && pushCfg.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(pushCfg, store, logger.With("component", "push"))
	}

	var notifier game.Notifier
	if pushSvc != nil {
		notifier = pushSvc
	}
	engine := game.NewEngine(store, notifier, logger.With("component", "game"))
	seeder := seed.NewSeeder(store, logger.With("component", "seed"))

	syncer := sync.New(store, provider, profiles, engine, seeder, sync.Config{}, logger.With("component", "sync"))

	hub := ws.NewHub(logger.With("component", "websocket"))
	syncer.SetOnChange(func(entity string) {
		hub.Broadcast(ws.NewRefresh(entity))
	})

	srv := server.New(syncer, provider, hub, pushSvc, []byte(secret), logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncer.Run(ctx)
	})

	// Composite indexes are built in the background so that ordered
	// subscriptions on a fresh database go through their fallback path until
	// provisioning completes.
	g.Go(func() error {
		if err := store.ProvisionIndexes(ctx, model.TrackedCollections...); err != nil {
			logger.Warn("index provisioning failed", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("homequest running", "addr", "http://localhost:"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
