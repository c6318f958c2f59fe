package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/homequest/internal/handler"
	"github.com/dukerupert/homequest/internal/identity"
	"github.com/dukerupert/homequest/internal/middleware"
	"github.com/dukerupert/homequest/internal/push"
	"github.com/dukerupert/homequest/internal/sync"
	ws "github.com/dukerupert/homequest/internal/websocket"
)

type Server struct {
	hub      *ws.Hub
	provider identity.Provider
	secret   []byte
	authH    *handler.AuthHandler
	dataH    *handler.DataHandler
	choreH   *handler.ChoreHandler
	billH    *handler.BillHandler
	listH    *handler.ListHandler
	profileH *handler.ProfileHandler
	pushH    *handler.PushHandler
	logger   *slog.Logger
}

// New wires the HTTP surface on top of an already running synchronizer.
// pushSvc may be nil when VAPID keys are not configured; the push routes are
// simply not registered in that case.
func New(syncer *sync.Synchronizer, provider identity.Provider, hub *ws.Hub, pushSvc *push.Service, secret []byte, logger *slog.Logger) *Server {
	s := &Server{
		hub:      hub,
		provider: provider,
		secret:   secret,
		authH:    handler.NewAuthHandler(provider, secret, logger.With("component", "auth")),
		dataH:    handler.NewDataHandler(syncer),
		choreH:   handler.NewChoreHandler(syncer),
		billH:    handler.NewBillHandler(syncer),
		listH:    handler.NewListHandler(syncer),
		profileH: handler.NewProfileHandler(syncer),
		logger:   logger,
	}
	if pushSvc != nil {
		s.pushH = handler.NewPushHandler(pushSvc)
	}
	return s
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.authH.Register)
	outerMux.HandleFunc("POST /api/login", s.authH.Login)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes behind session auth
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.secret, s.provider)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Aggregate state
	mux.HandleFunc("GET /api/data", s.dataH.Get)
	mux.HandleFunc("DELETE /api/error", s.dataH.ClearError)
	mux.HandleFunc("POST /api/seed", s.dataH.Seed)

	// Chore routes
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("PATCH /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("POST /api/chores/{id}/complete", s.choreH.Complete)

	// Bill routes
	mux.HandleFunc("POST /api/bills", s.billH.Create)
	mux.HandleFunc("PATCH /api/bills/{id}", s.billH.Update)

	// Shared list routes
	mux.HandleFunc("POST /api/lists", s.listH.Create)
	mux.HandleFunc("PATCH /api/lists/{id}", s.listH.Update)

	// Profile + XP routes
	mux.HandleFunc("PATCH /api/profile", s.profileH.Update)
	mux.HandleFunc("POST /api/xp", s.profileH.AwardXP)

	// Push routes, only when VAPID keys are configured
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/key", s.pushH.Key)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	}

	// Live refresh notifications
	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
}
