// Package server wires chatter's HTTP surface: auth endpoints, the room and
// user REST API, file storage and the realtime websocket.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mfjones/chatter/internal/auth"
	"github.com/mfjones/chatter/internal/db"
	"github.com/mfjones/chatter/internal/hub"
	"github.com/mfjones/chatter/internal/log"
	"github.com/mfjones/chatter/internal/storage"
	"github.com/mfjones/chatter/internal/store"
)

type Server struct {
	db     *db.DB
	router *chi.Mux

	authService *auth.Service

	users     *store.UserStore
	rooms     *store.RoomStore
	members   *store.MemberStore
	reactions *store.ReactionStore

	hub             *hub.Hub
	realtimeService *hub.Service

	storageHandler *storage.Handler

	httpServer *http.Server
}

// Config holds server configuration.
type Config struct {
	JWTSecret string
	Storage   storage.Config
}

func New(database *db.DB, cfg Config) (*Server, error) {
	users := store.NewUserStore(database)
	authService := auth.NewService(users, cfg.JWTSecret)

	h := hub.NewHub(database)

	s := &Server{
		db:              database,
		router:          chi.NewRouter(),
		authService:     authService,
		users:           users,
		rooms:           store.NewRoomStore(database),
		members:         store.NewMemberStore(database),
		reactions:       store.NewReactionStore(database),
		hub:             h,
		realtimeService: hub.NewService(h, authService),
	}

	storageService, err := storage.NewService(context.Background(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.storageHandler = storage.NewHandler(storageService)

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router.Get("/health", s.handleHealth)

	// Auth routes
	s.router.Route("/auth/v1", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/token", s.handleToken)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/user", s.handleGetUser)
			r.Put("/user", s.handleUpdateUser)
		})
	})

	// Application API
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/rooms", s.handleListRooms)
		r.Post("/rooms", s.handleCreateRoom)
		r.Post("/rooms/direct", s.handleCreateDirectRoom)
		r.Get("/rooms/{roomID}", s.handleGetRoom)
		r.Put("/rooms/{roomID}", s.handleUpdateRoom)
		r.Delete("/rooms/{roomID}", s.handleDeleteRoom)
		r.Post("/rooms/{roomID}/join", s.handleJoinRoom)
		r.Get("/rooms/{roomID}/members", s.handleListMembers)

		r.Get("/users", s.handleListUsers)
		r.Put("/users/status", s.handleUpdateStatus)

		r.Get("/messages/{messageID}/reactions", s.handleListReactions)
	})

	// Storage routes
	s.router.Route("/storage/v1", func(r chi.Router) {
		s.storageHandler.RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/upload", s.storageHandler.HandleUpload)
		})
	})

	// Realtime websocket
	s.router.Get("/realtime/v1/websocket", s.realtimeService.HandleWebSocket)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}

// Hub returns the realtime hub.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
