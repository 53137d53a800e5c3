// Package server exposes the REST and websocket API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amoralabs/amora/internal/auth"
	"github.com/amoralabs/amora/internal/character"
	"github.com/amoralabs/amora/internal/chat"
	"github.com/amoralabs/amora/internal/memory"
	"github.com/amoralabs/amora/internal/repository"
	"github.com/amoralabs/amora/internal/subscription"
	"github.com/amoralabs/amora/internal/ws"
)

// Server bundles the services behind the HTTP surface.
type Server struct {
	auth          *auth.Service
	users         *repository.UserRepo
	characters    *character.Service
	chats         *chat.Service
	memories      *memory.Service
	subscriptions *subscription.Service
	gateway       *ws.Gateway
}

// New returns a Server.
func New(
	authService *auth.Service,
	users *repository.UserRepo,
	characters *character.Service,
	chats *chat.Service,
	memories *memory.Service,
	subscriptions *subscription.Service,
	gateway *ws.Gateway,
) *Server {
	return &Server{
		auth:          authService,
		users:         users,
		characters:    characters,
		chats:         chats,
		memories:      memories,
		subscriptions: subscriptions,
		gateway:       gateway,
	}
}

// Router builds the chi routing tree.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.gateway.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Get("/google", s.handleGoogleRedirect)
			r.Get("/google/callback", s.handleGoogleCallback)
			r.Get("/apple", s.handleAppleRedirect)
			r.Post("/apple/callback", s.handleAppleCallback)
			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)
				r.Get("/me", s.handleMe)
			})
		})

		r.Route("/characters", func(r chi.Router) {
			r.Get("/", s.handleListCharacters)
			r.Get("/{id}", s.handleGetCharacter)
			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)
				r.Post("/", s.handleCreateCharacter)
				r.Put("/{id}", s.handleUpdateCharacter)
				r.Delete("/{id}", s.handleDeleteCharacter)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", s.handleListChats)
				r.Post("/", s.handleCreateChat)
				r.Get("/{id}", s.handleGetChat)
				r.Delete("/{id}", s.handleDeleteChat)
				r.Post("/{id}/messages", s.handleSendMessage)
				r.Post("/{id}/response", s.handleChatResponse)
			})

			r.Route("/memory", func(r chi.Router) {
				r.Get("/summary", s.handleMemorySummary)
				r.Get("/relevant", s.handleRelevantMemories)
				r.Delete("/{id}", s.handleDeleteMemory)
			})

			r.Route("/subscription", func(r chi.Router) {
				r.Get("/", s.handleGetSubscription)
				r.Get("/limits", s.handleGetLimits)
				r.Post("/", s.handleCreateSubscription)
				r.Post("/cancel", s.handleCancelSubscription)
			})

			r.Put("/users/preferences", s.handleUpdatePreferences)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
