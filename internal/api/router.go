package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/discordin/internal/api/handlers"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/logger"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/isdelr/discordin/internal/websocket"
)

// Dependencies gathers what the handlers need.
type Dependencies struct {
	DB             *sql.DB
	Hub            *websocket.Hub
	Sessions       *auth.SessionManager
	Renderer       *web.Renderer
	Users          services.UserServiceProvider
	Profiles       services.ProfileServiceProvider
	Events         services.EventServiceProvider
	Bamboos        services.BambooServiceProvider
	Messages       services.MessageServiceProvider
	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(deps.Sessions.Middleware)

	// Initialize handlers
	pageHandler := handlers.NewPageHandler(deps.Renderer, deps.SecureCookies)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Sessions, deps.Renderer)
	profileHandler := handlers.NewProfileHandler(deps.Profiles, deps.Sessions, deps.Renderer)
	bambooHandler := handlers.NewBambooHandler(deps.Bamboos, deps.Messages, deps.Sessions, deps.Renderer)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Bamboos, deps.Messages, deps.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	r.Get("/health", healthHandler.Check)

	// Pages
	r.Get("/", pageHandler.Index)
	r.Get("/welcome", pageHandler.Welcome)
	r.Get("/accept_cookies", pageHandler.AcceptCookies)
	r.Get("/login", userHandler.LoginPage)
	r.Post("/login", userHandler.Login)
	r.Get("/register", userHandler.RegisterPage)
	r.Post("/register", userHandler.Register)
	r.Get("/logout", userHandler.Logout)
	r.Get("/users/{pseudo}", userHandler.Show)

	// Pages for logged in members
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)
		r.Get("/profile/edit", profileHandler.Edit)
		r.Post("/profile/edit", profileHandler.Save)
		r.Post("/users/{pseudo}/friend", userHandler.AddFriend)
		r.Post("/users/{pseudo}/unfriend", userHandler.RemoveFriend)
		r.Get("/account", userHandler.AccountPage)
		r.Post("/account", userHandler.UpdateAccount)

		r.Route("/bamboos", func(r chi.Router) {
			r.Get("/", bambooHandler.List)
			r.Post("/", bambooHandler.Create)
			r.Get("/{id}", bambooHandler.Show)
			r.Post("/{id}/join", bambooHandler.Join)
			r.Post("/{id}/leave", bambooHandler.Leave)
			r.Post("/{id}/rename", bambooHandler.Rename)
			r.Post("/{id}/branches", bambooHandler.CreateBranch)
		})
		r.Get("/branches/{id}", bambooHandler.ShowBranch)
		r.Post("/branches/{id}/messages", bambooHandler.PostMessage)
		r.Post("/messages/{id}/edit", bambooHandler.EditMessage)
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.AllowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)
		r.Get("/ws/branches/{id}", wsHandler.ServeBranch)

		r.Get("/events", eventHandler.GetRecent)
		r.Get("/users/{pseudo}", userHandler.Get)
		r.Get("/branches/{id}/messages", bambooHandler.GetMessages)
	})

	return r
}
