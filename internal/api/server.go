package api

import (
	"fileshare/internal/config"
	"fileshare/internal/database"
	"fileshare/internal/storage"
	"fileshare/internal/websocket"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	config  *config.Config
	store   *database.Store
	storage storage.Storage
	wsHub   *websocket.Hub
	logger  *slog.Logger
}

func NewServer(cfg *config.Config, store *database.Store, storage storage.Storage, wsHub *websocket.Hub, logger *slog.Logger) *Server {
	return &Server{
		config:  cfg,
		store:   store,
		storage: storage,
		wsHub:   wsHub,
		logger:  logger,
	}
}

// Routes builds the full HTTP handler, including docs, metrics and websocket
// endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Get("/health", s.HealthCheckHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.ServeWsHandler)

	r.Post("/register/", s.RegisterHandler)
	r.Post("/login/", s.LoginHandler)
	r.Post("/token/refresh/", s.RefreshTokenHandler)
	r.Get("/autocomplete/users/", s.AutocompleteUsersHandler)
	r.Get("/media/avatars/{key}", s.AvatarHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Post("/logout/", s.LogoutHandler)
		r.Get("/home/", s.HomeHandler)
		r.Get("/profile/", s.ProfileHandler)
		r.Put("/profile/edit/", s.EditProfileHandler)

		r.Get("/user/files/", s.ListFilesHandler)
		r.Post("/user/files/", s.UploadFileHandler)
		r.Get("/user/files/shared/", s.ListSharedWithMeHandler)
		r.Get("/user/files/outgoing/", s.ListOutgoingSharesHandler)
		r.Get("/user/files/{fileId}/", s.GetFileHandler)
		r.Delete("/user/files/{fileId}/", s.DeleteFileHandler)
		r.Get("/user/files/{fileId}/download/", s.DownloadFileHandler)
		r.Post("/user/files/share/{fileId}/", s.ShareFileHandler)

		r.Get("/events/", s.GetEventsHandler)
		r.Get("/sessions/", s.ListSessionsHandler)
		r.Post("/sessions/terminate_all/", s.TerminateAllSessionsHandler)
		r.Delete("/sessions/{sessionId}/", s.DeleteSessionHandler)
	})

	return r
}
