package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/printables-app/server/config"
	"github.com/printables-app/server/internal/db"
	"github.com/printables-app/server/internal/handlers"
	"github.com/printables-app/server/internal/mail"
	"github.com/printables-app/server/internal/mq"
	"github.com/printables-app/server/internal/services"
	"github.com/printables-app/server/internal/session"
	"github.com/printables-app/server/internal/storage"
	"github.com/printables-app/server/internal/store"
	"github.com/printables-app/server/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
}

// New constructs a Server with all collaborators wired explicitly.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokenSecret := strings.TrimSpace(cfg.Token.Secret)
	if tokenSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("TOKEN_SECRET is required")
	}
	tokens := token.NewService(tokenSecret)

	fileStore, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	events, err := newEvents(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	logRepo := store.NewLogRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)

	sessions := session.NewManager(
		sessionRepo,
		cfg.Session.CookieName,
		time.Duration(cfg.Session.TTLHours)*time.Hour,
		cfg.Session.Secure,
	)

	userService := services.NewUserService(
		userRepo,
		fileStore,
		tokens,
		newMailer(cfg.Mail),
		strings.TrimRight(cfg.BaseURL, "/"),
	)
	fileService := services.NewFileService(fileStore, logRepo, events)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, userService, sessions)
	handlers.FilesRouter(router, fileService, sessions)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newFileStore(ctx context.Context, cfg config.StorageConfig) (storage.FileStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return storage.NewLocal(cfg.UploadsDir), nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newMailer(cfg config.MailConfig) mail.Mailer {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return mail.LogMailer{}
	}
	return mail.NewSMTPMailer(cfg)
}

func newEvents(ctx context.Context, cfg config.EventsConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
