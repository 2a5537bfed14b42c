package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkpress/apiserver/config"
	"github.com/inkpress/apiserver/internal/handlers"
	"github.com/inkpress/apiserver/internal/mq"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	backend    *store.Backend
	objects    *storage.Storage
	broker     *mq.MQ
	events     *mq.EventPublisher
}

// Services groups the use-case layer built over one store backend.
type Services struct {
	Users    *services.UserService
	Authors  *services.AuthorService
	Novels   *services.NovelService
	Chapters *services.ChapterService
	Comments *services.CommentService
	Posts    *services.PostService
	Media    *services.MediaService
}

// NewServices opens every collection on backend and builds the services.
// objects and events may be nil.
func NewServices(backend *store.Backend, objects services.ObjectStore, events services.EventPublisher) (*Services, error) {
	users, err := store.Open[types.User](backend, "users")
	if err != nil {
		return nil, err
	}
	authors, err := store.Open[types.Author](backend, "authors")
	if err != nil {
		return nil, err
	}
	novels, err := store.Open[types.Novel](backend, "novels")
	if err != nil {
		return nil, err
	}
	chapters, err := store.Open[types.Chapter](backend, "chapters")
	if err != nil {
		return nil, err
	}
	comments, err := store.Open[types.Comment](backend, "comments")
	if err != nil {
		return nil, err
	}
	posts, err := store.Open[types.Post](backend, "posts")
	if err != nil {
		return nil, err
	}

	authorService := services.NewAuthorService(authors, novels, events)
	return &Services{
		Users:    services.NewUserService(users, events),
		Authors:  authorService,
		Novels:   services.NewNovelService(novels, authorService, events),
		Chapters: services.NewChapterService(chapters, novels, events),
		Comments: services.NewCommentService(comments, novels, posts, events),
		Posts:    services.NewPostService(posts, events),
		Media:    services.NewMediaService(objects),
	}, nil
}

// New connects the configured backends, bootstraps the admin account, links
// legacy novel authors and builds the router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := store.OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s := &Server{backend: backend}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	s.objects = objects
	var objectStore services.ObjectStore
	if objects != nil {
		objectStore = objects
	}

	broker, err := mq.Connect(ctx, cfg.MQ)
	if err != nil {
		s.close()
		return nil, err
	}
	s.broker = broker
	var publisher services.EventPublisher
	if broker != nil {
		s.events = mq.NewEventPublisher(broker, cfg.MQ.Channel, slog.Default())
		publisher = s.events
	}

	svc, err := NewServices(backend, objectStore, publisher)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open collections: %w", err)
	}

	if err := bootstrap(ctx, cfg, svc); err != nil {
		s.close()
		return nil, err
	}

	s.router = NewRouter(cfg, svc)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func bootstrap(ctx context.Context, cfg config.Config, svc *Services) error {
	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		created, err := svc.Users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminEmail)
		if err != nil {
			return err
		}
		if created {
			slog.InfoContext(ctx, "created admin account", "username", cfg.Auth.AdminUsername)
		}
	}

	linked, err := svc.Authors.LinkLegacyNovels(ctx)
	if err != nil {
		return fmt.Errorf("link legacy authors: %w", err)
	}
	if linked > 0 {
		slog.InfoContext(ctx, "linked legacy novel authors", "novels", linked)
	}
	return nil
}

// NewRouter builds the HTTP routes over svc.
func NewRouter(cfg config.Config, svc *Services) *chi.Mux {
	tokens := handlers.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	auth := handlers.NewAuthenticator(svc.Users, tokens)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, auth)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, svc.Users, auth)
		})
		r.Route("/authors", func(r chi.Router) {
			handlers.AuthorRouter(r, svc.Authors, svc.Media, auth)
		})
		r.Route("/novels", func(r chi.Router) {
			handlers.NovelRouter(r, svc.Novels, svc.Chapters, svc.Comments, svc.Media, auth)
		})
		r.Route("/posts", func(r chi.Router) {
			handlers.PostRouter(r, svc.Posts, svc.Comments, svc.Media, auth)
		})
		r.Route("/comments", func(r chi.Router) {
			handlers.CommentRouter(r, svc.Comments, auth)
		})
		r.Route("/files", func(r chi.Router) {
			handlers.FileRouter(r, svc.Media)
		})
		if cfg.Upstream.BaseURL != "" {
			proxy, err := handlers.NewUpstreamProxy(cfg.Upstream.BaseURL, cfg.Upstream.Timeout)
			if err != nil {
				slog.Warn("upstream forwarding disabled", "base_url", cfg.Upstream.BaseURL, "err", err)
			} else {
				r.Handle("/upstream/*", proxy)
			}
		}
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.close()
	return err
}

// Shutdown closes the listener and releases every backend.
func (s *Server) Shutdown() error {
	err := s.httpServer.Close()
	s.close()
	return err
}

func (s *Server) close() {
	if s.events != nil {
		s.events.Wait()
	}
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			slog.Warn("close mq", "err", err)
		}
		s.broker = nil
	}
	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			slog.Warn("close object storage", "err", err)
		}
		s.objects = nil
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			slog.Warn("close store", "err", err)
		}
		s.backend = nil
	}
}
