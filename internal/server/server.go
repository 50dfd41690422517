package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/newsforum/backend/internal/config"
	"github.com/emilythestrangee/newsforum/backend/internal/database"
	"github.com/emilythestrangee/newsforum/backend/internal/forum"
	"github.com/emilythestrangee/newsforum/backend/internal/handlers"
	"github.com/emilythestrangee/newsforum/backend/internal/identity"
	"github.com/emilythestrangee/newsforum/backend/internal/middleware"
	"github.com/emilythestrangee/newsforum/backend/internal/store"
)

type Server struct {
	cfg      config.Config
	store    store.Store
	verifier identity.Verifier
	handler  *handlers.Handler
}

// New wires the route layer over an already opened store and verifier.
func New(cfg config.Config, st store.Store, verifier identity.Verifier) *Server {
	tally := forum.NewTally(st, forum.TallyOptions{
		Strategy:       forum.Strategy(cfg.Votes.Strategy),
		MaxAttempts:    cfg.Votes.MaxAttempts,
		InitialBackoff: cfg.Votes.InitialBackoff,
		MaxBackoff:     cfg.Votes.MaxBackoff,
	})
	svc := forum.NewService(st, st, tally)

	return &Server{
		cfg:      cfg,
		store:    st,
		verifier: verifier,
		handler:  handlers.NewHandler(svc, st),
	}
}

// NewServer creates and configures a new server. The returned store must be
// closed by the caller once the server has shut down.
func NewServer(cfg config.Config) (*http.Server, store.Store, error) {
	switch cfg.Votes.Strategy {
	case config.VoteStrategyAtomic, config.VoteStrategyOptimistic:
	default:
		return nil, nil, fmt.Errorf("unsupported vote strategy %q", cfg.Votes.Strategy)
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	newServer := New(cfg, st, verifier)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      newServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s (store=%s, auth=%s, votes=%s)\n",
		cfg.Port, cfg.StoreDriver, cfg.Auth.Mode, cfg.Votes.Strategy)

	return server, st, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Println("⚠️  Using in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	case config.StoreDriverPostgres:
		db, err := database.Open(database.Options{URL: cfg.DatabaseURL, AutoMigrate: cfg.AutoMigrate})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return store.NewPostgres(db, cfg.StoreTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func newVerifier(cfg config.AuthConfig) (identity.Verifier, error) {
	switch cfg.Mode {
	case config.AuthModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("AUTH_MODE=jwt requires SUPABASE_JWT_SECRET")
		}
		return identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTAudience), nil
	case config.AuthModeRemote:
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, fmt.Errorf("AUTH_MODE=remote requires SUPABASE_URL and SUPABASE_KEY")
		}
		return identity.NewRemoteVerifier(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(corsConfig(s.cfg.CORSOrigins)))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		stats := s.store.Health(c.Request.Context())
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})

	// News routes (public reads)
	r.GET("/news", s.handler.News.GetNews)
	r.GET("/news/:id", s.handler.News.GetNewsItem)
	r.GET("/categories", s.handler.News.GetCategories)

	// Post routes (public reads)
	r.GET("/posts", s.handler.Post.GetPosts)
	r.GET("/posts/:id", s.handler.Post.GetPost)

	// Comment routes (public reads)
	r.GET("/posts/:id/comments", s.handler.Comment.GetComments)

	// Protected routes (authentication required)
	protected := r.Group("")
	protected.Use(middleware.AuthMiddleware(s.verifier))
	{
		protected.POST("/posts", s.handler.Post.CreatePost)
		protected.DELETE("/posts/:id", s.handler.Post.DeletePost)
		protected.POST("/posts/:id/vote", s.handler.Post.VotePost)

		protected.POST("/comments", s.handler.Comment.CreateComment)
	}

	return r
}

// corsConfig treats a "*" entry as allow-all. Credentials are only allowed
// for an explicit origin list.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
