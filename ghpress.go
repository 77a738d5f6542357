// Package ghpress is a headless blog backend that uses a GitHub repository
// as its versioned content store. Posts are Markdown files with YAML front
// matter committed to a fixed branch; the JSON API exposes CRUD on posts
// and images behind stateless token auth, with optimistic concurrency via
// the files' content SHAs and webhook-driven cache invalidation.
package ghpress

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ghpress/githubfs"
)

// App is the central ghpress application. It wires together the file
// store, content repository, cache, auth guard and HTTP boundary.
type App struct {
	Config Config
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Guard  *Guard

	fs           FileStore
	log          *slog.Logger
	loginLimiter *LoginLimiter
	customRoutes []func(*App)
}

// New creates a ghpress App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		log:    slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start validates configuration, initializes the store, cache, guard and
// middleware, and starts the server.
func (a *App) Start() error {
	if err := a.init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) init() error {
	if err := a.Config.validate(); err != nil {
		return err
	}

	if a.fs == nil {
		a.fs = githubfs.New(
			a.Config.GitHubOwner,
			a.Config.GitHubRepo,
			a.Config.GitHubBranch,
			a.Config.GitHubToken,
			githubfs.WithLogger(a.log),
		)
	}

	a.Store = NewStore(a.fs, a.log)
	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL, a.log)
	a.Guard = NewGuard(a.Config.JWTSecret, a.Config.AdminUsername, a.Config.AdminPassword, a.Config.TokenTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.WebhookSecret == "" {
		a.log.Warn("webhook secret not configured, push webhooks will be rejected")
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	api := e.Group("/api")

	// Public reads
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/:slug", a.handleGetPost)
	api.GET("/tags", a.handleListTags)
	api.GET("/health", a.handleHealth)

	// Mutations, gated by the guard
	api.POST("/posts", a.handleCreatePost, a.requireAuth)
	api.PUT("/posts/:slug", a.handleUpdatePost, a.requireAuth)
	api.DELETE("/posts/:slug", a.handleDeletePost, a.requireAuth)
	api.POST("/images", a.handleUploadImage, a.requireAuth)

	// Auth
	api.POST("/auth/login", a.handleLogin)
	api.POST("/auth/logout", a.handleLogout)
	api.GET("/auth/me", a.handleWhoami)

	// Repository change notifications
	api.POST("/webhook/github", a.handleWebhook)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	return a.Echo.Close()
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("ghpress: required environment variable %s is not set", key)
	}
	return v
}
