package ghpress

import (
	"fmt"
	"time"
)

const minJWTSecretLen = 32

// Config holds all configuration for a ghpress instance.
type Config struct {
	Addr string // Listen address (default ":3000")

	GitHubOwner  string // Required: repository owner
	GitHubRepo   string // Required: repository name
	GitHubBranch string // Content branch (default "main")
	GitHubToken  string // Required: token with contents read/write

	AdminUsername string // Required: admin login
	AdminPassword string // Required: admin password
	JWTSecret     string // Required: token signing secret, >= 32 chars
	WebhookSecret string // Shared secret for push webhooks; empty disables them

	TokenTTL     time.Duration // Auth token lifetime (default 24h)
	PostCacheTTL time.Duration // Post list cache TTL (default 5min)
	CookieSecure bool          // Set true behind HTTPS
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.GitHubBranch == "" {
		c.GitHubBranch = "main"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = defaultTokenTTL
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

func (c *Config) validate() error {
	if c.GitHubOwner == "" || c.GitHubRepo == "" {
		return fmt.Errorf("ghpress: GitHubOwner and GitHubRepo are required")
	}
	if c.GitHubToken == "" {
		return fmt.Errorf("ghpress: GitHubToken is required")
	}
	if c.AdminUsername == "" || c.AdminPassword == "" {
		return fmt.Errorf("ghpress: AdminUsername and AdminPassword are required")
	}
	if len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("ghpress: JWTSecret must be at least %d characters", minJWTSecretLen)
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithFileStore replaces the GitHub-backed file store, mainly for tests.
func WithFileStore(fs FileStore) Option {
	return func(a *App) {
		a.fs = fs
	}
}
