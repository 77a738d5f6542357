// ghpress server binary. All configuration comes from environment
// variables; required ones abort startup when missing.
package main

import (
	"log"
	"strconv"

	"github.com/eringen/ghpress"
)

func main() {
	secure, _ := strconv.ParseBool(ghpress.EnvOr("COOKIE_SECURE", "false"))

	app := ghpress.New(ghpress.Config{
		Addr:          ghpress.EnvOr("ADDR", ":3000"),
		GitHubOwner:   ghpress.MustEnv("GITHUB_OWNER"),
		GitHubRepo:    ghpress.MustEnv("GITHUB_REPO"),
		GitHubBranch:  ghpress.EnvOr("GITHUB_BRANCH", "main"),
		GitHubToken:   ghpress.MustEnv("GITHUB_TOKEN"),
		AdminUsername: ghpress.MustEnv("ADMIN_USERNAME"),
		AdminPassword: ghpress.MustEnv("ADMIN_PASSWORD"),
		JWTSecret:     ghpress.MustEnv("JWT_SECRET"),
		WebhookSecret: ghpress.EnvOr("WEBHOOK_SECRET", ""),
		CookieSecure:  secure,
	})
	defer app.Close()

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
