package ghpress

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (a *App) handleCreatePost(c echo.Context) error {
	var input PostInput
	if err := c.Bind(&input); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request body")
	}
	post, err := a.Store.CreatePost(c.Request().Context(), input)
	if err != nil {
		return apiError(c, err)
	}
	a.Cache.Invalidate()
	return ok(c, http.StatusCreated, map[string]any{
		"post":   post,
		"commit": post.GitHub.LastCommit,
	})
}

func (a *App) handleUpdatePost(c echo.Context) error {
	var input PostInput
	if err := c.Bind(&input); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request body")
	}
	post, err := a.Store.UpdatePost(c.Request().Context(), c.Param("slug"), input)
	if err != nil {
		return apiError(c, err)
	}
	a.Cache.Invalidate()
	return ok(c, http.StatusOK, map[string]any{
		"post":   post,
		"commit": post.GitHub.LastCommit,
	})
}

func (a *App) handleDeletePost(c echo.Context) error {
	commit, err := a.Store.DeletePost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return apiError(c, err)
	}
	a.Cache.Invalidate()
	return ok(c, http.StatusOK, map[string]any{"commit": commit})
}

func (a *App) handleUploadImage(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fail(c, http.StatusBadRequest, "no image file provided")
	}
	// Size is rejected from the multipart header, before the file is read
	// and before any store call.
	if file.Size > maxImageBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "image exceeds the 4.5MB limit")
	}

	src, err := file.Open()
	if err != nil {
		return apiError(c, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return apiError(c, err)
	}

	info, err := validateImage(data)
	if err != nil {
		return apiError(c, err)
	}

	up, err := a.Store.UploadImage(c.Request().Context(), data, file.Filename)
	if err != nil {
		return apiError(c, err)
	}
	return ok(c, http.StatusCreated, map[string]any{
		"url":      up.URL,
		"path":     up.Path,
		"filename": up.Filename,
		"size":     len(data),
		"type":     info.MIME,
		"width":    info.Width,
		"height":   info.Height,
		"commit":   up.Commit,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return fail(c, http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request body")
	}
	if !a.Guard.CheckCredentials(req.Username, req.Password) {
		a.loginLimiter.Record(c.RealIP())
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	token, exp, err := a.Guard.IssueToken(req.Username)
	if err != nil {
		return apiError(c, err)
	}
	setAuthCookie(c, token, exp, a.Config.CookieSecure)
	return ok(c, http.StatusOK, map[string]any{
		"token":     token,
		"username":  req.Username,
		"expiresAt": exp.UTC().Format(time.RFC3339),
	})
}

func (a *App) handleLogout(c echo.Context) error {
	clearAuthCookie(c, a.Config.CookieSecure)
	return ok(c, http.StatusOK, map[string]any{"loggedOut": true})
}

func (a *App) handleWhoami(c echo.Context) error {
	token := tokenFromRequest(c)
	if token == "" {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	claims, err := a.Guard.VerifyToken(token)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized")
	}
	return ok(c, http.StatusOK, map[string]any{
		"username":        claims.Username,
		"isAuthenticated": true,
		"expiresAt":       claims.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleWebhook verifies the signature over the raw body bytes, then maps
// push events on the content branch to cache invalidation. Event types it
// does not understand are acknowledged and ignored.
func (a *App) handleWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return fail(c, http.StatusBadRequest, "unreadable body")
	}
	if !VerifySignature(body, c.Request().Header.Get("X-Hub-Signature-256"), a.Config.WebhookSecret) {
		return fail(c, http.StatusUnauthorized, "invalid signature")
	}

	if event := c.Request().Header.Get("X-Github-Event"); event != "push" {
		return ok(c, http.StatusOK, map[string]any{"ignored": true, "event": event})
	}

	var push PushEvent
	if err := json.Unmarshal(body, &push); err != nil {
		return fail(c, http.StatusBadRequest, "malformed push payload")
	}
	if !push.TargetsBranch(a.Config.GitHubBranch) {
		return ok(c, http.StatusOK, map[string]any{"ignored": true, "ref": push.Ref})
	}

	changed := push.ChangedContentPaths()
	a.Cache.ApplyChanges(changed)
	return ok(c, http.StatusOK, map[string]any{
		"changed":    changed,
		"invalidate": InvalidationTargets(changed),
	})
}
