package ghpress

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/ghpress/githubfs"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c echo.Context, code int, data any) error {
	return c.JSON(code, apiResponse{Success: true, Data: data})
}

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, apiResponse{Success: false, Error: message})
}

// apiError maps domain errors to the uniform failure envelope. Unknown
// errors are logged and returned as an opaque 500.
func apiError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fail(c, http.StatusNotFound, "not found")
	case errors.Is(err, ErrAlreadyExists):
		return fail(c, http.StatusConflict, "a post with this slug already exists")
	case errors.Is(err, ErrConflict):
		return fail(c, http.StatusConflict, "the post changed since it was read; re-fetch and resubmit")
	case errors.Is(err, ErrRateLimited):
		return fail(c, http.StatusServiceUnavailable, "content store rate limit exhausted; retry after the quota resets")
	case errors.Is(err, githubfs.ErrTimeout):
		return fail(c, http.StatusGatewayTimeout, "content store timed out; the request may be retried")
	default:
		c.Logger().Errorf("unhandled error: %v", err)
		return fail(c, http.StatusInternalServerError, "internal error")
	}
}

func (a *App) handleListPosts(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil || page < 1 {
		return fail(c, http.StatusBadRequest, "page must be a positive integer")
	}
	limit, err := queryInt(c, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return fail(c, http.StatusBadRequest, "limit must be between 1 and 100")
	}
	tag := c.QueryParam("tag")
	status := c.QueryParam("status")
	if status == "" {
		status = "published"
	}

	ctx := c.Request().Context()
	var posts []Post
	switch status {
	case "published":
		posts, err = a.Cache.ListPosts(ctx, tag)
	case "all", "draft":
		posts, _, err = a.Store.List(ctx, ListOptions{IncludeDrafts: true, Tag: tag})
		if status == "draft" {
			drafts := posts[:0]
			for _, p := range posts {
				if p.Draft {
					drafts = append(drafts, p)
				}
			}
			posts = drafts
		}
	default:
		return fail(c, http.StatusBadRequest, "status must be one of draft, published, all")
	}
	if err != nil {
		return apiError(c, err)
	}

	total := len(posts)
	offset := (page - 1) * limit
	switch {
	case offset >= total:
		posts = []Post{}
	case offset+limit > total:
		posts = posts[offset:]
	default:
		posts = posts[offset : offset+limit]
	}

	return ok(c, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": Paginate(total, page, limit),
	})
}

func (a *App) handleGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return apiError(c, err)
	}
	return ok(c, http.StatusOK, post)
}

func (a *App) handleListTags(c echo.Context) error {
	tags, err := a.Cache.ListTags(c.Request().Context())
	if err != nil {
		return apiError(c, err)
	}
	return ok(c, http.StatusOK, map[string]any{"tags": tags})
}

// handleHealth probes the content store and reports rather than fails:
// a broken store shows up in the body, not as a 5xx.
func (a *App) handleHealth(c echo.Context) error {
	data := map[string]any{
		"repo":             a.Config.GitHubOwner + "/" + a.Config.GitHubRepo,
		"branch":           a.Config.GitHubBranch,
		"webhookConfigured": a.Config.WebhookSecret != "",
	}
	limit, err := a.Store.CheckStore(c.Request().Context())
	if err != nil {
		data["store"] = "unreachable"
		data["storeError"] = err.Error()
	} else {
		data["store"] = "ok"
		data["rateLimit"] = limit
	}
	return ok(c, http.StatusOK, data)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
