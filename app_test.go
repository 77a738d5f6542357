package ghpress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *fakeFS) {
	t.Helper()
	fs := newFakeFS()
	app := New(Config{
		GitHubOwner:   "octo",
		GitHubRepo:    "blog",
		GitHubToken:   "tok",
		AdminUsername: "admin",
		AdminPassword: "hunter2-but-long",
		JWTSecret:     testSecret,
		WebhookSecret: "whsec",
	}, WithFileStore(fs))
	require.NoError(t, app.init())
	return app, fs
}

func doJSON(app *App, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		encoded, _ := json.Marshal(body)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func loginToken(t *testing.T, app *App) string {
	t.Helper()
	rec := doJSON(app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "hunter2-but-long"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]any)
	return data["token"].(string)
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "hunter2-but-long"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == authCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "expected auth cookie to be set")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	// Token works via cookie on whoami.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	whoami := httptest.NewRecorder()
	app.Echo.ServeHTTP(whoami, req)
	require.Equal(t, http.StatusOK, whoami.Code)
	resp := decodeEnvelope(t, whoami)
	assert.Equal(t, "admin", resp.Data.(map[string]any)["username"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(app, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "admin", "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestMutationsRequireAuth(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(app, http.MethodPost, "/api/posts",
		PostInput{Title: "X", Date: "2025-01-15", Content: "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(app, http.MethodDelete, "/api/posts/20250115-x", nil,
		map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateUpdateDeleteOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + loginToken(t, app)}

	rec := doJSON(app, http.MethodPost, "/api/posts",
		PostInput{Title: "Hello World", Date: "2025-01-15", Content: "body"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeEnvelope(t, rec)
	post := created.Data.(map[string]any)["post"].(map[string]any)
	assert.Equal(t, "20250115-hello-world", post["slug"])

	rec = doJSON(app, http.MethodPut, "/api/posts/20250115-hello-world",
		PostInput{Title: "Hello World", Date: "2025-01-15", Content: "updated"}, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(app, http.MethodPost, "/api/posts",
		PostInput{Title: "Hello World", Date: "2025-01-15", Content: "again"}, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(app, http.MethodDelete, "/api/posts/20250115-hello-world", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(app, http.MethodGet, "/api/posts/20250115-hello-world", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpointPaginationAndValidation(t *testing.T) {
	app, _ := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + loginToken(t, app)}
	for i := 1; i <= 12; i++ {
		rec := doJSON(app, http.MethodPost, "/api/posts",
			PostInput{Title: fmt.Sprintf("Post %02d", i), Date: fmt.Sprintf("2025-01-%02d", i), Content: "x"}, auth)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(app, http.MethodGet, "/api/posts?page=2&limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	posts := data["posts"].([]any)
	require.Len(t, posts, 5)
	assert.Equal(t, "Post 07", posts[0].(map[string]any)["title"])
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrev"])

	for _, target := range []string{
		"/api/posts?page=0",
		"/api/posts?limit=0",
		"/api/posts?limit=101",
		"/api/posts?status=bogus",
	} {
		rec := doJSON(app, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestListHidesDraftsByDefault(t *testing.T) {
	app, _ := newTestApp(t)
	auth := map[string]string{"Authorization": "Bearer " + loginToken(t, app)}

	rec := doJSON(app, http.MethodPost, "/api/posts",
		PostInput{Title: "Draft", Date: "2025-01-02", Draft: true, Content: "x"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(app, http.MethodPost, "/api/posts",
		PostInput{Title: "Live", Date: "2025-01-01", Content: "x"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(app, http.MethodGet, "/api/posts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodeEnvelope(t, rec).Data.(map[string]any)["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "Live", posts[0].(map[string]any)["title"])

	rec = doJSON(app, http.MethodGet, "/api/posts?status=draft", nil, nil)
	posts = decodeEnvelope(t, rec).Data.(map[string]any)["posts"].([]any)
	require.Len(t, posts, 1)
	assert.Equal(t, "Draft", posts[0].(map[string]any)["title"])
}

func uploadRequest(t *testing.T, data []byte, filename string) (*http.Request, error) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	req := httptest.NewRequest(http.MethodPost, "/api/images", &body)
	req.Header.Set(echoHeaderContentType, writer.FormDataContentType())
	return req, nil
}

func TestUploadImagePNG(t *testing.T) {
	app, fs := newTestApp(t)
	token := loginToken(t, app)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 3))))

	req, err := uploadRequest(t, buf.Bytes(), "pixel.png")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, "image/png", data["type"])
	assert.Equal(t, float64(2), data["width"])
	assert.Equal(t, float64(3), data["height"])
	assert.True(t, strings.HasPrefix(data["path"].(string), "data/images/"), "path %v", data["path"])
	_, stored := fs.files[data["path"].(string)]
	assert.True(t, stored)
}

func TestUploadRejectsWrongTypeAndSize(t *testing.T) {
	app, fs := newTestApp(t)
	token := loginToken(t, app)

	// Not an image at all.
	req, err := uploadRequest(t, []byte("plain text pretending"), "notes.txt")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Over the 4.5MB cap: rejected before anything reaches the store.
	req, err = uploadRequest(t, make([]byte, maxImageBytes+1024), "huge.jpg")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Empty(t, fs.files)
}

func TestWebhookEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	payload := []byte(`{"ref":"refs/heads/main","commits":[{"modified":["data/blog/20250115-hello-world.mdx"]}]}`)

	// Bad signature is rejected on the raw bytes.
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", sign([]byte("other"), "whsec"))
	req.Header.Set("X-Github-Event", "push")
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Verified push on the content branch returns the purge set.
	req = httptest.NewRequest(http.MethodPost, "/api/webhook/github", bytes.NewReader(payload))
	req.Header.Set("X-Hub-Signature-256", sign(payload, "whsec"))
	req.Header.Set("X-Github-Event", "push")
	rec = httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	invalidate := data["invalidate"].([]any)
	assert.Contains(t, invalidate, "/blog/20250115-hello-world")
	assert.Contains(t, invalidate, "/blog")
	assert.Contains(t, invalidate, "/")

	// Unknown event types are acknowledged, not rejected.
	ping := []byte(`{"zen":"Keep it logically awesome."}`)
	req = httptest.NewRequest(http.MethodPost, "/api/webhook/github", bytes.NewReader(ping))
	req.Header.Set("X-Hub-Signature-256", sign(ping, "whsec"))
	req.Header.Set("X-Github-Event", "ping")
	rec = httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeEnvelope(t, rec).Data.(map[string]any)["ignored"])
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	rec := doJSON(app, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeEnvelope(t, rec).Data.(map[string]any)
	assert.Equal(t, "octo/blog", data["repo"])
	assert.Equal(t, "ok", data["store"])
}
