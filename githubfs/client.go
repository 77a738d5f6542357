// Package githubfs treats one branch of a GitHub repository as a small
// path-addressed file store: get, create, update, delete and list files
// via the contents API. Every mutating call lands exactly one commit on
// the configured branch; update and delete are SHA-checked so concurrent
// modification surfaces as ErrConflict instead of a silent overwrite.
package githubfs

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultRawURL  = "https://raw.githubusercontent.com"
	defaultTimeout = 15 * time.Second
)

// Client is a stateless wrapper around the contents API for a single
// owner/repo/branch. It is safe for concurrent use.
type Client struct {
	owner  string
	repo   string
	branch string
	token  string

	base    string
	rawBase string
	httpc   *http.Client
	log     *slog.Logger
}

// Option configures additional Client behavior.
type Option func(*Client)

// WithBaseURL overrides the API base URL (used by tests and GHE setups).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = strings.TrimRight(u, "/") }
}

// WithRawBaseURL overrides the base URL used for public file URLs.
func WithRawBaseURL(u string) Option {
	return func(c *Client) { c.rawBase = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for the given repository and branch, authenticating
// with the given token.
func New(owner, repo, branch, token string, opts ...Option) *Client {
	c := &Client{
		owner:   owner,
		repo:    repo,
		branch:  branch,
		token:   token,
		base:    defaultBaseURL,
		rawBase: defaultRawURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Author identifies who made a commit.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit is the proof-of-write returned by every mutating operation. Its
// SHA is the new concurrency token for the touched path.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  Author    `json:"author"`
	Date    time.Time `json:"date"`
}

// File is the decoded content of a single file plus its version SHA.
type File struct {
	Path    string
	Content string
	SHA     string
	Size    int
}

// Entry is one row of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Size int    `json:"size"`
	Type string `json:"type"`
}

// Upload describes a stored binary: where it lives and how to reach it.
type Upload struct {
	URL      string
	Path     string
	Filename string
	Commit   Commit
}

// RateLimit reports the remaining core API quota.
type RateLimit struct {
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

type contentResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type commitResponse struct {
	Commit struct {
		SHA     string `json:"sha"`
		Message string `json:"message"`
		Author  struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Date  string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (r commitResponse) commit() Commit {
	date, _ := time.Parse(time.RFC3339, r.Commit.Author.Date)
	return Commit{
		SHA:     r.Commit.SHA,
		Message: r.Commit.Message,
		Author:  Author{Name: r.Commit.Author.Name, Email: r.Commit.Author.Email},
		Date:    date,
	}
}

// GetFile fetches and decodes a single file. The returned SHA is the
// precondition token for a later UpdateFile or DeleteFile.
func (c *Client) GetFile(ctx context.Context, filePath string) (File, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.contentsURL(filePath)+"?ref="+url.QueryEscape(c.branch), nil, &raw); err != nil {
		return File{}, err
	}
	if isJSONArray(raw) {
		return File{}, fmt.Errorf("%s: %w", filePath, ErrIsDirectory)
	}
	var cr contentResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return File{}, fmt.Errorf("githubfs: decode response for %s: %w", filePath, err)
	}
	if cr.Type == "dir" {
		return File{}, fmt.Errorf("%s: %w", filePath, ErrIsDirectory)
	}
	content := cr.Content
	if cr.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
		if err != nil {
			return File{}, fmt.Errorf("githubfs: decode content of %s: %w", filePath, err)
		}
		content = string(decoded)
	}
	return File{Path: cr.Path, Content: content, SHA: cr.SHA, Size: cr.Size}, nil
}

// CreateRequest describes a new file to commit.
type CreateRequest struct {
	Path    string
	Content string
	Message string
}

// CreateFile commits a new file. The store rejects a create on an existing
// path; that surfaces as ErrConflict.
func (c *Client) CreateFile(ctx context.Context, req CreateRequest) (Commit, error) {
	return c.putContents(ctx, req.Path, req.Message, []byte(req.Content), "")
}

// UpdateRequest describes a SHA-checked replacement of an existing file.
type UpdateRequest struct {
	Path    string
	Content string
	Message string
	SHA     string
}

// UpdateFile commits new content for an existing file. A stale SHA means a
// concurrent writer won; the caller must re-read and resubmit.
func (c *Client) UpdateFile(ctx context.Context, req UpdateRequest) (Commit, error) {
	return c.putContents(ctx, req.Path, req.Message, []byte(req.Content), req.SHA)
}

// DeleteFile removes a file in one commit. It reads the current SHA first,
// then issues a SHA-checked delete: two round trips, not atomic. A write
// landing between them fails the delete with ErrConflict, which is
// surfaced as-is.
func (c *Client) DeleteFile(ctx context.Context, filePath, message string) (Commit, error) {
	f, err := c.GetFile(ctx, filePath)
	if err != nil {
		return Commit{}, err
	}
	body := map[string]string{
		"message": message,
		"sha":     f.SHA,
		"branch":  c.branch,
	}
	var cr commitResponse
	if err := c.do(ctx, http.MethodDelete, c.contentsURL(filePath), body, &cr); err != nil {
		return Commit{}, err
	}
	return cr.commit(), nil
}

// ListFiles enumerates a directory, non-recursively.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]Entry, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, c.contentsURL(dir)+"?ref="+url.QueryEscape(c.branch), nil, &raw); err != nil {
		return nil, err
	}
	if !isJSONArray(raw) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotDirectory)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("githubfs: decode listing of %s: %w", dir, err)
	}
	return entries, nil
}

// UploadImage commits binary data under dir, prefixing the filename with a
// millisecond timestamp to avoid collisions, and returns the public URL
// derived from the resulting path.
func (c *Client) UploadImage(ctx context.Context, data []byte, filename, dir string) (Upload, error) {
	name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitizeFilename(filename))
	filePath := path.Join(dir, name)
	commit, err := c.putContents(ctx, filePath, "Upload image "+name, data, "")
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		URL:      c.rawBase + "/" + c.owner + "/" + c.repo + "/" + c.branch + "/" + filePath,
		Path:     filePath,
		Filename: name,
		Commit:   commit,
	}, nil
}

// GetRateLimit reports the remaining core API quota.
func (c *Client) GetRateLimit(ctx context.Context) (RateLimit, error) {
	var out struct {
		Resources struct {
			Core RateLimit `json:"core"`
		} `json:"resources"`
	}
	if err := c.do(ctx, http.MethodGet, c.base+"/rate_limit", nil, &out); err != nil {
		return RateLimit{}, err
	}
	return out.Resources.Core, nil
}

func (c *Client) putContents(ctx context.Context, filePath, message string, content []byte, sha string) (Commit, error) {
	body := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if sha != "" {
		body["sha"] = sha
	}
	var cr commitResponse
	if err := c.do(ctx, http.MethodPut, c.contentsURL(filePath), body, &cr); err != nil {
		return Commit{}, err
	}
	return cr.commit(), nil
}

func (c *Client) contentsURL(filePath string) string {
	return c.base + "/repos/" + c.owner + "/" + c.repo + "/contents/" + strings.TrimLeft(filePath, "/")
}

func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("githubfs: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("githubfs: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}
	if resp.StatusCode >= 400 {
		return c.classifyStatus(resp, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("githubfs: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) classifyStatus(resp *http.Response, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	case http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			c.log.Warn("github api quota exhausted",
				"reset", resp.Header.Get("X-RateLimit-Reset"))
			return fmt.Errorf("%s: %w", msg, ErrRateLimited)
		}
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}

func classifyTransport(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%v: %w", err, ErrTimeout)
	}
	return fmt.Errorf("githubfs: request failed: %w", err)
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// sanitizeFilename keeps letters, digits, dots, hyphens and underscores and
// replaces everything else with a hyphen, so the uploaded name is safe in a
// path and a URL.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
