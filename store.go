package ghpress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/eringen/ghpress/content"
	"github.com/eringen/ghpress/githubfs"
)

// Domain errors surfaced by the repository. Storage-level conflicts and
// misses from githubfs satisfy errors.Is against these.
var (
	ErrNotFound      = githubfs.ErrNotFound
	ErrConflict      = githubfs.ErrConflict
	ErrRateLimited   = githubfs.ErrRateLimited
	ErrAlreadyExists = errors.New("post already exists")
	ErrInvalidInput  = errors.New("invalid post input")
)

// FileStore is the slice of the githubfs client the repository depends on.
// Tests substitute an in-memory implementation.
type FileStore interface {
	GetFile(ctx context.Context, path string) (githubfs.File, error)
	CreateFile(ctx context.Context, req githubfs.CreateRequest) (githubfs.Commit, error)
	UpdateFile(ctx context.Context, req githubfs.UpdateRequest) (githubfs.Commit, error)
	DeleteFile(ctx context.Context, path, message string) (githubfs.Commit, error)
	ListFiles(ctx context.Context, dir string) ([]githubfs.Entry, error)
	UploadImage(ctx context.Context, data []byte, filename, dir string) (githubfs.Upload, error)
	GetRateLimit(ctx context.Context) (githubfs.RateLimit, error)
}

// Store is the content repository: it owns the slug<->path mapping and the
// commit-message templates, and exposes CRUD over posts stored as files in
// the backing GitHub branch. The SHA carried on every Post is the only
// concurrency mechanism; there is no locking above it.
type Store struct {
	fs  FileStore
	log *slog.Logger
	now func() time.Time
}

// NewStore creates a Store over the given file store.
func NewStore(fs FileStore, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{fs: fs, log: log, now: time.Now}
}

// GetPost returns the post for slug, or ErrNotFound. Posts written by this
// system use the .mdx extension; .md is accepted for files authored by hand.
func (s *Store) GetPost(ctx context.Context, slug string) (Post, error) {
	f, err := s.readBySlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	return buildPost(f, slug), nil
}

// List enumerates the content directory, decodes every content file in
// parallel, filters, sorts by date descending and slices. It returns the
// page of posts plus the total after filtering, for pagination math.
//
// The backing store has no query capability, so every listing reads all
// files. A file that cannot be fetched is logged and dropped rather than
// failing the whole listing.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Post, int, error) {
	entries, err := s.fs.ListFiles(ctx, contentDir)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return []Post{}, 0, nil
		}
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}

	var files []githubfs.Entry
	for _, e := range entries {
		if e.Type == "file" && isContentFile(e.Name) {
			files = append(files, e)
		}
	}

	results := make([]*Post, len(files))
	var wg sync.WaitGroup
	for i, e := range files {
		wg.Add(1)
		go func(i int, e githubfs.Entry) {
			defer wg.Done()
			f, err := s.fs.GetFile(ctx, e.Path)
			if err != nil {
				s.log.Warn("skipping unreadable post", "path", e.Path, "error", err)
				return
			}
			p := buildPost(f, SlugFromPath(e.Path))
			results[i] = &p
		}(i, e)
	}
	wg.Wait()

	var posts []Post
	for _, p := range results {
		if p == nil {
			continue
		}
		if p.Draft && !opts.IncludeDrafts {
			continue
		}
		if opts.Tag != "" && !hasTag(p.Tags, opts.Tag) {
			continue
		}
		posts = append(posts, *p)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date > posts[j].Date
	})

	total := len(posts)
	if opts.Offset > 0 {
		if opts.Offset >= len(posts) {
			posts = nil
		} else {
			posts = posts[opts.Offset:]
		}
	}
	if opts.Limit > 0 && len(posts) > opts.Limit {
		posts = posts[:opts.Limit]
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, total, nil
}

// ListTags returns the sorted, deduplicated tag set over published posts.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	posts, _, err := s.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			set[normalizeTag(t)] = struct{}{}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

// CreatePost derives the slug from date and title, commits the encoded file
// and re-reads it so the returned Post carries the canonical SHA. Existence
// is not pre-checked; a concurrent create of the same slug is detected by
// the store's create-conflict and surfaced as ErrAlreadyExists.
func (s *Store) CreatePost(ctx context.Context, input PostInput) (Post, error) {
	if err := validateInput(input); err != nil {
		return Post{}, err
	}
	slug := NewSlug(input.Date, input.Title)
	if Slugify(input.Title) == "" {
		return Post{}, fmt.Errorf("title produces an empty slug: %w", ErrInvalidInput)
	}
	raw, err := encodeInput(input)
	if err != nil {
		return Post{}, err
	}
	filePath := PathForSlug(slug)
	commit, err := s.fs.CreateFile(ctx, githubfs.CreateRequest{
		Path:    filePath,
		Content: raw,
		Message: "Create post " + slug,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return Post{}, fmt.Errorf("slug %s: %w", slug, ErrAlreadyExists)
		}
		return Post{}, fmt.Errorf("create post %s: %w", slug, err)
	}
	return s.reread(ctx, filePath, slug, commit)
}

// UpdatePost re-reads the post to obtain its current SHA, then writes the
// new content SHA-checked. A stale SHA surfaces as ErrConflict; the caller
// must re-fetch and resubmit, there is no auto-retry.
func (s *Store) UpdatePost(ctx context.Context, slug string, input PostInput) (Post, error) {
	if err := validateInput(input); err != nil {
		return Post{}, err
	}
	current, err := s.readBySlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	raw, err := encodeInput(input)
	if err != nil {
		return Post{}, err
	}
	commit, err := s.fs.UpdateFile(ctx, githubfs.UpdateRequest{
		Path:    current.Path,
		Content: raw,
		Message: "Update post " + slug,
		SHA:     current.SHA,
	})
	if err != nil {
		return Post{}, fmt.Errorf("update post %s: %w", slug, err)
	}
	return s.reread(ctx, current.Path, slug, commit)
}

// DeletePost removes the post's file in one commit. The underlying delete
// is a read-then-delete pair, so a concurrent writer can fail it with
// ErrConflict or ErrNotFound; neither is retried here.
func (s *Store) DeletePost(ctx context.Context, slug string) (githubfs.Commit, error) {
	f, err := s.readBySlug(ctx, slug)
	if err != nil {
		return githubfs.Commit{}, err
	}
	commit, err := s.fs.DeleteFile(ctx, f.Path, "Delete post "+slug)
	if err != nil {
		return githubfs.Commit{}, fmt.Errorf("delete post %s: %w", slug, err)
	}
	return commit, nil
}

// UploadImage stores image bytes under a year/month directory so no single
// directory accumulates unbounded entries. Collision avoidance is the file
// store's timestamp prefix, not ours.
func (s *Store) UploadImage(ctx context.Context, data []byte, filename string) (githubfs.Upload, error) {
	now := s.now().UTC()
	dir := fmt.Sprintf("%s/%04d/%02d", imageBaseDir, now.Year(), int(now.Month()))
	up, err := s.fs.UploadImage(ctx, data, filename, dir)
	if err != nil {
		return githubfs.Upload{}, fmt.Errorf("upload image %s: %w", filename, err)
	}
	return up, nil
}

// CheckStore probes the backing store's rate limit. It reports rather than
// fails: callers render whatever came back alongside the error.
func (s *Store) CheckStore(ctx context.Context) (githubfs.RateLimit, error) {
	return s.fs.GetRateLimit(ctx)
}

func (s *Store) readBySlug(ctx context.Context, slug string) (githubfs.File, error) {
	f, err := s.fs.GetFile(ctx, PathForSlug(slug))
	if err == nil || !errors.Is(err, ErrNotFound) {
		return f, err
	}
	return s.fs.GetFile(ctx, contentDir+"/"+slug+".md")
}

func (s *Store) reread(ctx context.Context, filePath, slug string, commit githubfs.Commit) (Post, error) {
	f, err := s.fs.GetFile(ctx, filePath)
	if err != nil {
		return Post{}, fmt.Errorf("re-read post %s after write: %w", slug, err)
	}
	post := buildPost(f, slug)
	post.GitHub.LastCommit = &commit
	return post, nil
}

func buildPost(f githubfs.File, slug string) Post {
	doc := content.Decode(f.Content)
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return Post{
		Slug:        slug,
		Title:       doc.Title,
		Date:        doc.Date,
		Tags:        tags,
		Draft:       doc.Draft,
		Summary:     doc.Summary,
		Images:      doc.Images,
		Content:     doc.Body,
		Excerpt:     content.Excerpt(doc.Body, 0),
		ReadingTime: content.ReadingTime(doc.Body),
		WordCount:   content.WordCount(doc.Body),
		GitHub:      GitHubMeta{Path: f.Path, SHA: f.SHA},
	}
}

func encodeInput(input PostInput) (string, error) {
	raw, err := content.Encode(content.Document{
		FrontMatter: content.FrontMatter{
			Title:   input.Title,
			Date:    input.Date,
			Tags:    FilterEmpty(input.Tags),
			Draft:   input.Draft,
			Summary: input.Summary,
			Images:  FilterEmpty(input.Images),
		},
		Body: input.Content,
	})
	if err != nil {
		return "", fmt.Errorf("encode post: %w", err)
	}
	return raw, nil
}

func validateInput(input PostInput) error {
	if input.Title == "" {
		return fmt.Errorf("title is required: %w", ErrInvalidInput)
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", ErrInvalidInput)
	}
	return nil
}

func hasTag(tags []string, want string) bool {
	want = normalizeTag(want)
	for _, t := range tags {
		if normalizeTag(t) == want {
			return true
		}
	}
	return false
}
