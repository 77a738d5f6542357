package ghpress

import "github.com/eringen/ghpress/githubfs"

// Post is the core content type, stored as one Markdown file with YAML
// front matter in the content repository. Excerpt, ReadingTime and
// WordCount are derived on read and never persisted.
type Post struct {
	Slug    string   `json:"slug"`
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	Tags    []string `json:"tags"`
	Draft   bool     `json:"draft"`
	Summary string   `json:"summary,omitempty"`
	Images  []string `json:"images,omitempty"`
	Content string   `json:"content"`

	Excerpt     string `json:"excerpt"`
	ReadingTime int    `json:"readingTime"`
	WordCount   int    `json:"wordCount"`

	GitHub GitHubMeta `json:"github"`
}

// GitHubMeta is storage provenance: where the post lives and the SHA that
// must accompany the next update or delete. LastCommit is set after writes.
type GitHubMeta struct {
	Path       string           `json:"path"`
	SHA        string           `json:"sha"`
	LastCommit *githubfs.Commit `json:"lastCommit,omitempty"`
}

// PostInput carries the writable fields of a post. Slug and provenance are
// assigned by the repository, never by the caller.
type PostInput struct {
	Title   string   `json:"title"`
	Date    string   `json:"date"`
	Tags    []string `json:"tags"`
	Draft   bool     `json:"draft"`
	Summary string   `json:"summary"`
	Images  []string `json:"images"`
	Content string   `json:"content"`
}

// ListOptions filters and slices a post listing.
type ListOptions struct {
	IncludeDrafts bool
	Tag           string
	Limit         int
	Offset        int
}

// PageInfo describes one page of a listing.
type PageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}
