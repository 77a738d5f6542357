package ghpress

import (
	"path"
	"strings"
)

const (
	contentDir   = "data/blog"
	imageBaseDir = "data/images"
)

// Slugify converts a title to a URL-safe slug: lower-cased, non-word
// characters stripped, runs of separators collapsed to single hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// NewSlug derives a post's permanent slug from its date and title, e.g.
// ("2025-01-15", "Hello World") -> "20250115-hello-world".
func NewSlug(date, title string) string {
	compact := strings.NewReplacer("-", "", "/", "", ".", "").Replace(date)
	return compact + "-" + Slugify(title)
}

// PathForSlug maps a slug to its storage path. The inverse is SlugFromPath.
func PathForSlug(slug string) string {
	return contentDir + "/" + slug + ".mdx"
}

// SlugFromPath maps a storage path back to its slug by dropping the
// directory and the content-file extension.
func SlugFromPath(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// isContentFile reports whether a directory entry holds post content.
func isContentFile(name string) bool {
	ext := path.Ext(name)
	return ext == ".md" || ext == ".mdx"
}

// Paginate computes the page descriptor for a listing of total items.
func Paginate(total, page, limit int) PageInfo {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PageInfo{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
