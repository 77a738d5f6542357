package ghpress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSlug(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		title string
		want  string
	}{
		{"simple", "2025-01-15", "Hello World", "20250115-hello-world"},
		{"punctuation stripped", "2024-12-01", "Go 1.24: What's New?", "20241201-go-1-24-what-s-new"},
		{"whitespace collapsed", "2024-06-30", "  Spaced   Out  ", "20240630-spaced-out"},
		{"mixed case", "2023-02-03", "MiXeD CaSe", "20230203-mixed-case"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSlug(tt.date, tt.title))
		})
	}
}

func TestSlugPathRoundTrip(t *testing.T) {
	slugs := []string{
		"20250115-hello-world",
		"20241201-go-1-24-what-s-new",
		"20200101-a",
	}
	for _, slug := range slugs {
		assert.Equal(t, slug, SlugFromPath(PathForSlug(slug)))
	}
	assert.Equal(t, "data/blog/20250115-hello-world.mdx", PathForSlug("20250115-hello-world"))
	assert.Equal(t, "20250115-hello-world", SlugFromPath("data/blog/20250115-hello-world.md"))
}

func TestIsContentFile(t *testing.T) {
	assert.True(t, isContentFile("post.md"))
	assert.True(t, isContentFile("post.mdx"))
	assert.False(t, isContentFile("image.png"))
	assert.False(t, isContentFile("README"))
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name           string
		total, page, limit int
		wantPages      int
		wantNext       bool
		wantPrev       bool
	}{
		{"middle page", 12, 2, 5, 3, true, true},
		{"first page", 12, 1, 5, 3, true, false},
		{"last page", 12, 3, 5, 3, false, true},
		{"single page", 4, 1, 10, 1, false, false},
		{"empty", 0, 1, 10, 0, false, false},
		{"exact fit", 20, 2, 10, 2, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Paginate(tt.total, tt.page, tt.limit)
			assert.Equal(t, tt.wantPages, info.TotalPages)
			assert.Equal(t, tt.wantNext, info.HasNext)
			assert.Equal(t, tt.wantPrev, info.HasPrev)
			assert.Equal(t, tt.total, info.Total)
		})
	}
}

func TestFilterEmpty(t *testing.T) {
	assert.Equal(t, []string{"go", "web"}, FilterEmpty([]string{"go", "", "  ", "web"}))
	assert.Nil(t, FilterEmpty([]string{"", "   "}))
}
