package content

import (
	"io"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns a post body into HTML for one layout. Implementations are
// looked up by layout identifier through the registry, so adding a layout
// means registering a value, not loading code by name.
type Renderer interface {
	Render(w io.Writer, body string) error
}

var (
	renderMu sync.RWMutex
	registry = map[string]Renderer{}
)

// RegisterRenderer binds a layout identifier to a Renderer, replacing any
// previous binding.
func RegisterRenderer(layout string, r Renderer) {
	renderMu.Lock()
	registry[layout] = r
	renderMu.Unlock()
}

// RendererFor returns the Renderer registered for layout.
func RendererFor(layout string) (Renderer, bool) {
	renderMu.RLock()
	r, ok := registry[layout]
	renderMu.RUnlock()
	return r, ok
}

type markdownRenderer struct {
	md goldmark.Markdown
}

func (r markdownRenderer) Render(w io.Writer, body string) error {
	return r.md.Convert([]byte(body), w)
}

func init() {
	RegisterRenderer("post", markdownRenderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	})
}
