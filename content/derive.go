package content

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Reading rates per script. Ideographic and kana text has no word
// boundaries, so it is counted in characters rather than tokens.
const (
	ideographicCharsPerMinute = 500
	latinWordsPerMinute       = 250
)

const defaultExcerptLen = 150

var mdParser = goldmark.New().Parser()

// PlainText strips markup from a Markdown body: headings, fenced and inline
// code, and images are dropped entirely; link text survives without its URL.
// Whitespace is collapsed to single spaces.
func PlainText(body string) string {
	src := []byte(body)
	doc := mdParser.Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if _, isBlock := n.(*ast.Paragraph); isBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.Heading, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock,
			*ast.CodeSpan, *ast.Image:
			return ast.WalkSkipChildren, nil
		}
		if t, ok := n.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Excerpt returns the first maxLen characters of the markup-stripped body.
// Truncation may cut mid-word. maxLen <= 0 selects the default of 150.
func Excerpt(body string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = defaultExcerptLen
	}
	plain := PlainText(body)
	runes := []rune(plain)
	if len(runes) <= maxLen {
		return plain
	}
	return string(runes[:maxLen])
}

// ReadingTime estimates reading time in whole minutes. Ideographic and kana
// characters are counted per-character, remaining text per word-token, each
// at its own rate; the sum is rounded up. Non-empty content never yields 0.
func ReadingTime(body string) int {
	cjk, words := countScripts(PlainText(body))
	if cjk == 0 && words == 0 {
		// A body that is only markup (a lone code block or heading) strips
		// to nothing but still takes time to read.
		if strings.TrimSpace(body) != "" {
			return 1
		}
		return 0
	}
	minutes := float64(cjk)/ideographicCharsPerMinute + float64(words)/latinWordsPerMinute
	rounded := int(minutes)
	if minutes > float64(rounded) {
		rounded++
	}
	if rounded < 1 {
		rounded = 1
	}
	return rounded
}

// WordCount counts word-tokens plus individual ideographic/kana characters.
func WordCount(body string) int {
	cjk, words := countScripts(PlainText(body))
	return cjk + words
}

func countScripts(plain string) (cjk, words int) {
	var latin strings.Builder
	for _, r := range plain {
		if isIdeographic(r) {
			cjk++
			latin.WriteByte(' ')
			continue
		}
		latin.WriteRune(r)
	}
	return cjk, len(strings.Fields(latin.String()))
}

func isIdeographic(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r)
}
