// Package content converts between the on-disk post representation (YAML
// front matter plus Markdown body) and structured metadata, and computes
// the derived fields (excerpt, reading time, word count) that are never
// persisted.
//
// The renderer registry is an extension point for downstream rendering
// layers: the API serves raw Markdown, and consumers that render HTML
// register a Renderer per layout and look it up with RendererFor.
package content

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// FrontMatter is the structured header of a content file. Optional fields
// carry omitempty so encoding never emits empty keys.
type FrontMatter struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Tags    []string `yaml:"tags,omitempty"`
	Draft   bool     `yaml:"draft,omitempty"`
	Summary string   `yaml:"summary,omitempty"`
	Images  []string `yaml:"images,omitempty"`
}

// Document is a decoded content file: metadata plus body text.
type Document struct {
	FrontMatter
	Body string
}

// Decode splits the leading front matter block from the body. It never
// fails: a missing or malformed header yields an empty FrontMatter with the
// entire text as body, and missing fields keep their zero defaults
// (tags nil, draft false).
func Decode(raw string) Document {
	header, body, ok := splitFrontMatter(raw)
	if !ok {
		return Document{Body: raw}
	}
	var fm FrontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Document{Body: raw}
	}
	return Document{FrontMatter: fm, Body: body}
}

// Encode serializes a Document back to its on-disk form.
func Encode(doc Document) (string, error) {
	header, err := yaml.Marshal(doc.FrontMatter)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("\n")
	b.Write(header)
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimLeft(doc.Body, "\n"))
	return b.String(), nil
}

func splitFrontMatter(raw string) (header, body string, ok bool) {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(normalized, delimiter+"\n") {
		return "", "", false
	}
	rest := normalized[len(delimiter)+1:]
	// The closer must be a complete "---" line, so a header value that
	// merely starts with dashes does not end the block early.
	end := strings.Index(rest, "\n"+delimiter+"\n")
	if end < 0 {
		if !strings.HasSuffix(rest, "\n"+delimiter) {
			return "", "", false
		}
		end = len(rest) - len(delimiter) - 1
	}
	header = rest[:end+1]
	body = rest[end+1+len(delimiter):]
	body = strings.TrimLeft(body, "\n")
	return header, body, true
}
