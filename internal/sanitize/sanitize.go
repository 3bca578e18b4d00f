// Package sanitize turns model output into plain chat text.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockBreaks = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?li>`)
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
)

// Policy strips markdown and HTML from text.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPlainTextPolicy creates a Policy that keeps only text content.
func NewPlainTextPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// PlainText renders markdown, drops every tag and collapses blank lines.
// Text that fails to render is returned trimmed but otherwise unchanged.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return strings.TrimSpace(text)
	}

	out := blockBreaks.ReplaceAllString(buf.String(), "\n")
	out = p.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
