// Package richtext cleans editor-supplied HTML and renders markdown.
package richtext

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

var sanitizer = bluemonday.UGCPolicy()

// Clean returns the sanitized form of an HTML rich text value, suitable for
// storing on a page.
func Clean(html string) string {
	return strings.TrimSpace(sanitizer.Sanitize(html))
}

// Sanitize returns rich text ready to be placed in a template.
func Sanitize(html string) template.HTML {
	return template.HTML(Clean(html))
}

// Markdown converts markdown to sanitized HTML
func Markdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(sanitizer.Sanitize(buf.String()))
}

// PlainText strips all markup, used for summaries and slugs.
func PlainText(html string) string {
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(html))
}
