// Package markdown renders post bodies to HTML.
//
// Bodies come from the CMS, whose editors are trusted: raw HTML blocks pass
// through so rich-text content renders as authored.
package markdown

import (
	"bytes"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Render writes the HTML representation of src to w.
func Render(w io.Writer, src string) error {
	return md.Convert([]byte(src), w)
}

// ToHTML renders src for embedding in an html/template. Conversion errors
// only come from the writer, which cannot fail here.
func ToHTML(src string) template.HTML {
	var buf bytes.Buffer
	if err := Render(&buf, src); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
