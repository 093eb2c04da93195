// ABOUTME: Renders project documentation files to standalone HTML preview pages.
// ABOUTME: Markdown goes through goldmark; everything else falls back to an escaped code view.
package render

import (
	"bytes"
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// Markdown converts markdown source to an HTML fragment. Raw HTML in the
// input is stripped by goldmark's defaults to prevent script injection into
// the host page.
func Markdown(input string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// DocumentPage renders one project file as a standalone preview page.
// Markdown files render formatted; all other text renders as an escaped
// code block so a doc preview can never execute project code.
func DocumentPage(filePath, content string) string {
	title := path.Base(filePath)
	var body string

	if isMarkdownPath(filePath) {
		fragment, err := Markdown(content)
		if err != nil {
			body = "<pre><code>" + html.EscapeString(content) + "</code></pre>"
		} else {
			body = fragment
		}
	} else {
		body = "<pre><code>" + html.EscapeString(content) + "</code></pre>"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto;
       padding: 0 1rem; color: #212529; line-height: 1.6; }
pre { background: #f1f3f5; padding: 1rem; border-radius: 6px; overflow-x: auto; }
code { font-family: ui-monospace, monospace; font-size: 0.875rem; }
h1, h2, h3 { line-height: 1.25; }
blockquote { border-left: 3px solid #adb5bd; margin-left: 0; padding-left: 1rem; color: #495057; }
</style></head>
<body>
%s
</body>
</html>`, html.EscapeString(title), body)
}

func isMarkdownPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}
