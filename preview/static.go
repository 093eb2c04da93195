// ABOUTME: Static preview synthesis: assembles one self-contained document from the in-memory file map.
// ABOUTME: Injects instrumentation first, inlines styles and plain scripts, and always renders something.
package preview

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
)

// DocKind identifies what the synthesizer produced, so callers can
// distinguish live project content from placeholder pages.
type DocKind string

const (
	DocProject       DocKind = "project"
	DocEmpty         DocKind = "empty"
	DocNoEntry       DocKind = "no_entry"
	DocNeedsBundling DocKind = "needs_bundling"
)

// Document is the result of a synthesis pass.
type Document struct {
	HTML string
	Kind DocKind
}

var (
	headOpenPattern  = regexp.MustCompile(`(?i)<head[^>]*>`)
	headClosePattern = regexp.MustCompile(`(?i)</head>`)
	bodyClosePattern = regexp.MustCompile(`(?i)</body>`)
	htmlOpenPattern  = regexp.MustCompile(`(?i)<html[^>]*>`)
)

// Synthesize builds a self-contained preview document from the file map.
// The output is a pure function of (files, entry, instrumentation); refresh
// identity is handled by the caller's counter, never by content changes.
//
// The returned document is never blank: empty projects, missing entry
// documents, and build-requiring projects all produce explanatory pages.
func Synthesize(files map[string]string, entry, instrumentation string) Document {
	if len(files) == 0 {
		return Document{HTML: placeholderPage("Nothing to preview yet",
			"Generated files will appear here as they stream in."), Kind: DocEmpty}
	}

	if RequiresBuildStep(files) {
		return Document{HTML: bundlingNoticePage(files), Kind: DocNeedsBundling}
	}

	entryPath, ok := FindEntryDocument(files, entry)
	if !ok {
		return Document{HTML: placeholderPage("No entry document",
			"Add an index.html file to preview this project."), Kind: DocNoEntry}
	}

	doc := files[entryPath]
	doc = ensureHead(doc)
	doc = injectInstrumentation(doc, instrumentation)
	doc = injectStyles(doc, files)
	doc = injectScripts(doc, files)
	return Document{HTML: doc, Kind: DocProject}
}

// FindEntryDocument locates the document to render, in priority order:
// the explicit entry point, then index.html, then the lexically first
// path ending in .html.
func FindEntryDocument(files map[string]string, entry string) (string, bool) {
	if entry != "" {
		if _, ok := files[entry]; ok {
			return entry, true
		}
	}
	if _, ok := files["index.html"]; ok {
		return "index.html", true
	}

	var htmlPaths []string
	for path := range files {
		if strings.HasSuffix(strings.ToLower(path), ".html") {
			htmlPaths = append(htmlPaths, path)
		}
	}
	if len(htmlPaths) == 0 {
		return "", false
	}
	sort.Strings(htmlPaths)
	return htmlPaths[0], true
}

// ensureHead guarantees the document has a head section to inject into.
func ensureHead(doc string) string {
	if headOpenPattern.MatchString(doc) {
		return doc
	}
	if loc := htmlOpenPattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "<head></head>" + doc[loc[1]:]
	}
	return "<head></head>" + doc
}

// injectInstrumentation places the capture script as the very first element
// of the head, before any project code can run.
func injectInstrumentation(doc, instrumentation string) string {
	if instrumentation == "" {
		return doc
	}
	script := "<script>" + instrumentation + "</script>"
	loc := headOpenPattern.FindStringIndex(doc)
	return doc[:loc[1]] + script + doc[loc[1]:]
}

// injectStyles concatenates all .css files into a single style block before
// the head-close marker, sorted by path for deterministic output.
func injectStyles(doc string, files map[string]string) string {
	var cssPaths []string
	for path := range files {
		if strings.HasSuffix(strings.ToLower(path), ".css") {
			cssPaths = append(cssPaths, path)
		}
	}
	if len(cssPaths) == 0 {
		return doc
	}
	sort.Strings(cssPaths)

	var combined strings.Builder
	for _, path := range cssPaths {
		combined.WriteString(files[path])
		if !strings.HasSuffix(files[path], "\n") {
			combined.WriteString("\n")
		}
	}
	style := "<style>" + combined.String() + "</style>"

	if loc := headClosePattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + style + doc[loc[0]:]
	}
	return doc + style
}

// injectScripts inlines plain JavaScript files as classic scripts before the
// body-close marker. Files that need a build step never reach this point
// project-wide, but individual files are still re-checked so a single odd
// file degrades to being skipped rather than breaking the page.
func injectScripts(doc string, files map[string]string) string {
	var jsPaths []string
	for path := range files {
		if isScriptPath(strings.ToLower(path)) && isInlinableScript(files[path]) {
			jsPaths = append(jsPaths, path)
		}
	}
	if len(jsPaths) == 0 {
		return doc
	}
	sort.Strings(jsPaths)

	var scripts strings.Builder
	for _, path := range jsPaths {
		scripts.WriteString("<script>\n")
		scripts.WriteString(files[path])
		scripts.WriteString("\n</script>")
	}

	if loc := bodyClosePattern.FindStringIndex(doc); loc != nil {
		return doc[:loc[0]] + scripts.String() + doc[loc[0]:]
	}
	return doc + scripts.String()
}

// placeholderPage renders a neutral explanatory page. The preview surface
// must never be blank with no explanation.
func placeholderPage(title, detail string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center;
       justify-content: center; height: 100vh; margin: 0; background: #f8f9fa; color: #495057; }
.card { text-align: center; max-width: 28rem; padding: 2rem; }
h1 { font-size: 1.25rem; margin-bottom: 0.5rem; }
p { font-size: 0.9rem; color: #868e96; }
</style></head>
<body><div class="card"><h1>%s</h1><p>%s</p></div></body>
</html>`, html.EscapeString(title), html.EscapeString(title), html.EscapeString(detail))
}

// bundlingNoticePage renders the human-readable notice shown when the
// project contains files that require compilation.
func bundlingNoticePage(files map[string]string) string {
	var triggers []string
	for path := range files {
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".tsx") || strings.HasSuffix(lower, ".jsx") ||
			strings.HasSuffix(lower, ".ts") || strings.HasSuffix(lower, ".vue") ||
			strings.HasSuffix(lower, ".svelte") {
			triggers = append(triggers, path)
		}
	}
	sort.Strings(triggers)
	if len(triggers) > 6 {
		triggers = triggers[:6]
	}

	var list strings.Builder
	for _, path := range triggers {
		list.WriteString("<li><code>" + html.EscapeString(path) + "</code></li>")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>This project needs bundling</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; align-items: center;
       justify-content: center; height: 100vh; margin: 0; background: #f8f9fa; color: #495057; }
.card { max-width: 32rem; padding: 2rem; }
h1 { font-size: 1.25rem; }
p, li { font-size: 0.9rem; }
code { background: #e9ecef; padding: 0 0.25rem; border-radius: 3px; }
</style></head>
<body><div class="card">
<h1>This project needs bundling</h1>
<p>It uses a framework or compiled language that cannot run directly in the
browser. Export the project and run it locally with a dev server, or start a
live server to preview it here.</p>
<ul>%s</ul>
</div></body>
</html>`, list.String())
}
