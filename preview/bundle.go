// ABOUTME: Named heuristic predicate deciding whether a project needs a bundler before it can run.
// ABOUTME: Enumerates the trigger conditions instead of scattering string checks through rendering code.
package preview

import (
	"regexp"
	"strings"
)

// Heuristic trigger patterns. These are a known approximation: a valid
// program using string literals that look like imports will be
// misclassified, and that is accepted behavior.
var (
	// ES module import/export statements at the start of a line.
	moduleSyntaxPattern = regexp.MustCompile(`(?m)^\s*(?:import\s+[\w{*]|import\s*['"]|export\s+(?:default|const|function|class|{))`)

	// JSX-like markup: a capitalized tag or a fragment opener.
	jsxMarkupPattern = regexp.MustCompile(`<[A-Z][A-Za-z0-9]*[\s/>]|<>\s*`)

	// Framework entry calls that only work after a build step resolves
	// their bare-specifier imports.
	frameworkEntryPattern = regexp.MustCompile(`ReactDOM\.(?:render|createRoot)|createRoot\s*\(|createApp\s*\(|new\s+Vue\s*\(`)
)

// RequiresBuildStep reports whether any file in the project needs a bundler
// or compiler before it can execute, in which case the preview renders a
// bundling notice instead of attempting to run the code. Trigger conditions:
//
//  1. any .tsx, .jsx, .ts, .vue, or .svelte file exists
//  2. a .js/.mjs file contains ES module import/export syntax
//  3. a .js/.mjs file contains JSX-like markup
//  4. a .js/.mjs file contains a framework entry call
func RequiresBuildStep(files map[string]string) bool {
	for path, content := range files {
		lower := strings.ToLower(path)
		switch {
		case strings.HasSuffix(lower, ".tsx"),
			strings.HasSuffix(lower, ".jsx"),
			strings.HasSuffix(lower, ".ts"),
			strings.HasSuffix(lower, ".vue"),
			strings.HasSuffix(lower, ".svelte"):
			return true
		}
		if !isScriptPath(lower) {
			continue
		}
		if moduleSyntaxPattern.MatchString(content) ||
			jsxMarkupPattern.MatchString(content) ||
			frameworkEntryPattern.MatchString(content) {
			return true
		}
	}
	return false
}

// isScriptPath reports whether path is plain JavaScript eligible for
// inlining into the synthesized document.
func isScriptPath(lower string) bool {
	return strings.HasSuffix(lower, ".js") || strings.HasSuffix(lower, ".mjs")
}

// isInlinableScript reports whether a single JS file can run as a classic
// inline script: no module syntax, no JSX, no framework entry.
func isInlinableScript(content string) bool {
	return !moduleSyntaxPattern.MatchString(content) &&
		!jsxMarkupPattern.MatchString(content) &&
		!frameworkEntryPattern.MatchString(content)
}
