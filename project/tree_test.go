// ABOUTME: Tests for tree construction, flatten round-tripping, folder synthesis, and language tagging.
// ABOUTME: Covers deterministic ordering and the folder-paths-are-proper-prefixes property.
package project

import (
	"reflect"
	"testing"
)

func TestBuildTreeFlattenRoundTrip(t *testing.T) {
	files := map[string]string{
		"index.html":            "<html></html>",
		"style.css":             "body{}",
		"src/app.js":            "console.log(1)",
		"src/components/nav.js": "export {}",
		"src/components/footer.js": "",
		"public/assets/logo.svg":   "<svg/>",
	}

	roots := BuildTree(files)
	got := Flatten(roots)

	if !reflect.DeepEqual(got, files) {
		t.Errorf("round trip mismatch:\n got: %v\nwant: %v", got, files)
	}
}

func TestBuildTreeFolderPathsAreProperPrefixes(t *testing.T) {
	files := map[string]string{
		"src/components/nav.js": "a",
		"src/app.js":            "b",
		"public/index.html":     "c",
	}

	folders := FolderPaths(BuildTree(files))
	want := map[string]bool{
		"src":            true,
		"src/components": true,
		"public":         true,
	}
	if !reflect.DeepEqual(folders, want) {
		t.Errorf("folders = %v, want %v", folders, want)
	}
}

func TestBuildTreeEmptyInput(t *testing.T) {
	roots := BuildTree(nil)
	if len(roots) != 0 {
		t.Errorf("expected no roots for empty input, got %d", len(roots))
	}
	if got := Flatten(roots); len(got) != 0 {
		t.Errorf("expected empty flatten, got %v", got)
	}
}

func TestBuildTreeSortsFoldersFirst(t *testing.T) {
	files := map[string]string{
		"zeta.js":      "",
		"alpha.js":     "",
		"lib/utils.js": "",
	}

	roots := BuildTree(files)
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots, got %d", len(roots))
	}
	if roots[0].Kind != KindFolder || roots[0].Name != "lib" {
		t.Errorf("expected folder 'lib' first, got %s (%s)", roots[0].Name, roots[0].Kind)
	}
	if roots[1].Name != "alpha.js" || roots[2].Name != "zeta.js" {
		t.Errorf("expected files sorted by name, got %s, %s", roots[1].Name, roots[2].Name)
	}
}

func TestBuildTreeIdempotentFolderInsertion(t *testing.T) {
	// Multiple files under the same deep prefix must share one folder chain.
	files := map[string]string{
		"a/b/c/one.js":   "1",
		"a/b/c/two.js":   "2",
		"a/b/three.js":   "3",
	}

	roots := BuildTree(files)
	if len(roots) != 1 {
		t.Fatalf("expected single root folder, got %d", len(roots))
	}
	folders := FolderPaths(roots)
	if len(folders) != 3 {
		t.Errorf("expected 3 folder nodes (a, a/b, a/b/c), got %v", folders)
	}
}

func TestLanguageForPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"index.html", "html"},
		{"src/App.tsx", "typescriptreact"},
		{"src/app.js", "javascript"},
		{"style.css", "css"},
		{"README.md", "markdown"},
		{"data.json", "json"},
		{"Makefile", "plaintext"},
		{"notes.unknownext", "plaintext"},
	}
	for _, tc := range cases {
		if got := LanguageForPath(tc.path); got != tc.want {
			t.Errorf("LanguageForPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
