// ABOUTME: Tests for documentation preview rendering and the render cache.
package render

import (
	"strings"
	"testing"
	"time"
)

func TestMarkdownRendersHeadings(t *testing.T) {
	out, err := Markdown("# Title\n\nSome *emphasis* here.")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if !strings.Contains(out, "<h1>Title</h1>") {
		t.Errorf("heading not rendered: %s", out)
	}
	if !strings.Contains(out, "<em>emphasis</em>") {
		t.Errorf("emphasis not rendered: %s", out)
	}
}

func TestMarkdownStripsRawHTML(t *testing.T) {
	out, err := Markdown("hello <script>alert(1)</script>")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw script tag survived rendering")
	}
}

func TestDocumentPageMarkdownVsCode(t *testing.T) {
	page := DocumentPage("README.md", "# Hi")
	if !strings.Contains(page, "<h1>Hi</h1>") {
		t.Error("markdown file not formatted")
	}

	page = DocumentPage("notes.txt", "<b>not html</b>")
	if !strings.Contains(page, "&lt;b&gt;not html&lt;/b&gt;") {
		t.Error("non-markdown content not escaped")
	}
	if !strings.Contains(page, "<pre><code>") {
		t.Error("non-markdown content not in a code block")
	}
}

func TestCacheHitAndExpiry(t *testing.T) {
	calls := 0
	c := NewCache(func(path, content string) string {
		calls++
		return "rendered:" + path
	}, 50*time.Millisecond)

	c.Render("a.md", "x")
	c.Render("a.md", "x")
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (second render should hit cache)", calls)
	}

	// Different content misses.
	c.Render("a.md", "y")
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	time.Sleep(60 * time.Millisecond)
	c.Render("a.md", "x")
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (expired entry should re-render)", calls)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(func(path, content string) string { return "" }, time.Minute)
	c.Render("a", "1")
	c.Render("b", "2")
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("len = %d after clear", c.Len())
	}
}
