package markdown

import (
	"strings"
	"testing"
)

type fakeCache struct {
	entries map[string]CacheEntry
	hits    int
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]CacheEntry{}}
}

func (c *fakeCache) Get(key string) (CacheEntry, bool) {
	entry, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return entry, ok
}

func (c *fakeCache) Put(key string, entry CacheEntry) {
	c.puts++
	c.entries[key] = entry
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "plain text passes through",
			html: "Hello world",
			want: "Hello world",
		},
		{
			name: "code block with language",
			html: `<div class="md-code-block"><div class="md-code-block-banner"><span class="d813de27">python</span></div><pre>print("hi")</pre></div>`,
			want: "```python\nprint(\"hi\")\n```",
		},
		{
			name: "code block with text language drops the label",
			html: `<div class="md-code-block"><span class="d813de27">text</span><pre>just words</pre></div>`,
			want: "```\njust words\n```",
		},
		{
			name: "inline emphasis",
			html: "<p><strong>bold</strong> and <em>italic</em></p>",
			want: "**bold** and *italic*",
		},
		{
			name: "emphasis inside strong is flattened",
			html: "<p><strong>bold <em>inner</em></strong></p>",
			want: "**bold inner**",
		},
		{
			name: "header and paragraph",
			html: "<h2>Title</h2><p>Body</p>",
			want: "## Title\nBody",
		},
		{
			name: "link",
			html: `<p>See <a href="https://example.com">docs</a>.</p>`,
			want: "See [docs](https://example.com).",
		},
		{
			name: "nested list",
			html: "<ul><li>One</li><li>Two<ul><li>Nested</li></ul></li></ul>",
			want: "- One\n- Two\n  - Nested",
		},
		{
			name: "ordered list",
			html: "<ol><li>First</li><li>Second</li></ol>",
			want: "1. First\n2. Second",
		},
		{
			name: "table",
			html: "<table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>",
			want: "| A | B |\n| --- | --- |\n| 1 | 2 |",
		},
		{
			name: "blockquote",
			html: "<blockquote>quoted line</blockquote>",
			want: "> quoted line",
		},
		{
			name: "passthrough span decodes escaped markup",
			html: `<p><span class="ds-markdown-html">&amp;lt;b&amp;gt;</span></p>`,
			want: "<b>",
		},
		{
			name: "ui chrome removed",
			html: `<p>Answer</p><div class="ds-button">Copy</div>`,
			want: "Answer",
		},
		{
			name: "empty input",
			html: "",
			want: "",
		},
	}

	converter := NewConverter(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := converter.Convert(tt.html)
			if got != tt.want {
				t.Errorf("Convert() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvertUsesCache(t *testing.T) {
	cache := newFakeCache()
	converter := NewConverter(cache, nil)

	html := "<p><strong>cached</strong></p>"
	first := converter.Convert(html)
	second := converter.Convert(html)

	if first != second {
		t.Fatalf("cached result %q differs from first conversion %q", second, first)
	}
	if cache.puts != 1 {
		t.Errorf("puts = %d, want 1", cache.puts)
	}
	if cache.hits != 1 {
		t.Errorf("hits = %d, want 1", cache.hits)
	}
}

func TestContentHash(t *testing.T) {
	if ContentHash("") != "" {
		t.Error("empty content should hash to empty key")
	}
	if ContentHash("a") == ContentHash("b") {
		t.Error("distinct content should hash to distinct keys")
	}
	if ContentHash("same") != ContentHash("same") {
		t.Error("hash must be stable")
	}
}

func TestStripEmphasisInStrong(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<strong>a <em>b</em></strong>", "<strong>a b</strong>"},
		{"<em>outside</em>", "<em>outside</em>"},
		{"plain", "plain"},
		{"<strong>x</strong><em>y</em>", "<strong>x</strong><em>y</em>"},
	}
	for _, tt := range tests {
		if got := stripEmphasisInStrong(tt.in); got != tt.want {
			t.Errorf("stripEmphasisInStrong(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeBacktickRuns(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"``x``", "`x`"},
		{"````go", "```go"},
		{"```go", "```go"},
		{"`x`", "`x`"},
	}
	for _, tt := range tests {
		if got := normalizeBacktickRuns(tt.in); got != tt.want {
			t.Errorf("normalizeBacktickRuns(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFinalCleanupCollapsesNewlines(t *testing.T) {
	got := finalCleanup("a\n\n\n\nb")
	if got != "a\n\nb" {
		t.Errorf("finalCleanup() = %q, want %q", got, "a\n\nb")
	}
	if strings.Contains(finalCleanup("x***y"), "***") {
		t.Error("asterisk runs should collapse to two")
	}
}
