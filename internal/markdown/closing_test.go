package markdown

import "testing"

func TestClosingSymbol(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"open quote", `She said "hello`, `"`},
		{"open asterisk", "He waved *slowly", "*"},
		{"closed quote", `She said "hello"`, ""},
		{"closed quote with period", `She said "hello".`, ""},
		{"closed asterisk with period", "He waved *slowly*.", ""},
		{"no symbols", "plain text", ""},
		{"balanced pair", `a "b" c`, ""},
		{"switch pending symbol", `"abc *def`, "*"},
		{"only last line counts", "first \"open\nsecond line", ""},
		{"empty", "", ""},
		{"whitespace only", "  \n  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClosingSymbol(tt.text); got != tt.want {
				t.Errorf("ClosingSymbol(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
