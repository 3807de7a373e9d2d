package markdown

import (
	"regexp"
	"strings"
)

var closedEnding = regexp.MustCompile(`("\.?$|\*\.?$)`)

// ClosingSymbol inspects the last non-empty line of text and returns the
// quote or asterisk still left open on it, or "" when the line is balanced.
// Only one symbol can be open at a time: opening the other kind while one is
// pending switches the pending symbol.
func ClosingSymbol(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	line := strings.TrimSpace(lines[len(lines)-1])
	if closedEnding.MatchString(line) {
		return ""
	}

	var open rune
	for _, ch := range line {
		if ch != '"' && ch != '*' {
			continue
		}
		switch {
		case open == 0:
			open = ch
		case ch == open:
			open = 0
		default:
			open = ch
		}
	}
	if open == 0 {
		return ""
	}
	return string(open)
}
