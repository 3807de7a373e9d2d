package markdown

import (
	"regexp"
	"strings"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessAsterisk = regexp.MustCompile(`\*{3,}`)
	leadingBlank   = regexp.MustCompile(`^\s*\n`)
	trailingBlank  = regexp.MustCompile(`\n\s*$`)

	fenceSpacingBefore = regexp.MustCompile("\n\\s*\n\\s*```")
	fenceSpacingAfter  = regexp.MustCompile("```\\s*\n\\s*\n")
	headerSpacing      = regexp.MustCompile(`\n\s*\n\s*#`)
	bulletSpacing      = regexp.MustCompile(`\n\s*\n\s*-`)
)

// finalCleanup normalizes the extracted text into tidy Markdown.
func finalCleanup(text string) string {
	text = decodeEntities(text)

	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = excessAsterisk.ReplaceAllString(text, "**")
	text = normalizeBacktickRuns(text)

	text = fenceSpacingBefore.ReplaceAllString(text, "\n\n```")
	text = fenceSpacingAfter.ReplaceAllString(text, "```\n")
	text = headerSpacing.ReplaceAllString(text, "\n\n#")
	text = bulletSpacing.ReplaceAllString(text, "\n\n-")

	text = leadingBlank.ReplaceAllString(text, "")
	text = trailingBlank.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// normalizeBacktickRuns caps fence runs at three backticks and collapses
// stray doubled backticks to one. Runs of exactly three are kept as fences.
func normalizeBacktickRuns(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] != '`' {
			b.WriteByte(text[i])
			i++
			continue
		}
		run := 0
		for i+run < len(text) && text[i+run] == '`' {
			run++
		}
		switch {
		case run == 2:
			b.WriteString("`")
		case run >= 4:
			b.WriteString("```")
		default:
			b.WriteString(strings.Repeat("`", run))
		}
		i += run
	}
	return b.String()
}
