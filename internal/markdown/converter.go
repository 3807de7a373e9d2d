// Package markdown converts raw HTML snapshots of the rendered assistant
// reply into clean Markdown. Conversion is best-effort: any internal failure
// yields the original input, never an error on the response path.
package markdown

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// CacheEntry is one converted snapshot keyed by the hash of its raw HTML.
type CacheEntry struct {
	Markdown  string    `json:"markdown"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache stores converted snapshots so an unchanged poll does not reparse.
type Cache interface {
	Get(key string) (CacheEntry, bool)
	Put(key string, entry CacheEntry)
}

// Decorative site chrome removed outright before structural conversion.
var uiSelectors = []string{
	".md-code-block-banner",
	".code-info-button-text",
	".ds-button",
	".d813de27",
	".efa13877",
	".d2a24f03",
	`[role="button"]`,
	".ds-button__icon",
	".ds-icon",
}

// Converter performs the ordered HTML-to-Markdown pipeline.
type Converter struct {
	cache Cache
	log   *logrus.Logger
}

func NewConverter(cache Cache, log *logrus.Logger) *Converter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Converter{cache: cache, log: log}
}

// ContentHash keys cache entries and change detection on snapshot bytes.
func ContentHash(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Convert turns one HTML snapshot into Markdown. A cache hit skips
// reprocessing; a conversion failure returns the input unchanged.
func (c *Converter) Convert(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}

	key := ContentHash(htmlContent)
	if c.cache != nil {
		if entry, ok := c.cache.Get(key); ok {
			return entry.Markdown
		}
	}

	result, err := c.convert(htmlContent)
	if err != nil {
		c.log.WithError(err).Warn("html to markdown conversion failed, returning raw content")
		return htmlContent
	}

	if c.cache != nil {
		c.cache.Put(key, CacheEntry{Markdown: result, UpdatedAt: time.Now()})
	}
	return result
}

func (c *Converter) convert(htmlContent string) (result string, err error) {
	// The stages below assume each other's normalization; a panic anywhere
	// must not take down the response path.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panic: %v", r)
		}
	}()

	cleaned := stripEmphasisInStrong(htmlContent)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return "", err
	}

	decodePassthroughSpans(doc)
	convertCodeBlocks(doc)
	removeUIElements(doc)
	convertStructural(doc)
	convertLists(doc)
	spaceParagraphs(doc)
	convertInline(doc)
	convertTables(doc)
	unwrapResiduals(doc)

	return finalCleanup(doc.Text()), nil
}

// stripEmphasisInStrong drops <em>/</em> tags while inside a <strong> span.
// A single linear scan on purpose: a full parse would re-nest the broken
// markup this stage exists to fix.
func stripEmphasisInStrong(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case strings.HasPrefix(s[i:], "<strong>"):
			depth++
			b.WriteString("<strong>")
			i += len("<strong>")
		case strings.HasPrefix(s[i:], "</strong>"):
			if depth > 0 {
				depth--
			}
			b.WriteString("</strong>")
			i += len("</strong>")
		case depth > 0 && strings.HasPrefix(s[i:], "<em>"):
			i += len("<em>")
		case depth > 0 && strings.HasPrefix(s[i:], "</em>"):
			i += len("</em>")
		default:
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// decodePassthroughSpans replaces raw-HTML passthrough spans with their
// entity-decoded text. These spans carry double-escaped markup the site
// renders literally.
func decodePassthroughSpans(doc *goquery.Document) {
	doc.Find("span.ds-markdown-html").Each(func(_ int, s *goquery.Selection) {
		replaceWithText(s, decodeEntities(s.Text()))
	})
}

func decodeEntities(s string) string {
	r := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&nbsp;", " ",
		"&quot;", `"`,
	)
	return r.Replace(s)
}

// convertCodeBlocks renders each code-block container to a fenced block,
// keeping the language label when it is meaningful.
func convertCodeBlocks(doc *goquery.Document) {
	doc.Find("div.md-code-block").Each(func(_ int, s *goquery.Selection) {
		pre := s.Find("pre").First()
		if pre.Length() == 0 {
			return
		}
		code := strings.TrimSpace(pre.Text())

		language := strings.TrimSpace(s.Find("span.d813de27").First().Text())
		if lower := strings.ToLower(language); lower == "text" || lower == "" {
			language = ""
		}

		replaceWithText(s, fmt.Sprintf("\n```%s\n%s\n```\n", language, code))
	})
}

func removeUIElements(doc *goquery.Document) {
	doc.Find("script, style, meta, link").Remove()
	for _, selector := range uiSelectors {
		doc.Find(selector).Remove()
	}
}

func convertStructural(doc *goquery.Document) {
	for level := 1; level <= 6; level++ {
		marker := strings.Repeat("#", level)
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, s *goquery.Selection) {
			replaceWithText(s, fmt.Sprintf("\n%s %s\n", marker, s.Text()))
		})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		href := s.AttrOr("href", "")
		if text != "" && href != "" {
			replaceWithText(s, fmt.Sprintf("[%s](%s)", text, href))
		}
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		replaceWithText(s, fmt.Sprintf("![%s](%s)", s.AttrOr("alt", ""), s.AttrOr("src", "")))
	})

	doc.Find("blockquote").Each(func(_ int, s *goquery.Selection) {
		lines := strings.Split(strings.TrimSpace(s.Text()), "\n")
		for i, line := range lines {
			lines[i] = "> " + line
		}
		replaceWithText(s, "\n"+strings.Join(lines, "\n")+"\n")
	})

	doc.Find("hr").Each(func(_ int, s *goquery.Selection) {
		replaceWithText(s, "\n---\n")
	})

	doc.Find("br").Each(func(_ int, s *goquery.Selection) {
		replaceWithText(s, "\n")
	})
}

// spaceParagraphs separates sibling paragraphs with a blank line before the
// surrounding tags are unwrapped.
func spaceParagraphs(doc *goquery.Document) {
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		s.AfterNodes(textNode("\n\n"))
	})
}

func convertInline(doc *goquery.Document) {
	// Inline code first; converted code blocks are already text nodes, so
	// anything still matching is inline.
	doc.Find("code").Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		if strings.TrimSpace(text) == "" {
			return
		}
		trimmed := strings.TrimSpace(text)
		if strings.Contains(text, "\n") && len(strings.Split(trimmed, "\n")) > 1 {
			replaceWithText(s, "\n```\n"+trimmed+"\n```\n")
		} else {
			replaceWithText(s, "`"+text+"`")
		}
	})

	doc.Find("strong, b").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			replaceWithText(s, "**"+text+"**")
		}
	})

	doc.Find("em, i").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			replaceWithText(s, "*"+text+"*")
		}
	})
}

// convertTables renders pipe tables. A table that yields no header row
// degrades to unwrapping so one bad table cannot abort the document.
func convertTables(doc *goquery.Document) {
	doc.Find("table").Each(func(_ int, s *goquery.Selection) {
		rows := s.Find("tr")
		if rows.Length() == 0 {
			unwrap(s)
			return
		}

		var headers []string
		rows.First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		if len(headers) == 0 {
			unwrap(s)
			return
		}

		var lines []string
		lines = append(lines, "| "+strings.Join(headers, " | ")+" |")

		separators := make([]string, len(headers))
		for i := range separators {
			separators[i] = "---"
		}
		lines = append(lines, "| "+strings.Join(separators, " | ")+" |")

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
			}
		})

		replaceWithText(s, "\n"+strings.Join(lines, "\n")+"\n")
	})
}

// unwrapResiduals promotes the children of leftover grouping elements.
// Passthrough spans were already replaced in the entity stage.
func unwrapResiduals(doc *goquery.Document) {
	doc.Find("span").Each(func(_ int, s *goquery.Selection) {
		if !s.HasClass("ds-markdown-html") {
			unwrap(s)
		}
	})
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		unwrap(s)
	})
}
