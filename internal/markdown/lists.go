package markdown

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// convertLists renders every top-level list recursively, then falls back to a
// flat bullet for any orphan list item that survived outside a list.
func convertLists(doc *goquery.Document) {
	var topLevel []*goquery.Selection
	doc.Find("ul, ol").Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("ul, ol").Length() == 0 {
			topLevel = append(topLevel, s)
		}
	})

	for _, list := range topLevel {
		if rendered := renderList(list, 0); rendered != "" {
			replaceWithText(list, "\n"+rendered+"\n")
		} else {
			list.Remove()
		}
	}

	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := strings.TrimSpace(li.Text()); text != "" {
			replaceWithText(li, "- "+text)
		} else {
			li.Remove()
		}
	})
}

// renderList emits one list level with two-space indentation per depth.
// Nested lists come out directly below their parent item.
func renderList(list *goquery.Selection, depth int) string {
	indent := strings.Repeat("  ", depth)
	ordered := goquery.NodeName(list) == "ol"

	var lines []string
	list.ChildrenFiltered("li").Each(func(i int, li *goquery.Selection) {
		if text := listItemText(li); text != "" {
			marker := "-"
			if ordered {
				marker = fmt.Sprintf("%d.", i+1)
			}
			lines = append(lines, indent+marker+" "+text)
		}

		li.ChildrenFiltered("ul, ol").Each(func(_ int, nested *goquery.Selection) {
			for _, line := range strings.Split(renderList(nested, depth+1), "\n") {
				if strings.TrimSpace(line) != "" {
					lines = append(lines, line)
				}
			}
		})
	})
	return strings.Join(lines, "\n")
}

// listItemText gathers the item's own text, skipping nested lists so their
// content is not duplicated at the parent level.
func listItemText(li *goquery.Selection) string {
	var parts []string
	li.Contents().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "ul", "ol":
		default:
			if text := strings.TrimSpace(child.Text()); text != "" {
				parts = append(parts, text)
			}
		}
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}
