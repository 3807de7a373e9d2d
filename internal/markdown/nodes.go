package markdown

import (
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func textNode(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// replaceWithText swaps every node in the selection for a plain text node.
func replaceWithText(s *goquery.Selection, text string) {
	s.ReplaceWithNodes(textNode(text))
}

// unwrap splices a node's children into its parent in place of the node.
func unwrap(s *goquery.Selection) {
	for _, node := range s.Nodes {
		parent := node.Parent
		if parent == nil {
			continue
		}
		for child := node.FirstChild; child != nil; {
			next := child.NextSibling
			node.RemoveChild(child)
			parent.InsertBefore(child, node)
			child = next
		}
		parent.RemoveChild(node)
	}
}
