// internal/aiclient/snapshot.go
package aiclient

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// sanitizeSnapshot parses the raw DOM and drops the subtrees the model never
// needs (scripts, styles, embedded SVG and frames, comments) before
// re-rendering. Storefront pages carry megabytes of bundled JS; stripping it
// keeps far more of the actual markup inside the snapshot budget. Markup the
// parser cannot handle is passed through unchanged.
func sanitizeSnapshot(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	pruneNode(doc)

	var b strings.Builder
	if err := html.Render(&b, doc); err != nil {
		return raw
	}
	return b.String()
}

func pruneNode(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if droppableNode(c) {
			n.RemoveChild(c)
			continue
		}
		pruneNode(c)
	}
}

func droppableNode(n *html.Node) bool {
	if n.Type == html.CommentNode {
		return true
	}
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript", "svg", "iframe":
		return true
	}
	return false
}

// truncateRunes cuts s to at most limit bytes without splitting a UTF-8
// rune; the prompt must stay valid UTF-8 end to end.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
