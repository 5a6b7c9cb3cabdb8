package sanitize

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Transform takes document tree and returns transformed copy. Input tree is
// never modified.
type Transform func(ctx context.Context, doc *html.Node) (*html.Node, error)

// cloneTree deep copies node with all its descendants.
func cloneTree(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneTree(child))
	}
	return c
}

// elements collects elements matching predicate in document order, so tree
// could be modified while iterating over result.
func elements(doc *html.Node, match func(*html.Node) bool) []*html.Node {
	var res []*html.Node
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && match(n) {
			res = append(res, n)
		}
	}
	return res
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasToken(list, token string) bool {
	for f := range strings.FieldsSeq(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// UnwrapAnchors replaces anchors without href by their children, childless
// ones are dropped.
func UnwrapAnchors(ctx context.Context, doc *html.Node) (*html.Node, error) {
	doc = cloneTree(doc)
	for _, a := range elements(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.A {
			return false
		}
		_, ok := getAttr(n, "href")
		return !ok
	}) {
		parent := a.Parent
		if parent == nil {
			continue
		}
		for c := a.FirstChild; c != nil; c = a.FirstChild {
			a.RemoveChild(c)
			parent.InsertBefore(c, a)
		}
		parent.RemoveChild(a)
	}
	return doc, ctx.Err()
}

// MarkNoTranslate excludes preformatted text and code from automatic
// translation.
func MarkNoTranslate(ctx context.Context, doc *html.Node) (*html.Node, error) {
	doc = cloneTree(doc)
	for _, n := range elements(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Pre || n.DataAtom == atom.Code
	}) {
		setAttr(n, "translate", "no")
		class, _ := getAttr(n, "class")
		if !hasToken(class, "notranslate") {
			setAttr(n, "class", strings.TrimSpace(class+" notranslate"))
		}
	}
	return doc, ctx.Err()
}

func isNoteRef(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode || n.DataAtom != atom.A {
		return false
	}
	for _, key := range []string{"data-type", "epub:type"} {
		if v, ok := getAttr(n, key); ok && strings.Contains(strings.ToLower(v), "noteref") {
			return true
		}
	}
	return false
}

// RepairFootnoteMarkers moves footnote reference anchor into empty <sup>
// directly preceding it.
func RepairFootnoteMarkers(ctx context.Context, doc *html.Node) (*html.Node, error) {
	doc = cloneTree(doc)
	for _, sup := range elements(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Sup && n.FirstChild == nil && isNoteRef(n.NextSibling)
	}) {
		a := sup.NextSibling
		sup.Parent.RemoveChild(a)
		sup.AppendChild(a)
	}
	return doc, ctx.Err()
}
