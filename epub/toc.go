package epub

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"epr/utils/xhtml"
)

// navSource reads navigation document and turns it into a tree. Hrefs are
// rebased to the package document directory so they are comparable to spine
// hrefs.
type navSource struct {
	opfDir string
	path   string
}

func (s navSource) rebase(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "#") {
		// fragment inside navigation document itself
		return s.rel(s.path) + href
	}
	if strings.Contains(href, "://") || strings.HasPrefix(href, "/") {
		return href
	}

	target, frag := href, ""
	if i := strings.IndexByte(href, '#'); i >= 0 {
		target, frag = href[:i], href[i:]
	}
	full := path.Clean(path.Join(path.Dir(s.path), target))
	if strings.HasPrefix(full, "../") || full == ".." {
		return href
	}
	return s.rel(full) + frag
}

// rel makes archive path relative to package directory when possible.
func (s navSource) rel(p string) string {
	if s.opfDir == "." || s.opfDir == "" {
		return p
	}
	if rest, ok := strings.CutPrefix(p, s.opfDir+"/"); ok {
		return rest
	}
	// outside of package directory, walk up
	up := strings.Count(s.opfDir, "/") + 1
	return strings.Repeat("../", up) + p
}

func newNode(id, label, href string) TocNode {
	if id == "" {
		id = href
	}
	return TocNode{ID: id, Label: label, Href: href}
}

// parseNav reads XHTML navigation document, toc nav is preferred, the first
// nav element is used otherwise.
func (s navSource) parseNav(data []byte) ([]TocNode, error) {
	doc, err := html.Parse(bytes.NewReader(xhtml.ExpandSelfClosing(bytes.TrimPrefix(data, utf8BOM))))
	if err != nil {
		return nil, fmt.Errorf("unable to parse navigation document: %w", err)
	}

	var first, toc *html.Node
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Nav {
			continue
		}
		if first == nil {
			first = n
		}
		if slices.Contains(strings.Fields(attr(n, "epub:type")), "toc") {
			toc = n
			break
		}
	}
	if toc == nil {
		toc = first
	}
	if toc == nil {
		return nil, nil
	}
	for n := range toc.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Ol {
			return s.navList(n), nil
		}
	}
	return nil, nil
}

func (s navSource) navList(ol *html.Node) []TocNode {
	var nodes []TocNode
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}

		var (
			id, label, href string
			children        []TocNode
			haveAnchor      bool
		)
		id = attr(li, "id")
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				text := collapse(textOf(c))
				// empty anchors are link targets, not entries
				if haveAnchor || (attr(c, "href") == "" && text == "") {
					continue
				}
				haveAnchor = true
				href = s.rebase(attr(c, "href"))
				label = text
				if id == "" {
					id = attr(c, "id")
				}
			case atom.Span:
				if label == "" {
					label = collapse(textOf(c))
				}
			case atom.Ol:
				children = s.navList(c)
			}
		}
		node := newNode(id, label, href)
		node.Children = children
		nodes = append(nodes, node)
	}
	return nodes
}

// parseNCX reads EPUB 2 navigation control file.
func (s navSource) parseNCX(data []byte) ([]TocNode, error) {
	doc, err := readXML(data)
	if err != nil {
		return nil, err
	}
	navMap := doc.Root().SelectElement("navMap")
	if navMap == nil {
		return nil, nil
	}
	return s.navPoints(navMap), nil
}

func (s navSource) navPoints(parent *etree.Element) []TocNode {
	var nodes []TocNode
	for _, np := range parent.SelectElements("navPoint") {
		var label, href string
		if nl := np.SelectElement("navLabel"); nl != nil {
			label = childText(nl, "text")
		}
		if c := np.SelectElement("content"); c != nil {
			href = s.rebase(c.SelectAttrValue("src", ""))
		}
		node := newNode(strings.TrimSpace(np.SelectAttrValue("id", "")), label, href)
		node.Children = s.navPoints(np)
		nodes = append(nodes, node)
	}
	return nodes
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}
