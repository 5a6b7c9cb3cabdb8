package debug

import (
	"strings"

	"epr/epub"
)

// Book dumps metadata, manifest, spine and table of contents of the book.
func Book(b *epub.Book) string {
	tw := NewTreeWriter()
	if b == nil {
		tw.Line(0, "<no book>")
		return tw.String()
	}

	tw.Line(0, "book %q version %s (%s)", b.ID, b.Version, b.OPFPath)

	tw.Line(1, "metadata")
	md := b.Metadata
	tw.Field(2, "title", md.Title)
	tw.Field(2, "creator", md.Creator)
	tw.Field(2, "language", md.Language)
	tw.Field(2, "publisher", md.Publisher)
	tw.Field(2, "date", md.PubDate)
	tw.Field(2, "identifier", md.Identifier)
	tw.Field(2, "description", md.Description)

	tw.Line(1, "manifest (%d)", len(b.ManifestOrder))
	for _, id := range b.ManifestOrder {
		item, ok := b.Manifest[id]
		if !ok {
			continue
		}
		props := ""
		if len(item.Properties) > 0 {
			props = " [" + strings.Join(item.Properties, " ") + "]"
		}
		tw.Line(2, "%s: %s %s%s", item.ID, item.Path, item.MediaType, props)
	}

	tw.Line(1, "spine (%d)", len(b.Spine))
	for _, item := range b.Spine {
		linear := ""
		if !item.Linear {
			linear = " (non-linear)"
		}
		tw.Line(2, "%d %s: %s%s", item.Index, item.Idref, item.Href, linear)
	}

	tw.Line(1, "toc")
	TOC(tw, 2, b.TOC)

	if len(b.Warnings) > 0 {
		tw.Line(1, "warnings (%d)", len(b.Warnings))
		for _, w := range b.Warnings {
			tw.Line(2, "%s", w)
		}
	}
	return tw.String()
}

// TOC writes navigation tree starting at depth.
func TOC(tw *TreeWriter, depth int, nodes []epub.TocNode) {
	epub.WalkTOC(nodes, func(d int, n *epub.TocNode) {
		if n.Href == "" {
			tw.Line(depth+d, "%s", n.Label)
			return
		}
		tw.Line(depth+d, "%s -> %s", n.Label, n.Href)
	})
}
