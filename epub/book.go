package epub

import (
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	DefaultTitle   = "Unknown Title"
	DefaultCreator = "Unknown Author"
)

// Metadata is descriptive information from the package document.
type Metadata struct {
	Title       string `json:"title"`
	Creator     string `json:"creator"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	PubDate     string `json:"pubdate,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
}

// ManifestItem is a single resource declared by the package document. Href
// is relative to the package document, Path is rooted in the archive.
type ManifestItem struct {
	ID         string
	Href       string
	Path       string
	MediaType  string
	Properties []string
}

// HasProperty reports whether item declares given property.
func (m ManifestItem) HasProperty(name string) bool {
	return slices.Contains(m.Properties, name)
}

// SpineItem is one entry of the reading order.
type SpineItem struct {
	Idref     string
	Href      string
	Path      string
	MediaType string
	Linear    bool
	Index     int
}

// TocNode is one entry of the navigation hierarchy. Href is relative to the
// package document, like spine hrefs, and may carry a fragment.
type TocNode struct {
	ID       string
	Label    string
	Href     string
	Children []TocNode
}

// Book is fully parsed package. It holds no reference to archive content.
type Book struct {
	// ID is progress key, see BookID.
	ID            string
	Version       string
	OPFPath       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem
	ManifestOrder []string
	Spine         []SpineItem
	TOC           []TocNode
	Warnings      []string
}

// Clone returns deep copy of the book.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Manifest = make(map[string]ManifestItem, len(b.Manifest))
	for id, item := range b.Manifest {
		item.Properties = slices.Clone(item.Properties)
		c.Manifest[id] = item
	}
	c.ManifestOrder = slices.Clone(b.ManifestOrder)
	c.Spine = slices.Clone(b.Spine)
	c.TOC = CloneTOC(b.TOC)
	c.Warnings = slices.Clone(b.Warnings)
	return &c
}

// CloneTOC deep copies navigation tree.
func CloneTOC(nodes []TocNode) []TocNode {
	if nodes == nil {
		return nil
	}
	res := make([]TocNode, len(nodes))
	for i, n := range nodes {
		n.Children = CloneTOC(n.Children)
		res[i] = n
	}
	return res
}

// WalkTOC visits navigation tree depth first.
func WalkTOC(nodes []TocNode, fn func(depth int, node *TocNode)) {
	walkTOC(nodes, 0, fn)
}

func walkTOC(nodes []TocNode, depth int, fn func(int, *TocNode)) {
	for i := range nodes {
		fn(depth, &nodes[i])
		walkTOC(nodes[i].Children, depth+1, fn)
	}
}

// BookID derives a stable key for stored progress. When file name is known
// its slug is used, otherwise name based UUID of the package identifier.
// Empty result means book could not be identified.
func BookID(name string, md Metadata) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if ext := path.Ext(base); strings.EqualFold(ext, ".epub") {
		base = strings.TrimSuffix(base, ext)
	}
	if base != "" && base != "." && base != "/" {
		if id := slug.Make(base); id != "" {
			return id
		}
	}
	if id := strings.TrimSpace(md.Identifier); id != "" {
		return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
	}
	return ""
}
