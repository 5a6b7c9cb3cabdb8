package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/language"

	"epr/archive"
)

const ncxMediaType = "application/x-dtbncx+xml"

// packageDoc is parsed package document before navigation is attached.
type packageDoc struct {
	path     string
	version  string
	root     *etree.Element
	manifest map[string]ManifestItem
	order    []string
	spine    []SpineItem
	tocID    string
	warnings []string
}

func (p *packageDoc) warn(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func parsePackage(opfPath string, data []byte) (*packageDoc, error) {
	doc, err := readXML(data)
	if err != nil {
		return nil, &PackageError{Kind: PackageErrorKindMalformedPackage, Path: opfPath, Err: err}
	}
	root := doc.Root()
	if root.Tag != "package" {
		return nil, newPackageError(PackageErrorKindMalformedPackage, opfPath, "unexpected root element <%s>", root.FullTag())
	}

	p := &packageDoc{
		path:     opfPath,
		version:  strings.TrimSpace(root.SelectAttrValue("version", "")),
		root:     root,
		manifest: make(map[string]ManifestItem),
	}
	if err := p.parseManifest(root.SelectElement("manifest")); err != nil {
		return nil, err
	}
	if err := p.parseSpine(root.SelectElement("spine")); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *packageDoc) parseManifest(manifest *etree.Element) error {
	if manifest == nil {
		return newPackageError(PackageErrorKindMalformedPackage, p.path, "package has no manifest")
	}
	for _, el := range manifest.SelectElements("item") {
		id := strings.TrimSpace(el.SelectAttrValue("id", ""))
		href := strings.TrimSpace(el.SelectAttrValue("href", ""))
		if id == "" || href == "" {
			p.warn("manifest item without id or href ignored (id=%q, href=%q)", id, href)
			continue
		}
		if _, exists := p.manifest[id]; exists {
			p.warn("duplicate manifest id %q ignored", id)
			continue
		}
		item := ManifestItem{
			ID:         id,
			Href:       href,
			Path:       archive.Resolve(p.path, href),
			MediaType:  strings.ToLower(strings.TrimSpace(el.SelectAttrValue("media-type", ""))),
			Properties: strings.Fields(el.SelectAttrValue("properties", "")),
		}
		if item.Path == "" {
			p.warn("manifest item %q points outside of the archive: %s", id, href)
		}
		p.manifest[id] = item
		p.order = append(p.order, id)
	}
	return nil
}

func (p *packageDoc) parseSpine(spine *etree.Element) error {
	if spine == nil {
		return newPackageError(PackageErrorKindMalformedPackage, p.path, "package has no spine")
	}
	p.tocID = strings.TrimSpace(spine.SelectAttrValue("toc", ""))

	seen := make(map[string]struct{})
	for _, el := range spine.SelectElements("itemref") {
		idref := strings.TrimSpace(el.SelectAttrValue("idref", ""))
		item, ok := p.manifest[idref]
		if !ok {
			return newPackageError(PackageErrorKindMalformedPackage, p.path, "spine references unknown manifest item %q", idref)
		}
		if _, dup := seen[idref]; dup {
			p.warn("duplicate spine itemref %q skipped", idref)
			continue
		}
		seen[idref] = struct{}{}
		p.spine = append(p.spine, SpineItem{
			Idref:     idref,
			Href:      item.Href,
			Path:      item.Path,
			MediaType: item.MediaType,
			Linear:    !strings.EqualFold(strings.TrimSpace(el.SelectAttrValue("linear", "")), "no"),
			Index:     len(p.spine),
		})
	}
	return nil
}

// metadata extracts descriptive fields, falling back to defaults for title
// and creator.
func (p *packageDoc) metadata() Metadata {
	md := Metadata{Title: DefaultTitle, Creator: DefaultCreator}

	el := p.root.SelectElement("metadata")
	if el == nil {
		return md
	}
	// EPUB 2 packages sometimes nest Dublin Core elements one level deeper
	if dc := el.SelectElement("dc-metadata"); dc != nil {
		el = dc
	}

	if s := childText(el, "title"); s != "" {
		md.Title = s
	}
	if s := childText(el, "creator"); s != "" {
		md.Creator = s
	}
	if d := el.SelectElement("description"); d != nil {
		md.Description = deepText(d)
	}
	md.Language = normalizeLanguage(childText(el, "language"))
	md.Publisher = childText(el, "publisher")
	md.PubDate = childText(el, "date")
	md.Identifier = p.identifier(el)
	return md
}

// identifier prefers the one referenced by package unique-identifier.
func (p *packageDoc) identifier(md *etree.Element) string {
	uid := strings.TrimSpace(p.root.SelectAttrValue("unique-identifier", ""))
	var first string
	for _, c := range md.SelectElements("identifier") {
		val := collapse(c.Text())
		if val == "" {
			continue
		}
		if uid != "" && c.SelectAttrValue("id", "") == uid {
			return val
		}
		if first == "" {
			first = val
		}
	}
	return first
}

// findNav returns manifest item of EPUB 3 navigation document.
func (p *packageDoc) findNav() (ManifestItem, bool) {
	for _, id := range p.order {
		if item := p.manifest[id]; item.HasProperty("nav") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// findNCX returns NCX named by spine or the first one of NCX media type.
func (p *packageDoc) findNCX() (ManifestItem, bool) {
	if item, ok := p.manifest[p.tocID]; ok && p.tocID != "" {
		return item, true
	}
	for _, id := range p.order {
		if item := p.manifest[id]; item.MediaType == ncxMediaType {
			return item, true
		}
	}
	return ManifestItem{}, false
}

func normalizeLanguage(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}
