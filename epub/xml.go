package epub

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Named character references commonly found in hand made packages, which
// are not defined by XML.
var htmlEntityNames = []string{
	"nbsp", "shy", "ensp", "emsp", "thinsp", "zwnj", "zwj",
	"ndash", "mdash", "hellip", "bull", "middot", "prime", "Prime",
	"lsquo", "rsquo", "sbquo", "ldquo", "rdquo", "bdquo", "laquo", "raquo", "lsaquo", "rsaquo",
	"copy", "reg", "trade", "sect", "para", "deg", "plusmn", "times", "divide", "frac12", "frac14", "frac34",
	"iexcl", "iquest", "cent", "pound", "euro", "yen", "dagger", "Dagger", "permil",
	"Agrave", "Aacute", "Acirc", "Atilde", "Auml", "Aring", "AElig", "Ccedil",
	"Egrave", "Eacute", "Ecirc", "Euml", "Igrave", "Iacute", "Icirc", "Iuml",
	"Ntilde", "Ograve", "Oacute", "Ocirc", "Otilde", "Ouml", "Oslash",
	"Ugrave", "Uacute", "Ucirc", "Uuml", "Yacute", "szlig",
	"agrave", "aacute", "acirc", "atilde", "auml", "aring", "aelig", "ccedil",
	"egrave", "eacute", "ecirc", "euml", "igrave", "iacute", "icirc", "iuml",
	"ntilde", "ograve", "oacute", "ocirc", "otilde", "ouml", "oslash",
	"ugrave", "uacute", "ucirc", "uuml", "yacute", "yuml",
}

var htmlEntities = func() map[string]string {
	m := make(map[string]string, len(htmlEntityNames))
	for _, name := range htmlEntityNames {
		m[name] = html.UnescapeString("&" + name + ";")
	}
	return m
}()

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readXML parses XML document in permissive mode honoring declared
// encoding.
func readXML(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Entity:        htmlEntities,
		ValidateInput: false,
		Permissive:    true,
	}
	if err := doc.ReadFromBytes(bytes.TrimPrefix(data, utf8BOM)); err != nil {
		return nil, fmt.Errorf("unable to parse XML: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("XML document has no root element")
	}
	return doc, nil
}

// childText returns trimmed text of the first child element with given local
// name (any namespace prefix).
func childText(el *etree.Element, tag string) string {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			if s := collapse(c.Text()); s != "" {
				return s
			}
		}
	}
	return ""
}

// deepText collects all character data under element.
func deepText(el *etree.Element) string {
	var buf bytes.Buffer
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, t := range e.Child {
			switch v := t.(type) {
			case *etree.CharData:
				buf.WriteString(v.Data)
			case *etree.Element:
				walk(v)
			}
		}
	}
	walk(el)
	return collapse(buf.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
