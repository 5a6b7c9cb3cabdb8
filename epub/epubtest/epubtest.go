// Package epubtest builds small in-memory EPUB packages for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// File is single archive entry.
type File struct {
	Name string
	Body string
}

// Container returns container descriptor pointing to given package path.
func Container(opfPath string) File {
	return File{Name: "META-INF/container.xml", Body: fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="%s" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`, opfPath)}
}

// Build writes archive with "mimetype" stored first followed by files in
// given order.
func Build(tb testing.TB, files ...File) []byte {
	tb.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	mt, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		tb.Fatalf("unable to create mimetype: %v", err)
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		tb.Fatalf("unable to write mimetype: %v", err)
	}
	for _, f := range files {
		fw, err := w.Create(f.Name)
		if err != nil {
			tb.Fatalf("unable to create %s: %v", f.Name, err)
		}
		if _, err := fw.Write([]byte(f.Body)); err != nil {
			tb.Fatalf("unable to write %s: %v", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("unable to finish archive: %v", err)
	}
	return buf.Bytes()
}

// Chapter returns minimal XHTML document with given title and body markup.
func Chapter(title, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>%s</title><link rel="stylesheet" type="text/css" href="../Styles/style.css"/></head>
<body>%s</body>
</html>`, title, body)
}

// Stylesheet shipped with Sample.
const Stylesheet = "p{color:red !important;}\nh1 { margin: 0 }"

// OPF returns EPUB 3 package document. Items are "id|href|media-type|properties",
// spine lists idrefs.
func OPF(items []string, spine []string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="bookid">urn:uuid:12345678-1234-1234-1234-123456789abc</dc:identifier>
    <dc:title>Sample Book</dc:title>
    <dc:creator>Jane Doe</dc:creator>
    <dc:language>en-us</dc:language>
    <dc:publisher>Example Press</dc:publisher>
    <dc:date>2020-01-01</dc:date>
    <dc:description>A small  book
      for tests.</dc:description>
  </metadata>
  <manifest>
`)
	for _, it := range items {
		parts := strings.Split(it, "|")
		for len(parts) < 4 {
			parts = append(parts, "")
		}
		fmt.Fprintf(&sb, `    <item id="%s" href="%s" media-type="%s"`, parts[0], parts[1], parts[2])
		if parts[3] != "" {
			fmt.Fprintf(&sb, ` properties="%s"`, parts[3])
		}
		sb.WriteString("/>\n")
	}
	sb.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, idref := range spine {
		if idref, ok := strings.CutSuffix(idref, "!"); ok {
			fmt.Fprintf(&sb, "    <itemref idref=%q linear=\"no\"/>\n", idref)
			continue
		}
		fmt.Fprintf(&sb, "    <itemref idref=%q/>\n", idref)
	}
	sb.WriteString("  </spine>\n</package>")
	return sb.String()
}

// Nav is navigation document of Sample.
const Nav = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
<nav epub:type="landmarks"><ol><li><a href="Text/ch1.xhtml">Start</a></li></ol></nav>
<nav epub:type="toc" id="toc">
  <ol>
    <li id="nav-1"><a href="Text/ch1.xhtml">Chapter One</a>
      <ol>
        <li><a href="Text/ch1.xhtml#sec1">Section 1.1</a></li>
      </ol>
    </li>
    <li><a href="Text/ch2.xhtml">Chapter  Two</a></li>
    <li><span>Appendix</span>
      <ol><li><a href="Text/ch3.xhtml">Notes</a></li></ol>
    </li>
  </ol>
</nav>
</body>
</html>`

// NCX is navigation control file of Sample.
const NCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>NCX One</text></navLabel>
      <content src="Text/ch1.xhtml"/>
      <navPoint id="np1-1" playOrder="2">
        <navLabel><text>NCX One Sub</text></navLabel>
        <content src="Text/ch1.xhtml#sec1"/>
      </navPoint>
    </navPoint>
    <navPoint id="np2" playOrder="3">
      <navLabel><text>NCX Two</text></navLabel>
      <content src="Text/ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

// SampleFiles returns entries of three chapter EPUB 3 book with navigation
// document, NCX and shared stylesheet under OEBPS/.
func SampleFiles() []File {
	return []File{
		Container("OEBPS/content.opf"),
		{Name: "OEBPS/content.opf", Body: OPF([]string{
			"nav|nav.xhtml|application/xhtml+xml|nav",
			"ncx|toc.ncx|application/x-dtbncx+xml",
			"css|Styles/style.css|text/css",
			"ch1|Text/ch1.xhtml|application/xhtml+xml",
			"ch2|Text/ch2.xhtml|application/xhtml+xml",
			"ch3|Text/ch3.xhtml|application/xhtml+xml",
		}, []string{"ch1", "ch2", "ch3!"})},
		{Name: "OEBPS/nav.xhtml", Body: Nav},
		{Name: "OEBPS/toc.ncx", Body: NCX},
		{Name: "OEBPS/Styles/style.css", Body: Stylesheet},
		{Name: "OEBPS/Text/ch1.xhtml", Body: Chapter("One", `<h1 id="sec1">One</h1><p>First <a>plain text</a> chapter.</p>`)},
		{Name: "OEBPS/Text/ch2.xhtml", Body: Chapter("Two", `<p>Second<sup></sup><a data-type="noteref" href="#n1">1</a></p><pre>code</pre>`)},
		{Name: "OEBPS/Text/ch3.xhtml", Body: Chapter("Three", `<p id="n1">Notes</p>`)},
	}
}

// Sample builds book from SampleFiles.
func Sample(tb testing.TB) []byte {
	tb.Helper()
	return Build(tb, SampleFiles()...)
}

// Replace returns copy of files with named entry body substituted, entry is
// dropped when body is empty.
func Replace(files []File, name, body string) []File {
	res := make([]File, 0, len(files))
	for _, f := range files {
		if f.Name == name {
			if body == "" {
				continue
			}
			f.Body = body
		}
		res = append(res, f)
	}
	return res
}
