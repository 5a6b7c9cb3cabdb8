package epub

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"epr/epub/epubtest"
)

func load(t *testing.T, data []byte) (*Book, error) {
	t.Helper()
	return Load(context.Background(), data, 0, zaptest.NewLogger(t))
}

func TestLoadSample(t *testing.T) {
	book, err := load(t, epubtest.Sample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if book.Version != "3.0" || book.OPFPath != "OEBPS/content.opf" {
		t.Errorf("version/opf = %q/%q", book.Version, book.OPFPath)
	}

	wantMD := Metadata{
		Title:       "Sample Book",
		Creator:     "Jane Doe",
		Description: "A small book for tests.",
		Language:    "en-US",
		Publisher:   "Example Press",
		PubDate:     "2020-01-01",
		Identifier:  "urn:uuid:12345678-1234-1234-1234-123456789abc",
	}
	if book.Metadata != wantMD {
		t.Errorf("metadata = %+v, want %+v", book.Metadata, wantMD)
	}

	wantSpine := []SpineItem{
		{Idref: "ch1", Href: "Text/ch1.xhtml", Path: "OEBPS/Text/ch1.xhtml", MediaType: "application/xhtml+xml", Linear: true, Index: 0},
		{Idref: "ch2", Href: "Text/ch2.xhtml", Path: "OEBPS/Text/ch2.xhtml", MediaType: "application/xhtml+xml", Linear: true, Index: 1},
		{Idref: "ch3", Href: "Text/ch3.xhtml", Path: "OEBPS/Text/ch3.xhtml", MediaType: "application/xhtml+xml", Linear: false, Index: 2},
	}
	if len(book.Spine) != len(wantSpine) {
		t.Fatalf("spine length = %d, want %d", len(book.Spine), len(wantSpine))
	}
	for i, want := range wantSpine {
		if book.Spine[i] != want {
			t.Errorf("spine[%d] = %+v, want %+v", i, book.Spine[i], want)
		}
	}

	if len(book.TOC) != 3 {
		t.Fatalf("toc length = %d, want 3", len(book.TOC))
	}
	first := book.TOC[0]
	if first.ID != "nav-1" || first.Label != "Chapter One" || first.Href != "Text/ch1.xhtml" {
		t.Errorf("toc[0] = %+v", first)
	}
	if len(first.Children) != 1 || first.Children[0].Href != "Text/ch1.xhtml#sec1" || first.Children[0].ID != "Text/ch1.xhtml#sec1" {
		t.Errorf("toc[0].Children = %+v", first.Children)
	}
	if got := book.TOC[1]; got.Label != "Chapter Two" || got.ID != "Text/ch2.xhtml" {
		t.Errorf("toc[1] = %+v", got)
	}
	if got := book.TOC[2]; got.Label != "Appendix" || got.Href != "" || len(got.Children) != 1 {
		t.Errorf("toc[2] = %+v", got)
	}

	if len(book.ManifestOrder) != 6 || book.ManifestOrder[0] != "nav" {
		t.Errorf("manifest order = %v", book.ManifestOrder)
	}
	if !book.Manifest["nav"].HasProperty("nav") {
		t.Error("nav manifest item lost its properties")
	}
	if book.ID == "" {
		t.Error("book id is empty")
	}
	if len(book.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", book.Warnings)
	}
}

func TestLoadNCXFallback(t *testing.T) {
	files := epubtest.Replace(epubtest.SampleFiles(), "OEBPS/content.opf", epubtest.OPF([]string{
		"ncx|toc.ncx|application/x-dtbncx+xml",
		"ch1|Text/ch1.xhtml|application/xhtml+xml",
		"ch2|Text/ch2.xhtml|application/xhtml+xml",
	}, []string{"ch1", "ch2"}))
	book, err := load(t, epubtest.Build(t, files...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var got []string
	WalkTOC(book.TOC, func(depth int, n *TocNode) {
		got = append(got, strings.Repeat(">", depth)+n.ID+"="+n.Label+"@"+n.Href)
	})
	want := []string{
		"np1=NCX One@Text/ch1.xhtml",
		">np1-1=NCX One Sub@Text/ch1.xhtml#sec1",
		"np2=NCX Two@Text/ch2.xhtml",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("toc =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestLoadWithoutNavigation(t *testing.T) {
	files := epubtest.Replace(epubtest.SampleFiles(), "OEBPS/content.opf", epubtest.OPF([]string{
		"ch1|Text/ch1.xhtml|application/xhtml+xml",
	}, []string{"ch1"}))
	book, err := load(t, epubtest.Build(t, files...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.TOC == nil || len(book.TOC) != 0 {
		t.Errorf("toc = %#v, want empty", book.TOC)
	}
	if len(book.Warnings) != 1 || !strings.Contains(book.Warnings[0], "no usable navigation") {
		t.Errorf("warnings = %v", book.Warnings)
	}
	if book.Metadata.Title != "Sample Book" {
		t.Errorf("title = %q", book.Metadata.Title)
	}
}

func TestLoadBrokenNavigationFallsBack(t *testing.T) {
	files := epubtest.Replace(epubtest.SampleFiles(), "OEBPS/nav.xhtml", "")
	book, err := load(t, epubtest.Build(t, files...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(book.TOC) != 2 || book.TOC[0].ID != "np1" {
		t.Errorf("toc = %+v, want NCX entries", book.TOC)
	}
	if len(book.Warnings) != 1 || !strings.Contains(book.Warnings[0], "navigation document") {
		t.Errorf("warnings = %v", book.Warnings)
	}
}

func TestLoadNavWithSelfClosingElements(t *testing.T) {
	nav := `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title/><script type="text/javascript" src="nav.js"/></head>
<body>
<nav epub:type="toc">
  <ol>
    <li id="nav-1"><a id="start"/><a href="Text/ch1.xhtml">Chapter One</a></li>
    <li><span/><a href="Text/ch2.xhtml">Chapter Two</a></li>
  </ol>
</nav>
</body>
</html>`
	files := epubtest.Replace(epubtest.SampleFiles(), "OEBPS/nav.xhtml", nav)
	book, err := load(t, epubtest.Build(t, files...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var got []string
	WalkTOC(book.TOC, func(depth int, n *TocNode) {
		got = append(got, strings.Repeat(">", depth)+n.ID+"="+n.Label+"@"+n.Href)
	})
	want := []string{
		"nav-1=Chapter One@Text/ch1.xhtml",
		"Text/ch2.xhtml=Chapter Two@Text/ch2.xhtml",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("toc =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if len(book.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", book.Warnings)
	}
}

func TestLoadDuplicateItemref(t *testing.T) {
	files := epubtest.Replace(epubtest.SampleFiles(), "OEBPS/content.opf", epubtest.OPF([]string{
		"ch1|Text/ch1.xhtml|application/xhtml+xml",
		"ch2|Text/ch2.xhtml|application/xhtml+xml",
	}, []string{"ch1", "ch2", "ch1"}))
	book, err := load(t, epubtest.Build(t, files...))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(book.Spine) != 2 {
		t.Fatalf("spine = %+v, want two items", book.Spine)
	}
	for i, item := range book.Spine {
		if item.Index != i {
			t.Errorf("spine[%d].Index = %d", i, item.Index)
		}
	}
	found := false
	for _, w := range book.Warnings {
		found = found || strings.Contains(w, `duplicate spine itemref "ch1"`)
	}
	if !found {
		t.Errorf("warnings = %v, want duplicate itemref", book.Warnings)
	}
}

func TestLoadDefaultsForMissingMetadata(t *testing.T) {
	opf := `<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata/>
  <manifest><item id="c" href="c.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="c"/></spine>
</package>`
	data := epubtest.Build(t,
		epubtest.Container("content.opf"),
		epubtest.File{Name: "content.opf", Body: opf},
		epubtest.File{Name: "c.xhtml", Body: epubtest.Chapter("c", "")},
	)
	book, err := load(t, data)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Metadata.Title != DefaultTitle || book.Metadata.Creator != DefaultCreator {
		t.Errorf("metadata = %+v", book.Metadata)
	}
	if book.ID != "" {
		t.Errorf("id = %q, want empty without identifier", book.ID)
	}
	if book.Spine[0].Path != "c.xhtml" {
		t.Errorf("path = %q", book.Spine[0].Path)
	}
}

func TestLoadErrors(t *testing.T) {
	sample := epubtest.SampleFiles()
	tests := []struct {
		name string
		data func(t *testing.T) []byte
		want error
	}{
		{
			name: "not an archive",
			data: func(*testing.T) []byte { return []byte("definitely not a zip file") },
			want: ErrInvalidArchive,
		},
		{
			name: "no container",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "META-INF/container.xml", "")...)
			},
			want: ErrMissingContainer,
		},
		{
			name: "container without rootfile",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "META-INF/container.xml", `<container><rootfiles/></container>`)...)
			},
			want: ErrMissingContainer,
		},
		{
			name: "package document absent",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "OEBPS/content.opf", "")...)
			},
			want: ErrMalformedPackage,
		},
		{
			name: "package document is not xml",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "OEBPS/content.opf", "this is not xml")...)
			},
			want: ErrMalformedPackage,
		},
		{
			name: "unknown idref",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "OEBPS/content.opf", epubtest.OPF([]string{
					"ch1|Text/ch1.xhtml|application/xhtml+xml",
				}, []string{"ch1", "ghost"}))...)
			},
			want: ErrMalformedPackage,
		},
		{
			name: "no spine",
			data: func(t *testing.T) []byte {
				return epubtest.Build(t, epubtest.Replace(sample, "OEBPS/content.opf",
					`<package version="3.0"><metadata/><manifest/></package>`)...)
			},
			want: ErrMalformedPackage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book, err := load(t, tt.data(t))
			if book != nil {
				t.Error("partial book returned")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var pe *PackageError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *PackageError", err)
			}
		})
	}
}

func TestLoadCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, epubtest.Sample(t), 0, zaptest.NewLogger(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPackageErrorMatching(t *testing.T) {
	err := newPackageError(PackageErrorKindMissingContainer, "META-INF/container.xml", "boom")
	if !errors.Is(err, ErrMissingContainer) {
		t.Error("kind should match sentinel")
	}
	if errors.Is(err, ErrMalformedPackage) {
		t.Error("different kinds must not match")
	}
	if !strings.Contains(err.Error(), "MissingContainer") || !strings.Contains(err.Error(), "boom") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestBookID(t *testing.T) {
	md := Metadata{Identifier: "urn:isbn:9780000000000"}
	tests := []struct {
		name, file string
		md         Metadata
		want       string
	}{
		{name: "file name", file: "/books/My Book.epub", want: "my-book"},
		{name: "windows path", file: `C:\books\Other Book.EPUB`, want: "other-book"},
		{name: "identifier", md: md},
		{name: "nothing", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BookID(tt.file, tt.md)
			if tt.name == "identifier" {
				if len(got) != 36 || got != BookID("", tt.md) {
					t.Errorf("BookID = %q, want stable uuid", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("BookID(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestRebase(t *testing.T) {
	tests := []struct {
		opfDir, path, href, want string
	}{
		{"OEBPS", "OEBPS/nav/nav.xhtml", "../Text/ch1.xhtml#a", "Text/ch1.xhtml#a"},
		{".", "nav.xhtml", "ch1.xhtml", "ch1.xhtml"},
		{"OEBPS", "OEBPS/nav.xhtml", "#x", "nav.xhtml#x"},
		{"OEBPS", "Other/toc.ncx", "a.xhtml", "../Other/a.xhtml"},
		{"OEBPS", "OEBPS/toc.ncx", "http://example.com/x", "http://example.com/x"},
		{"OEBPS", "OEBPS/toc.ncx", "", ""},
	}
	for _, tt := range tests {
		src := navSource{opfDir: tt.opfDir, path: tt.path}
		if got := src.rebase(tt.href); got != tt.want {
			t.Errorf("rebase(%q, %q, %q) = %q, want %q", tt.opfDir, tt.path, tt.href, got, tt.want)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"en-us":     "en-US",
		"RU":        "ru",
		"not valid": "not valid",
	}
	for in, want := range tests {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBookClone(t *testing.T) {
	book, err := load(t, epubtest.Sample(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := book.Clone()
	c.Spine[0].Href = "changed"
	c.TOC[0].Children[0].Label = "changed"
	c.Manifest["nav"].Properties[0] = "changed"
	if book.Spine[0].Href == "changed" || book.TOC[0].Children[0].Label == "changed" || !book.Manifest["nav"].HasProperty("nav") {
		t.Error("clone shares state with original")
	}
}
