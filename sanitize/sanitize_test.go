package sanitize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"
)

// mapReader serves archive entries from memory.
type mapReader map[string]string

func (m mapReader) ReadResource(path string) ([]byte, error) {
	if s, ok := m[path]; ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("no such resource: %s", path)
}

func newPipeline(t *testing.T, files mapReader, opts ...Option) *Pipeline {
	t.Helper()
	fetcher := &Router{Archive: &ArchiveFetcher{Reader: files}}
	return New(fetcher, zaptest.NewLogger(t), opts...)
}

func run(t *testing.T, p *Pipeline, raw string) string {
	t.Helper()
	src := Source{Idref: "ch1", Href: "Text/ch1.xhtml", Path: "OEBPS/Text/ch1.xhtml"}
	res, err := p.Run(context.Background(), src, []byte(raw))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Idref != src.Idref || res.Href != src.Href {
		t.Errorf("content identity = %s/%s", res.Idref, res.Href)
	}
	return res.Content
}

func body(t *testing.T, s string) string {
	t.Helper()
	start := strings.Index(s, "<body>")
	end := strings.LastIndex(s, "</body>")
	if start < 0 || end < 0 {
		t.Fatalf("no body in %q", s)
	}
	return s[start+len("<body>") : end]
}

type transformCase struct {
	name string
	head string
	in   string
	want string
}

func (tc transformCase) document() string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head>` + tc.head + "</head><body>" + tc.in + "</body></html>"
}

var transformCases = []transformCase{
	{name: "anchor unwrapped", in: `<p><a>plain text</a></p>`, want: `<p>plain text</p>`},
	{name: "empty anchor removed", in: `<p>x<a></a>y</p>`, want: `<p>xy</p>`},
	{name: "anchor with markup unwrapped", in: `<p><a id="x"><b>bold</b> tail</a></p>`, want: `<p><b>bold</b> tail</p>`},
	{name: "link kept", in: `<p><a href="#n">n</a></p>`, want: `<p><a href="#n">n</a></p>`},
	{name: "pre marked", in: `<pre>x</pre>`, want: `<pre translate="no" class="notranslate">x</pre>`},
	{name: "code class appended", in: `<code class="lang-go">x</code>`, want: `<code class="lang-go notranslate" translate="no">x</code>`},
	{name: "code already marked", in: `<code class="notranslate" translate="no">x</code>`, want: `<code class="notranslate" translate="no">x</code>`},
	{
		name: "footnote repaired",
		in:   `<p>text<sup></sup><a data-type="noteref" href="#n1">1</a></p>`,
		want: `<p>text<sup><a data-type="noteref" href="#n1">1</a></sup></p>`,
	},
	{
		name: "footnote repaired epub type",
		in:   `<p><sup></sup><a epub:type="noteref" href="#n2">2</a></p>`,
		want: `<p><sup><a epub:type="noteref" href="#n2">2</a></sup></p>`,
	},
	{
		name: "non empty sup untouched",
		in:   `<p><sup>*</sup><a data-type="noteref" href="#n1">1</a></p>`,
		want: `<p><sup>*</sup><a data-type="noteref" href="#n1">1</a></p>`,
	},
	{
		name: "plain anchor after sup untouched",
		in:   `<p><sup></sup><a href="#n1">1</a></p>`,
		want: `<p><sup></sup><a href="#n1">1</a></p>`,
	},
	{
		name: "unwrap happens before repair",
		in:   `<p><sup></sup><a data-type="noteref">1</a></p>`,
		want: `<p><sup></sup>1</p>`,
	},
	{
		name: "self-closing title keeps body",
		head: `<title/>`,
		in:   `<p>Chapter text</p>`,
		want: `<p>Chapter text</p>`,
	},
	{
		name: "self-closing script keeps body",
		head: `<script type="text/javascript" src="../js/a.js"/>`,
		in:   `<p>Chapter text</p>`,
		want: `<p>Chapter text</p>`,
	},
	{name: "self-closing div does not nest", in: `<div class="x"/><p>after</p>`, want: `<div class="x"></div><p>after</p>`},
	{name: "self-closing target anchor removed", in: `<p><a id="p1"/>text</p>`, want: `<p>text</p>`},
	{name: "void elements kept", in: `<p>a<br/>b<img src="i.png" alt=""/></p>`, want: `<p>a<br/>b<img src="i.png" alt=""/></p>`},
}

func TestPipelineTransforms(t *testing.T) {
	p := newPipeline(t, mapReader{})
	for _, tt := range transformCases {
		t.Run(tt.name, func(t *testing.T) {
			got := body(t, run(t, p, tt.document()))
			if got != tt.want {
				t.Errorf("got %s\nwant %s", got, tt.want)
			}
		})
	}
}

const chapter = `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>t</title>
<link rel="stylesheet" type="text/css" href="../Styles/main.css"/>
<link rel="alternate stylesheet" href="../Styles/missing.css"/>
</head>
<body><p><a>plain</a><sup></sup><a data-type="noteref" href="#n1">1</a></p><pre>code</pre></body>
</html>`

func TestPipelineInlinesStylesheets(t *testing.T) {
	files := mapReader{
		"OEBPS/Styles/main.css": `@import "base.css";
p{color:red !important;}`,
		"OEBPS/Styles/base.css": `body{margin:0 !important}`,
	}
	out := run(t, newPipeline(t, files), chapter)

	if strings.Contains(out, "<link") {
		t.Errorf("links left in output: %s", out)
	}
	if strings.Contains(out, "!important") || strings.Contains(out, "<?xml") {
		t.Errorf("unexpected content: %s", out)
	}
	want := "<style type=\"text/css\">body{margin:0}\np{color:red;}</style>"
	if !strings.Contains(out, want) {
		t.Errorf("inlined stylesheet missing\n got: %s\nwant: %s", out, want)
	}
	if strings.Count(out, "<style") != 1 {
		t.Errorf("failed fetch must not produce style: %s", out)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	files := mapReader{
		"OEBPS/Styles/main.css":   "p{color:red !important;}",
		"OEBPS/Styles/escape.css": `p{color:red}</style><script>alert(1)</script><style>`,
	}
	p := newPipeline(t, files)

	docs := map[string]string{
		"chapter": chapter,
		"stylesheet with markup": `<html><head><link rel="stylesheet" href="../Styles/escape.css"/></head><body><p>x</p></body></html>`,
	}
	for _, tc := range transformCases {
		docs[tc.name] = tc.document()
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			once := run(t, p, doc)
			twice := run(t, p, once)
			if once != twice {
				t.Errorf("pipeline is not idempotent\nonce:  %s\ntwice: %s", once, twice)
			}
		})
	}
}

func TestPipelineStylesheetCannotInjectMarkup(t *testing.T) {
	files := mapReader{"OEBPS/Styles/evil.css": `p{color:red}</style><script>alert(1)</script><style>`}
	out := run(t, newPipeline(t, files), `<html><head><link rel="stylesheet" href="../Styles/evil.css"/></head><body><p>x</p></body></html>`)

	if strings.Contains(out, "<script") || strings.Count(out, "</style>") != 1 {
		t.Errorf("stylesheet escaped its element: %s", out)
	}
	want := `<style type="text/css">p{color:red}\3c /style>\3c script>alert(1)\3c /script>\3c style></style>`
	if !strings.Contains(out, want) {
		t.Errorf("got %s\nwant %s", out, want)
	}

	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && n.Data == "script" {
			t.Fatalf("script element in output: %s", out)
		}
	}
}

func TestTransformsDoNotModifyInput(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<p><a>x</a><pre>y</pre><sup></sup><a data-type="noteref" href="#n">1</a></p>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var before bytes.Buffer
	_ = html.Render(&before, doc)

	for _, tr := range []Transform{UnwrapAnchors, MarkNoTranslate, RepairFootnoteMarkers} {
		if _, err := tr(context.Background(), doc); err != nil {
			t.Fatalf("transform: %v", err)
		}
	}
	var after bytes.Buffer
	_ = html.Render(&after, doc)
	if before.String() != after.String() {
		t.Errorf("input changed:\n%s\n%s", before.String(), after.String())
	}
}

func TestPipelineCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t, mapReader{}).Run(ctx, Source{}, []byte(chapter))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

// blockingFetcher waits for context to be canceled before answering.
type blockingFetcher struct {
	started chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, base, href string) (Resource, error) {
	close(f.started)
	<-ctx.Done()
	return Resource{}, ctx.Err()
}

func TestPipelineCanceledDuringFetch(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{})}
	p := New(f, zaptest.NewLogger(t), WithFetchTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-f.started
		cancel()
	}()
	res, err := p.Run(ctx, Source{Path: "OEBPS/Text/ch1.xhtml"}, []byte(`<html><head><link rel="stylesheet" href="a.css"></head><body></body></html>`))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if res.Content != "" {
		t.Error("partial content returned")
	}
}

func TestFetchTimeout(t *testing.T) {
	f := &blockingFetcher{started: make(chan struct{})}
	p := New(f, zaptest.NewLogger(t), WithFetchTimeout(20*time.Millisecond))
	out := run(t, p, `<html><head><link rel="stylesheet" href="a.css"></head><body><p>x</p></body></html>`)
	if strings.Contains(out, "<link") || strings.Contains(out, "<style") {
		t.Errorf("timed out stylesheet must be dropped: %s", out)
	}
}

func TestImportCycle(t *testing.T) {
	files := mapReader{
		"OEBPS/Styles/a.css": `@import "b.css"; a{x:1}`,
		"OEBPS/Styles/b.css": `@import "a.css"; b{y:2}`,
	}
	out := run(t, newPipeline(t, files), `<html><head><link rel="stylesheet" href="../Styles/a.css"></head><body></body></html>`)
	if !strings.Contains(out, "b{y:2}\na{x:1}") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestRouter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "epr-test" {
			http.Error(w, "bad agent", http.StatusForbidden)
			return
		}
		switch r.URL.Path {
		case "/main.css":
			fmt.Fprint(w, `@import "extra.css"; p{color:blue !important}`)
		case "/extra.css":
			fmt.Fprint(w, `em{font-style:normal}`)
		case "/huge.css":
			fmt.Fprint(w, strings.Repeat("a", 2048))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	files := mapReader{"OEBPS/Styles/main.css": "h1{}"}
	remote := &HTTPFetcher{Client: srv.Client(), UserAgent: "epr-test", MaxSize: 1024}
	router := &Router{Archive: &ArchiveFetcher{Reader: files}, Remote: remote, Log: zaptest.NewLogger(t)}
	ctx := context.Background()
	base := "OEBPS/Text/ch1.xhtml"

	t.Run("archive", func(t *testing.T) {
		res, err := router.Fetch(ctx, base, "../Styles/main.css")
		if err != nil || res.Location != "OEBPS/Styles/main.css" || string(res.Data) != "h1{}" {
			t.Errorf("Fetch = %+v, %v", res, err)
		}
	})
	t.Run("remote", func(t *testing.T) {
		res, err := router.Fetch(ctx, base, srv.URL+"/main.css")
		if err != nil || !strings.Contains(string(res.Data), "color:blue") {
			t.Errorf("Fetch = %+v, %v", res, err)
		}
		rel, err := router.Fetch(ctx, res.Location, "extra.css")
		if err != nil || string(rel.Data) != "em{font-style:normal}" {
			t.Errorf("relative to remote = %+v, %v", rel, err)
		}
	})
	t.Run("remote errors", func(t *testing.T) {
		for _, href := range []string{srv.URL + "/absent.css", srv.URL + "/huge.css"} {
			if _, err := router.Fetch(ctx, base, href); err == nil {
				t.Errorf("Fetch(%s) expected error", href)
			}
		}
	})
	t.Run("refused", func(t *testing.T) {
		for _, href := range []string{"data:text/css,p{}", "file:///etc/passwd", "", "../../../../escape.css"} {
			if _, err := router.Fetch(ctx, base, href); !errors.Is(err, ErrRefused) {
				t.Errorf("Fetch(%q) error = %v, want ErrRefused", href, err)
			}
		}
		noRemote := &Router{Archive: router.Archive}
		if _, err := noRemote.Fetch(ctx, base, srv.URL+"/main.css"); !errors.Is(err, ErrRefused) {
			t.Errorf("remote without fetcher error = %v, want ErrRefused", err)
		}
	})

	t.Run("pipeline", func(t *testing.T) {
		p := New(router, zaptest.NewLogger(t), WithConcurrency(2))
		out := run(t, p, `<html><head><link rel="stylesheet" href="`+srv.URL+`/main.css"><link rel="stylesheet" href="../Styles/main.css"></head><body></body></html>`)
		want := `<style type="text/css">em{font-style:normal}
p{color:blue}</style><style type="text/css">h1{}</style>`
		if !strings.Contains(out, want) {
			t.Errorf("got %s\nwant %s", out, want)
		}
	})
}
