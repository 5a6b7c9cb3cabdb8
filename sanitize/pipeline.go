// Package sanitize turns raw chapter markup into content safe to display.
package sanitize

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"epr/config"
	"epr/css"
	"epr/utils/xhtml"
)

// Source identifies chapter being sanitized. Path is archive location of
// the chapter, relative stylesheet links are resolved against it.
type Source struct {
	Idref string
	Href  string
	Path  string
}

// ChapterContent is sanitized chapter ready for display.
type ChapterContent struct {
	Idref   string `json:"idref"`
	Href    string `json:"href"`
	Content string `json:"content"`
}

// Pipeline applies fixed sequence of transforms to chapter markup.
type Pipeline struct {
	fetcher           Fetcher
	cleaner           *css.Cleaner
	concurrency       int
	timeout           time.Duration
	maxStylesheetSize int64
	log               *zap.Logger
}

type Option func(*Pipeline)

func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMaxStylesheetSize(n int64) Option {
	return func(p *Pipeline) {
		p.maxStylesheetSize = n
	}
}

// WithConfig applies sanitize section of configuration.
func WithConfig(cfg *config.SanitizeConfig) Option {
	return func(p *Pipeline) {
		WithConcurrency(cfg.FetchConcurrency)(p)
		WithFetchTimeout(cfg.FetchTimeout)(p)
		WithMaxStylesheetSize(cfg.MaxStylesheetSize)(p)
	}
}

func New(fetcher Fetcher, log *zap.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Pipeline{
		fetcher:     fetcher,
		concurrency: 4,
		timeout:     10 * time.Second,
		log:         log.Named("sanitize"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cleaner = css.NewCleaner(p.log)
	return p
}

// Transforms returns the ordered transform list for a chapter. Anchors are
// unwrapped before styles are inlined.
func (p *Pipeline) Transforms(src Source) []Transform {
	return []Transform{
		UnwrapAnchors,
		MarkNoTranslate,
		RepairFootnoteMarkers,
		p.InlineStylesheets(src.Path),
	}
}

// Run sanitizes raw chapter markup. Either complete content or error is
// returned, the only error sources are markup parsing and ctx.
func (p *Pipeline) Run(ctx context.Context, src Source, raw []byte) (ChapterContent, error) {
	if err := ctx.Err(); err != nil {
		return ChapterContent{}, err
	}

	doc, err := html.Parse(bytes.NewReader(xhtml.ExpandSelfClosing(raw)))
	if err != nil {
		return ChapterContent{}, fmt.Errorf("unable to parse chapter %s: %w", src.Href, err)
	}
	dropProlog(doc)

	for _, t := range p.Transforms(src) {
		if doc, err = t(ctx, doc); err != nil {
			return ChapterContent{}, err
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return ChapterContent{}, fmt.Errorf("unable to render chapter %s: %w", src.Href, err)
	}
	if err := ctx.Err(); err != nil {
		return ChapterContent{}, err
	}
	return ChapterContent{Idref: src.Idref, Href: src.Href, Content: buf.String()}, nil
}

// dropProlog removes XML declaration and processing instructions, HTML
// parser keeps them as bogus comments.
func dropProlog(doc *html.Node) {
	for n := doc.FirstChild; n != nil; {
		next := n.NextSibling
		if n.Type == html.CommentNode && strings.HasPrefix(n.Data, "?") {
			doc.RemoveChild(n)
		}
		n = next
	}
}
