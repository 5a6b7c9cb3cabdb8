package sanitize

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"epr/css"
)

// Maximum depth of @import chains followed when inlining.
const maxImportDepth = 4

type inliner struct {
	fetcher     Fetcher
	cleaner     *css.Cleaner
	base        string
	concurrency int
	timeout     time.Duration
	maxSize     int64
	log         *zap.Logger
}

// InlineStylesheets returns transform replacing every linked stylesheet of
// document located at base with <style> element holding its cleaned text.
// Links which could not be fetched are removed.
func (p *Pipeline) InlineStylesheets(base string) Transform {
	in := &inliner{
		fetcher:     p.fetcher,
		cleaner:     p.cleaner,
		base:        base,
		concurrency: p.concurrency,
		timeout:     p.timeout,
		maxSize:     p.maxStylesheetSize,
		log:         p.log,
	}
	return in.transform
}

func isStylesheetLink(n *html.Node) bool {
	if n.DataAtom != atom.Link {
		return false
	}
	rel, _ := getAttr(n, "rel")
	return hasToken(rel, "stylesheet")
}

func (in *inliner) transform(ctx context.Context, doc *html.Node) (*html.Node, error) {
	doc = cloneTree(doc)
	links := elements(doc, isStylesheetLink)
	if len(links) == 0 {
		return doc, ctx.Err()
	}

	texts := make([][]byte, len(links))

	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i, link := range links {
		href, _ := getAttr(link, "href")
		g.Go(func() error {
			text, err := in.load(ctx, in.base, href, 0, map[string]bool{})
			if err != nil {
				if ctx.Err() == nil {
					in.log.Warn("Unable to inline stylesheet, link removed",
						zap.String("chapter", in.base), zap.String("href", href), zap.Error(err))
				}
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, link := range links {
		if texts[i] != nil {
			style := &html.Node{
				Type:     html.ElementNode,
				DataAtom: atom.Style,
				Data:     "style",
				Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
			}
			if media, ok := getAttr(link, "media"); ok && media != "" {
				style.Attr = append(style.Attr, html.Attribute{Key: "media", Val: media})
			}
			style.AppendChild(&html.Node{Type: html.TextNode, Data: string(texts[i])})
			link.Parent.InsertBefore(style, link)
		}
		link.Parent.RemoveChild(link)
	}
	return doc, nil
}

// load fetches stylesheet with everything it imports, imported text goes
// first as it would when linked.
func (in *inliner) load(ctx context.Context, base, href string, depth int, seen map[string]bool) ([]byte, error) {
	fctx, cancel := context.WithTimeout(ctx, in.timeout)
	defer cancel()

	res, err := in.fetcher.Fetch(fctx, base, href)
	if err != nil {
		return nil, err
	}
	if in.maxSize > 0 && int64(len(res.Data)) > in.maxSize {
		return nil, fmt.Errorf("stylesheet %s is larger than %d bytes", res.Location, in.maxSize)
	}
	if seen[res.Location] {
		return nil, fmt.Errorf("stylesheet %s imports itself", res.Location)
	}
	seen[res.Location] = true

	sheet := in.cleaner.Clean(res.Data, res.Location)
	if len(sheet.Imports) == 0 {
		return sheet.Text, nil
	}

	var buf bytes.Buffer
	for _, imp := range sheet.Imports {
		if depth+1 >= maxImportDepth {
			in.log.Debug("Import chain is too deep, ignoring", zap.String("stylesheet", res.Location), zap.String("import", imp))
			continue
		}
		text, err := in.load(ctx, res.Location, imp, depth+1, seen)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			in.log.Debug("Unable to load imported stylesheet", zap.String("stylesheet", res.Location), zap.String("import", imp), zap.Error(err))
			continue
		}
		buf.Write(text)
		buf.WriteByte('\n')
	}
	buf.Write(sheet.Text)
	return buf.Bytes(), nil
}
