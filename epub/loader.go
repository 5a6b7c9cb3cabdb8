// Package epub parses EPUB container into reading order, navigation and
// metadata.
package epub

import (
	"context"
	"errors"
	"path"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"epr/archive"
)

// Load parses EPUB package from memory. Archive content is not retained,
// see LoadArchive when resources need to be read later.
func Load(ctx context.Context, data []byte, limit int64, log *zap.Logger) (*Book, error) {
	arc, err := OpenArchive(data, limit)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	return LoadArchive(ctx, arc, log)
}

// OpenArchive opens container classifying failure as package error.
func OpenArchive(data []byte, limit int64) (*archive.Archive, error) {
	arc, err := archive.Open(data, limit)
	if err != nil {
		return nil, &PackageError{Kind: PackageErrorKindInvalidArchive, Err: err}
	}
	return arc, nil
}

// LoadArchive builds book from already opened container. Either complete
// book or error is returned.
func LoadArchive(ctx context.Context, arc *archive.Archive, log *zap.Logger) (*Book, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("epub")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var warnings []string
	if first, err := arc.First(); err != nil || first.Name != "mimetype" {
		warnings = append(warnings, `first archive entry is not "mimetype"`)
	}

	opfPath, err := findPackagePath(arc)
	if err != nil {
		return nil, err
	}
	data, err := arc.ReadFile(opfPath)
	if err != nil {
		if errors.Is(err, archive.ErrClosed) {
			return nil, err
		}
		return nil, &PackageError{Kind: PackageErrorKindMalformedPackage, Path: opfPath, Err: err}
	}
	pkg, err := parsePackage(opfPath, data)
	if err != nil {
		return nil, err
	}
	log.Debug("Package parsed",
		zap.String("path", opfPath),
		zap.String("version", pkg.version),
		zap.Int("manifest", len(pkg.order)),
		zap.Int("spine", len(pkg.spine)))

	var (
		md      Metadata
		toc     []TocNode
		tocWarn string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		md = pkg.metadata()
		return nil
	})
	g.Go(func() error {
		toc, tocWarn = loadTOC(gctx, arc, pkg)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	warnings = append(warnings, pkg.warnings...)
	if tocWarn != "" {
		warnings = append(warnings, tocWarn)
	}
	if toc == nil {
		toc = []TocNode{}
	}
	for _, w := range warnings {
		log.Warn("Package problem", zap.String("details", w))
	}

	return &Book{
		ID:            BookID("", md),
		Version:       pkg.version,
		OPFPath:       opfPath,
		Metadata:      md,
		Manifest:      pkg.manifest,
		ManifestOrder: pkg.order,
		Spine:         pkg.spine,
		TOC:           toc,
		Warnings:      warnings,
	}, nil
}

// loadTOC never fails, problems are reported as warning and produce empty
// navigation.
func loadTOC(ctx context.Context, arc *archive.Archive, pkg *packageDoc) ([]TocNode, string) {
	var problem string

	if nav, ok := pkg.findNav(); ok && nav.Path != "" {
		src := navSource{opfDir: path.Dir(pkg.path), path: nav.Path}
		data, err := arc.ReadFile(nav.Path)
		if err == nil {
			var toc []TocNode
			if toc, err = src.parseNav(data); err == nil && len(toc) > 0 {
				return toc, ""
			}
		}
		if err != nil {
			problem = "unable to use navigation document: " + err.Error()
		}
	}
	if ctx.Err() != nil {
		return nil, ""
	}

	if ncx, ok := pkg.findNCX(); ok && ncx.Path != "" {
		src := navSource{opfDir: path.Dir(pkg.path), path: ncx.Path}
		data, err := arc.ReadFile(ncx.Path)
		if err == nil {
			var toc []TocNode
			if toc, err = src.parseNCX(data); err == nil && len(toc) > 0 {
				return toc, problem
			}
		}
		if err != nil {
			problem = "unable to use NCX: " + err.Error()
		}
	}
	if problem == "" {
		problem = "package has no usable navigation, table of contents is empty"
	}
	return nil, problem
}
