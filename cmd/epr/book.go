package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"epr/config"
	"epr/document"
	"epr/epub"
	"epr/state"
	"epr/utils/debug"
)

// bookArg returns path to the book from command line and its data.
func bookArg(cmd *cli.Command, log *zap.Logger) (string, []byte, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return "", nil, errors.New("no book has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many books", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", nil, fmt.Errorf("unable to read book: %w", err)
	}
	return src, data, nil
}

// openModel loads book named on command line. Caller owns returned model.
func openModel(ctx context.Context, cmd *cli.Command, env *state.LocalEnv, log *zap.Logger) (*document.Model, error) {
	src, data, err := bookArg(cmd, log)
	if err != nil {
		return nil, err
	}
	model := document.New(log, document.WithMaxResourceSize(env.Cfg.Document.MaxResourceSize))
	if err := model.Load(ctx, data, filepath.Base(src)); err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", src, err)
	}
	return model, nil
}

// InfoValues are available to info template.
type InfoValues struct {
	epub.Metadata
	BookID     string
	Version    string
	Chapters   int
	Resources  int
	SourceFile string
}

func expandInfo(field string, book *epub.Book, src string) (string, error) {
	tmpl, err := template.New(string(config.InfoTemplateFieldName)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", config.InfoTemplateFieldName, err)
	}

	values := InfoValues{
		Metadata:   book.Metadata,
		BookID:     book.ID,
		Version:    book.Version,
		Chapters:   len(book.Spine),
		Resources:  len(book.Manifest),
		SourceFile: filepath.Base(src),
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func runInfo(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("info")

	model, err := openModel(ctx, cmd, env, log)
	if err != nil {
		return err
	}
	defer model.Destroy()

	book, err := model.Book()
	if err != nil {
		return err
	}
	env.Rpt.StoreData("book.txt", []byte(debug.Book(book)))

	text, err := expandInfo(env.Cfg.Reader.InfoTemplate, book, cmd.Args().First())
	if err != nil {
		return fmt.Errorf("unable to expand info template: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, text)
	return err
}

func writeTOC(w io.Writer, toc []epub.TocNode) error {
	tw := debug.NewTreeWriter()
	if len(toc) == 0 {
		tw.Line(0, "<empty>")
	}
	debug.TOC(tw, 0, toc)
	_, err := io.WriteString(w, tw.String())
	return err
}

func runTOC(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("toc")

	model, err := openModel(ctx, cmd, env, log)
	if err != nil {
		return err
	}
	defer model.Destroy()

	toc, err := model.TOC()
	if err != nil {
		return err
	}
	return writeTOC(os.Stdout, toc)
}

func writeSpine(w io.Writer, items []epub.SpineItem) error {
	tw := debug.NewTreeWriter()
	for _, item := range items {
		if item.Linear {
			tw.Line(0, "%3d  %-20s %s", item.Index, item.Idref, item.Href)
			continue
		}
		tw.Line(0, "%3d  %-20s %s (non-linear)", item.Index, item.Idref, item.Href)
	}
	_, err := io.WriteString(w, tw.String())
	return err
}

func runSpine(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("spine")

	model, err := openModel(ctx, cmd, env, log)
	if err != nil {
		return err
	}
	defer model.Destroy()

	items, err := model.SpineItems()
	if err != nil {
		return err
	}
	return writeSpine(os.Stdout, items)
}

// writeManifest lists resources ordered naturally by archive path, so
// "ch2" comes before "ch10".
func writeManifest(w io.Writer, items []epub.ManifestItem) error {
	byPath := make(map[string]epub.ManifestItem, len(items))
	keys := make([]string, 0, len(items))
	for _, item := range items {
		byPath[item.Path] = item
		keys = append(keys, item.Path)
	}
	sort.Sort(natural.StringSlice(keys))

	tw := debug.NewTreeWriter()
	for _, k := range keys {
		item := byPath[k]
		tw.Line(0, "%-40s %-30s %s", item.Path, item.MediaType, item.ID)
	}
	_, err := io.WriteString(w, tw.String())
	return err
}

func runManifest(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("manifest")

	model, err := openModel(ctx, cmd, env, log)
	if err != nil {
		return err
	}
	defer model.Destroy()

	items, err := model.Manifest()
	if err != nil {
		return err
	}
	return writeManifest(os.Stdout, items)
}
