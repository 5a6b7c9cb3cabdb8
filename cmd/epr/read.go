package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"epr/config"
	"epr/document"
	"epr/epub"
	"epr/reader"
	"epr/state"
	"epr/storage"
	"epr/utils/debug"
)

type readMode int

const (
	readResume readMode = iota
	readRequest
	readNext
	readPrevious
)

func readModeFrom(cmd *cli.Command) (readMode, document.Request, error) {
	req := document.Request{Idref: cmd.String("idref"), Href: cmd.String("href")}

	modes := 0
	mode := readResume
	if !req.IsZero() {
		modes++
		mode = readRequest
	}
	if cmd.Bool("next") {
		modes++
		mode = readNext
	}
	if cmd.Bool("prev") {
		modes++
		mode = readPrevious
	}
	if cmd.Bool("resume") {
		modes++
		mode = readResume
	}
	if modes > 1 {
		return mode, req, errors.New("only one of chapter request, --next, --prev or --resume could be used")
	}
	return mode, req, nil
}

// reportName flattens archive path of the chapter, so chapters with the same
// file name in different directories do not collide in the report.
func reportName(item epub.SpineItem) string {
	return config.CleanFileName(item.Path)
}

func runRead(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("read")

	mode, req, err := readModeFrom(cmd)
	if err != nil {
		return err
	}
	src, data, err := bookArg(cmd, log)
	if err != nil {
		return err
	}
	store, err := env.OpenStore()
	if err != nil {
		return fmt.Errorf("unable to open reader database: %w", err)
	}

	session := reader.New(store, log, reader.WithConfig(env.Cfg))
	defer session.Close()

	if err := session.Open(ctx, data, filepath.Base(src)); err != nil {
		return err
	}
	if book, err := session.Book(); err == nil {
		env.Rpt.StoreData("book.txt", []byte(debug.Book(book)))
	}

	var (
		ch     *reader.Chapter
		scroll float64
	)
	switch mode {
	case readRequest:
		ch, err = session.Navigate(ctx, req)
	case readNext, readPrevious:
		if _, scroll, err = session.Resume(ctx); err != nil {
			break
		}
		scroll = 0
		if mode == readNext {
			ch, err = session.Next(ctx)
		} else {
			ch, err = session.Previous(ctx)
		}
	default:
		ch, scroll, err = session.Resume(ctx)
	}
	if err != nil {
		return fmt.Errorf("unable to read chapter: %w", err)
	}

	if cmd.IsSet("scroll") {
		scroll = cmd.Float("scroll")
		if err := session.UpdateScroll(scroll); err != nil {
			return err
		}
	}

	name := reportName(ch.Item)
	env.Rpt.StoreData(path.Join("chapter", "raw", name), ch.Raw)
	env.Rpt.StoreData(path.Join("chapter", "sanitized", name), []byte(ch.Content))

	log.Info("Chapter ready",
		zap.String("idref", ch.Idref), zap.String("href", ch.Href),
		zap.Int("index", ch.Item.Index), zap.Float64("scroll", scroll))

	var out io.Writer = os.Stdout
	if dst := cmd.String("out"); len(dst) > 0 {
		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dst, err)
		}
		defer f.Close()
		out = f
	}
	if _, err := io.WriteString(out, ch.Content); err != nil {
		return fmt.Errorf("unable to write chapter: %w", err)
	}
	return nil
}

func writeProgress(w io.Writer, p *storage.Progress) error {
	if p == nil {
		_, err := fmt.Fprintln(w, "No reading progress stored")
		return err
	}
	_, err := fmt.Fprintf(w, "Book:      %s\nChapter:   %s\nScroll:    %g\nLast read: %s\nRecord:    %s\n",
		p.BookID, p.Location(), p.ScrollPosition, p.LastReadDate.Local().Format(time.DateTime), p.Kind())
	return err
}

func runProgress(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("progress")

	model, err := openModel(ctx, cmd, env, log)
	if err != nil {
		return err
	}
	defer model.Destroy()

	id, err := model.BookID()
	if err != nil {
		return err
	}
	if id == "" {
		return errors.New("book could not be identified")
	}
	store, err := env.OpenStore()
	if err != nil {
		return fmt.Errorf("unable to open reader database: %w", err)
	}

	if cmd.Bool("clear") {
		if err := store.DeleteProgress(id); err != nil {
			return fmt.Errorf("unable to clear reading progress: %w", err)
		}
		log.Info("Reading progress cleared", zap.String("book", id))
		return nil
	}

	p, err := store.GetProgress(id)
	if err != nil {
		return fmt.Errorf("unable to read reading progress: %w", err)
	}
	return writeProgress(os.Stdout, p)
}
