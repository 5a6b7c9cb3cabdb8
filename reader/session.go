// Package reader drives a reading session: opening a book, restoring position
// and moving between chapters.
package reader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"epr/config"
	"epr/document"
	"epr/epub"
	"epr/sanitize"
	"epr/storage"
)

//go:generate go tool go-enum --names

// ENUM(Idle, Loading, Ready, ChapterLoaded, Navigating, Error, Closed)
type State int

var (
	ErrClosed     = errors.New("session is closed")
	ErrNoBook     = errors.New("no book is open")
	ErrNoChapter  = errors.New("no chapter is displayed")
	ErrBoundary   = errors.New("no adjacent chapter")
	ErrSuperseded = errors.New("navigation superseded by newer request")
)

// ProgressStore is the part of storage.Store session needs.
type ProgressStore interface {
	SaveProgress(p storage.Progress) error
	GetProgress(bookID string) (*storage.Progress, error)
}

// Chapter is displayed chapter.
type Chapter struct {
	sanitize.ChapterContent
	Item epub.SpineItem
	// Raw is chapter markup before sanitizing.
	Raw []byte
}

type Option func(*Session)

func WithMaxResourceSize(n int64) Option {
	return func(s *Session) {
		s.maxResourceSize = n
	}
}

// WithRemoteFetcher enables fetching of absolute stylesheet URLs.
func WithRemoteFetcher(f sanitize.Fetcher) Option {
	return func(s *Session) {
		s.remote = f
	}
}

func WithPipelineOptions(opts ...sanitize.Option) Option {
	return func(s *Session) {
		s.pipelineOpts = append(s.pipelineOpts, opts...)
	}
}

// WithConfig applies document and sanitize sections of configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) {
		WithMaxResourceSize(cfg.Document.MaxResourceSize)(s)
		WithPipelineOptions(sanitize.WithConfig(&cfg.Sanitize))(s)
		if cfg.Sanitize.AllowRemote {
			WithRemoteFetcher(&sanitize.HTTPFetcher{
				UserAgent: cfg.Sanitize.UserAgent,
				MaxSize:   cfg.Sanitize.MaxStylesheetSize,
			})(s)
		}
	}
}

// Session owns one book at a time. All methods are safe for concurrent use,
// newer navigation cancels one in flight.
type Session struct {
	log             *zap.Logger
	store           ProgressStore
	maxResourceSize int64
	remote          sanitize.Fetcher
	pipelineOpts    []sanitize.Option

	mu       sync.Mutex
	state    State
	err      error
	bookID   string
	model    *document.Model
	resolver *document.Resolver
	pipeline *sanitize.Pipeline
	current  *Chapter
	gen      uint64
	cancel   context.CancelFunc
}

// New creates idle session. store may be nil, then progress is not kept.
func New(store ProgressStore, log *zap.Logger, opts ...Option) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{store: store, log: log.Named("reader")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// abortLocked cancels navigation in flight and invalidates its result.
func (s *Session) abortLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Open loads book replacing one currently open. name is used to derive book
// identity for stored progress.
func (s *Session) Open(ctx context.Context, data []byte, name string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.abortLocked()
	gen := s.gen
	if s.model != nil {
		s.model.Destroy()
	}
	s.model, s.resolver, s.pipeline, s.current, s.bookID, s.err = nil, nil, nil, nil, "", nil
	s.state = StateLoading
	s.mu.Unlock()

	model := document.New(s.log, document.WithMaxResourceSize(s.maxResourceSize))
	err := model.Load(ctx, data, name)

	var id string
	if err == nil {
		id, err = model.BookID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state == StateClosed {
		model.Destroy()
		if s.state == StateClosed {
			return ErrClosed
		}
		return ErrSuperseded
	}
	if err != nil {
		s.state, s.err = StateError, err
		s.log.Error("Unable to open book", zap.String("name", name), zap.Error(err))
		return fmt.Errorf("unable to open book: %w", err)
	}
	if id == "" {
		s.log.Warn("Book could not be identified, reading position will not be kept", zap.String("name", name))
	}

	fetcher := &sanitize.Router{
		Archive: &sanitize.ArchiveFetcher{Reader: model},
		Remote:  s.remote,
		Log:     s.log,
	}
	s.model = model
	s.resolver = document.NewResolver(model)
	s.pipeline = sanitize.New(fetcher, s.log, s.pipelineOpts...)
	s.bookID = id
	s.state = StateReady
	return nil
}

// Navigate displays chapter for request. When chapter cannot be found or
// prepared, currently displayed chapter stays.
func (s *Session) Navigate(ctx context.Context, req document.Request) (*Chapter, error) {
	return s.navigate(ctx, func(r *document.Resolver, _ *Chapter) (epub.SpineItem, error) {
		return r.Resolve(req)
	}, 0)
}

// Next moves to the following spine entry, or to the first one when nothing
// is displayed yet.
func (s *Session) Next(ctx context.Context) (*Chapter, error) {
	return s.navigate(ctx, func(r *document.Resolver, cur *Chapter) (epub.SpineItem, error) {
		var (
			item epub.SpineItem
			ok   bool
		)
		if cur == nil {
			item, ok = r.First()
		} else {
			item, ok = r.NextOf(cur.Item)
		}
		if !ok {
			return item, ErrBoundary
		}
		return item, nil
	}, 0)
}

// Previous moves to the preceding spine entry.
func (s *Session) Previous(ctx context.Context) (*Chapter, error) {
	return s.navigate(ctx, func(r *document.Resolver, cur *Chapter) (epub.SpineItem, error) {
		if cur == nil {
			return epub.SpineItem{}, ErrNoChapter
		}
		item, ok := r.PreviousOf(cur.Item)
		if !ok {
			return item, ErrBoundary
		}
		return item, nil
	}, 0)
}

// Resume restores stored position. Without usable record the first chapter
// is displayed. Scroll offset to restore is returned with the chapter.
func (s *Session) Resume(ctx context.Context) (*Chapter, float64, error) {
	s.mu.Lock()
	id, store := s.bookID, s.store
	s.mu.Unlock()

	if id != "" && store != nil {
		p, err := store.GetProgress(id)
		if err != nil {
			s.log.Warn("Unable to read reading progress", zap.String("book", id), zap.Error(err))
		}
		if p != nil {
			loc := p.Location()
			ch, err := s.navigate(ctx, func(r *document.Resolver, _ *Chapter) (epub.SpineItem, error) {
				return r.Resolve(loc)
			}, p.ScrollPosition)
			if err == nil {
				return ch, p.ScrollPosition, nil
			}
			var nf *document.ChapterNotFoundError
			if !errors.As(err, &nf) {
				return nil, 0, err
			}
			s.log.Warn("Stored position no longer resolves, starting from the beginning",
				zap.String("book", id), zap.Stringer("kind", p.Kind()), zap.Stringer("location", loc))
		}
	}

	ch, err := s.navigate(ctx, func(r *document.Resolver, _ *Chapter) (epub.SpineItem, error) {
		item, ok := r.First()
		if !ok {
			return item, &document.ChapterNotFoundError{}
		}
		return item, nil
	}, 0)
	return ch, 0, err
}

type pickFunc func(r *document.Resolver, current *Chapter) (epub.SpineItem, error)

func (s *Session) navigate(ctx context.Context, pick pickFunc, scroll float64) (*Chapter, error) {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrClosed
	case StateIdle, StateLoading, StateError:
		s.mu.Unlock()
		return nil, ErrNoBook
	}
	s.abortLocked()
	gen := s.gen
	nctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateNavigating
	model, resolver, pipeline, current := s.model, s.resolver, s.pipeline, s.current
	s.mu.Unlock()
	defer cancel()

	ch, err := s.prepare(nctx, model, resolver, pipeline, pick, current)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if s.State() == StateClosed {
			return nil, ErrClosed
		}
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err != nil {
		s.state = StateReady
		if s.current != nil {
			s.state = StateChapterLoaded
		}
		s.mu.Unlock()
		return nil, err
	}
	s.current = ch
	s.state = StateChapterLoaded
	s.mu.Unlock()

	s.saveProgress(ch, scroll)
	return ch, nil
}

func (s *Session) prepare(ctx context.Context, model *document.Model, resolver *document.Resolver, pipeline *sanitize.Pipeline, pick pickFunc, current *Chapter) (*Chapter, error) {
	item, err := pick(resolver, current)
	if err != nil {
		return nil, err
	}
	raw, err := model.ReadResource(item.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to read chapter %s: %w", item.Href, err)
	}
	content, err := pipeline.Run(ctx, sanitize.Source{Idref: item.Idref, Href: item.Href, Path: item.Path}, raw)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Chapter prepared", zap.String("idref", item.Idref), zap.Int("index", item.Index), zap.Int("size", len(content.Content)))
	return &Chapter{ChapterContent: content, Item: item, Raw: raw}, nil
}

// UpdateScroll records scroll offset within displayed chapter.
func (s *Session) UpdateScroll(pos float64) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	ch := s.current
	s.mu.Unlock()

	if ch == nil {
		return ErrNoChapter
	}
	s.saveProgress(ch, pos)
	return nil
}

// saveProgress never fails, persistence problems are only logged.
func (s *Session) saveProgress(ch *Chapter, scroll float64) {
	s.mu.Lock()
	id, store := s.bookID, s.store
	s.mu.Unlock()

	if store == nil || id == "" {
		return
	}
	err := store.SaveProgress(storage.Progress{
		BookID:         id,
		ChapterIdref:   ch.Idref,
		ChapterHref:    ch.Href,
		ScrollPosition: scroll,
	})
	if err != nil {
		s.log.Warn("Unable to save reading progress", zap.String("book", id), zap.Error(err))
	}
}

// Close releases book. Session could not be used afterwards.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.abortLocked()
	if s.model != nil {
		s.model.Destroy()
	}
	s.model, s.resolver, s.pipeline, s.current = nil, nil, nil, nil
	s.state = StateClosed
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns error which moved session into Error state.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Current returns displayed chapter or nil.
func (s *Session) Current() *Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

func (s *Session) BookID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookID
}

// Book returns copy of the open book.
func (s *Session) Book() (*epub.Book, error) {
	s.mu.Lock()
	model := s.model
	s.mu.Unlock()

	if model == nil {
		return nil, ErrNoBook
	}
	return model.Book()
}
