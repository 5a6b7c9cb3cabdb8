// Package document keeps loaded book for a reading session and maps chapter
// requests to spine entries.
package document

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"epr/archive"
	"epr/epub"
)

// NotLoadedError is returned by every accessor of a Model without book.
type NotLoadedError struct{}

func (NotLoadedError) Error() string {
	return "document is not loaded"
}

var ErrNotLoaded error = NotLoadedError{}

// Model owns single loaded book and its archive. It is safe for concurrent
// use.
type Model struct {
	log   *zap.Logger
	limit int64

	mu   sync.RWMutex
	arc  *archive.Archive
	book *epub.Book
}

type Option func(*Model)

// WithMaxResourceSize limits decompressed size of any single resource.
func WithMaxResourceSize(limit int64) Option {
	return func(m *Model) {
		m.limit = limit
	}
}

func New(log *zap.Logger, opts ...Option) *Model {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Model{log: log.Named("document")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load parses package and makes it current replacing previously loaded one.
// On failure model is left as it was. name is the file name book came from,
// used to derive book id, may be empty.
func (m *Model) Load(ctx context.Context, data []byte, name string) error {
	arc, err := epub.OpenArchive(data, m.limit)
	if err != nil {
		return err
	}
	book, err := epub.LoadArchive(ctx, arc, m.log)
	if err != nil {
		arc.Close()
		return err
	}
	if id := epub.BookID(name, book.Metadata); id != "" {
		book.ID = id
	}

	m.mu.Lock()
	prev := m.arc
	m.arc, m.book = arc, book
	m.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	m.log.Debug("Book loaded",
		zap.String("id", book.ID),
		zap.String("title", book.Metadata.Title),
		zap.Int("chapters", len(book.Spine)),
		zap.Int("warnings", len(book.Warnings)))
	return nil
}

// Destroy releases book and archive buffer, it is idempotent.
func (m *Model) Destroy() {
	m.mu.Lock()
	arc := m.arc
	m.arc, m.book = nil, nil
	m.mu.Unlock()

	if arc != nil {
		arc.Close()
		m.log.Debug("Book released")
	}
}

// Loaded reports whether accessors would succeed.
func (m *Model) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.book != nil
}

func (m *Model) view(fn func(b *epub.Book)) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.book == nil {
		return ErrNotLoaded
	}
	fn(m.book)
	return nil
}

func (m *Model) Metadata() (md epub.Metadata, err error) {
	err = m.view(func(b *epub.Book) { md = b.Metadata })
	return
}

func (m *Model) TOC() (toc []epub.TocNode, err error) {
	err = m.view(func(b *epub.Book) { toc = epub.CloneTOC(b.TOC) })
	return
}

// SpineItems returns reading order, item indices are positions in returned
// slice.
func (m *Model) SpineItems() (items []epub.SpineItem, err error) {
	err = m.view(func(b *epub.Book) { items = append([]epub.SpineItem{}, b.Spine...) })
	return
}

// Manifest returns resources in declaration order.
func (m *Model) Manifest() (items []epub.ManifestItem, err error) {
	err = m.view(func(b *epub.Book) {
		items = make([]epub.ManifestItem, 0, len(b.ManifestOrder))
		for _, id := range b.ManifestOrder {
			item := b.Manifest[id]
			item.Properties = append([]string(nil), item.Properties...)
			items = append(items, item)
		}
	})
	return
}

func (m *Model) BookID() (id string, err error) {
	err = m.view(func(b *epub.Book) { id = b.ID })
	return
}

func (m *Model) Warnings() (w []string, err error) {
	err = m.view(func(b *epub.Book) { w = append([]string(nil), b.Warnings...) })
	return
}

// Book returns deep copy of the whole book.
func (m *Model) Book() (book *epub.Book, err error) {
	err = m.view(func(b *epub.Book) { book = b.Clone() })
	return
}

// ReadResource returns content of archive entry by its archive path.
func (m *Model) ReadResource(path string) ([]byte, error) {
	m.mu.RLock()
	arc := m.arc
	m.mu.RUnlock()

	if arc == nil {
		return nil, ErrNotLoaded
	}
	data, err := arc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read resource: %w", err)
	}
	return data, nil
}
