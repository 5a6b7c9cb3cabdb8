// Package archive builds safe random access to an in-memory zip container on
// top of "archive/zip".
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/h2non/filetype"
)

var (
	// ErrNotArchive is returned when data does not look like zip container.
	ErrNotArchive = errors.New("not a zip archive")
	// ErrNotFound is returned when requested entry is absent.
	ErrNotFound = errors.New("entry not found in archive")
	// ErrClosed is returned by any access after Close.
	ErrClosed = errors.New("archive is closed")
)

// DefaultLimit is used when Open is called without positive limit.
const DefaultLimit int64 = 256 * 1024 * 1024

// WalkFunc is the type of the function called for each file in archive
// visited by Walk. If an error is returned, processing stops.
type WalkFunc func(file *zip.File) error

// Archive owns the container bytes. It is safe for concurrent readers, Close
// drops every reference to the underlying buffer.
type Archive struct {
	mu    sync.RWMutex
	zr    *zip.Reader
	exact map[string]*zip.File
	lower map[string]*zip.File
	limit int64
}

// Open sniffs data and indexes zip entries. limit is the largest
// decompressed size allowed for a single entry.
func Open(data []byte, limit int64) (*Archive, error) {
	if !filetype.Is(data, "zip") && !filetype.Is(data, "epub") {
		return nil, ErrNotArchive
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotArchive, err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	a := &Archive{
		zr:    zr,
		exact: make(map[string]*zip.File, len(zr.File)),
		lower: make(map[string]*zip.File, len(zr.File)),
		limit: limit,
	}
	for _, f := range zr.File {
		// first entry wins for both exact and case-insensitive lookups
		if _, exists := a.exact[f.Name]; !exists {
			a.exact[f.Name] = f
		}
		if l := strings.ToLower(f.Name); a.lower[l] == nil {
			a.lower[l] = f
		}
	}
	return a, nil
}

// Close releases archive content. It is idempotent.
func (a *Archive) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.zr, a.exact, a.lower = nil, nil, nil
}

// Find looks up entry by exact name, falling back to case-insensitive match.
func (a *Archive) Find(name string) (*zip.File, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.zr == nil {
		return nil, ErrClosed
	}
	if f, ok := a.exact[name]; ok {
		return f, nil
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ReadFile returns decompressed content of the named entry.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, err := a.Find(name)
	if err != nil {
		return nil, err
	}
	return readEntry(f, a.limit)
}

// Walk walks all files in the archive with names starting with prefix in
// archive order, calling walkFn for each. Entries with path traversal
// components or absolute paths are skipped to prevent Zip Slip attacks.
func (a *Archive) Walk(prefix string, walkFn WalkFunc) error {
	a.mu.RLock()
	if a.zr == nil {
		a.mu.RUnlock()
		return ErrClosed
	}
	files := slices.Clone(a.zr.File)
	a.mu.RUnlock()

	for _, f := range files {
		if !IsSafePath(f.Name) || f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		if err := walkFn(f); err != nil {
			return err
		}
	}
	return nil
}

// First returns the very first entry of the archive, EPUB puts "mimetype"
// there.
func (a *Archive) First() (*zip.File, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.zr == nil {
		return nil, ErrClosed
	}
	if len(a.zr.File) == 0 {
		return nil, ErrNotFound
	}
	return a.zr.File[0], nil
}

// IsSafePath returns false for paths that could escape the archive root:
// absolute paths and those containing ".." components.
func IsSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Resolve resolves href relative to the directory of base, both being
// archive paths. Query and fragment are dropped, percent-encoding is decoded.
// Result is empty when href escapes archive root.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	resolved := path.Clean(path.Join(path.Dir(base), href))
	if resolved == "." || !IsSafePath(resolved) {
		return ""
	}
	return resolved
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if !IsSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("unable to open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// declared size may be forged, read one byte over the limit to detect it
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}
	return data, nil
}
