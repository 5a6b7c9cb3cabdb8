package sanitize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"epr/archive"
)

// ErrRefused is returned for resource references which are never fetched.
var ErrRefused = errors.New("resource reference refused")

// Resource is fetched stylesheet content and location it was fetched from,
// relative references inside it are resolved against Location.
type Resource struct {
	Location string
	Data     []byte
}

// Fetcher retrieves resource referenced by href from document at base.
type Fetcher interface {
	Fetch(ctx context.Context, base, href string) (Resource, error)
}

// ResourceReader gives access to archive entries, document.Model is one.
type ResourceReader interface {
	ReadResource(path string) ([]byte, error)
}

// ArchiveFetcher reads resources from the book itself.
type ArchiveFetcher struct {
	Reader ResourceReader
}

func (f *ArchiveFetcher) Fetch(ctx context.Context, base, href string) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return Resource{}, err
	}
	loc := archive.Resolve(base, href)
	if loc == "" {
		return Resource{}, fmt.Errorf("%w: %q does not point inside the book", ErrRefused, href)
	}
	data, err := f.Reader.ReadResource(loc)
	if err != nil {
		return Resource{}, err
	}
	return Resource{Location: loc, Data: data}, nil
}

// HTTPFetcher downloads absolute http(s) references.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxSize   int64
}

func (f *HTTPFetcher) Fetch(ctx context.Context, base, href string) (Resource, error) {
	u, err := resolveURL(base, href)
	if err != nil {
		return Resource{}, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Resource{}, fmt.Errorf("%w: unsupported scheme %q", ErrRefused, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Resource{}, fmt.Errorf("unable to prepare request: %w", err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/css,*/*;q=0.1")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Resource{}, fmt.Errorf("unable to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Resource{}, fmt.Errorf("unable to fetch %s: %s", u, resp.Status)
	}

	var r io.Reader = resp.Body
	if f.MaxSize > 0 {
		r = io.LimitReader(resp.Body, f.MaxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Resource{}, fmt.Errorf("unable to read %s: %w", u, err)
	}
	if f.MaxSize > 0 && int64(len(data)) > f.MaxSize {
		return Resource{}, fmt.Errorf("resource %s is larger than %d bytes", u, f.MaxSize)
	}
	return Resource{Location: u.String(), Data: data}, nil
}

// Router dispatches references to archive or network by their form. Remote
// fetcher may be nil, then absolute URLs are refused.
type Router struct {
	Archive Fetcher
	Remote  Fetcher
	Log     *zap.Logger
}

func (r *Router) Fetch(ctx context.Context, base, href string) (Resource, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return Resource{}, fmt.Errorf("%w: empty reference", ErrRefused)
	}

	remote := isRemote(base)
	if u, err := url.Parse(href); err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			remote = true
		default:
			// data:, file: and friends
			return Resource{}, fmt.Errorf("%w: scheme %q", ErrRefused, u.Scheme)
		}
	} else if strings.HasPrefix(href, "//") {
		remote = true
	}

	if !remote {
		return r.Archive.Fetch(ctx, base, href)
	}
	if r.Remote == nil {
		return Resource{}, fmt.Errorf("%w: remote resources are not allowed (%s)", ErrRefused, href)
	}
	if r.Log != nil {
		r.Log.Debug("Fetching remote resource", zap.String("base", base), zap.String("href", href))
	}
	return r.Remote.Fetch(ctx, base, href)
}

func isRemote(loc string) bool {
	return strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://")
}

func resolveURL(base, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("bad reference %q: %w", href, err)
	}
	if ref.IsAbs() || !isRemote(base) {
		if ref.Scheme == "" && strings.HasPrefix(href, "//") {
			ref.Scheme = "https"
		}
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("bad base %q: %w", base, err)
	}
	return b.ResolveReference(ref), nil
}
